package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/rickgao/parkwatch/internal/router"
)

const tailStatsInterval = 10 * time.Second

// newTailCmd streams decoded events for the given gates to stdout.
func newTailCmd(opts *options) *cobra.Command {
	var gates []string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print zone and admin updates for one or more gates as they arrive",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(gates) == 0 {
				return fmt.Errorf("at least one --gate is required")
			}
			a, err := setup(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.stop()

			return a.runTail(cmd.OutOrStdout(), gates, verbose)
		},
	}
	cmd.Flags().StringSliceVar(&gates, "gate", nil, "gate id to subscribe to (repeatable)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "print full event JSON")
	return cmd
}

func (a *app) runTail(out io.Writer, gates []string, verbose bool) error {
	p := &eventPrinter{out: out, verbose: verbose}
	zoneID := a.dispatcher.OnZoneUpdate(p.zone)
	adminID := a.dispatcher.OnAdminUpdate(p.admin)
	defer a.dispatcher.RemoveListener(router.KindZoneUpdate, zoneID)
	defer a.dispatcher.RemoveListener(router.KindAdminUpdate, adminID)

	for _, g := range gates {
		a.manager.Subscribe(g)
	}
	a.connect()

	a.logger.Info("streaming started - press Ctrl+C to stop", "gates", gates)

	ticker := time.NewTicker(tailStatsInterval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-a.ctx.Done():
			break loop
		case <-ticker.C:
			conn := a.manager.Stats()
			disp := a.dispatcher.Stats()
			a.logger.Info("stats",
				"state", conn.State.String(),
				"subscriptions", conn.Subscriptions,
				"frames", disp.MessagesReceived,
				"dispatched", disp.EventsDispatched,
				"parse_errors", disp.ParseErrors,
				"unknown", disp.UnknownMessages,
			)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.logger.Info("shutting down...")
	if err := a.manager.Stop(ctx); err != nil {
		a.logger.Warn("connection shutdown", "error", err)
	}
	a.logger.Info("shutdown complete")
	return nil
}

// eventPrinter writes one line per event. Listeners run on the read loop,
// so writes are serialized.
type eventPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
}

func (p *eventPrinter) zone(e router.ZoneUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.verbose {
		data, _ := json.MarshalIndent(e.Zone, "", "  ")
		fmt.Fprintf(p.out, "[ZONE] %s\n", data)
		return
	}
	z := e.Zone
	fmt.Fprintf(p.out, "[ZONE] id=%s name=%q free=%d/%d visitors=%d subscribers=%d open=%t\n",
		z.ZoneID, z.Name, z.Free, z.TotalSlots, z.AvailableForVisitors, z.AvailableForSubscribers, z.Open)
}

func (p *eventPrinter) admin(e router.AdminUpdate) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.verbose {
		data, _ := json.MarshalIndent(e.Entry, "", "  ")
		fmt.Fprintf(p.out, "[ADMIN] %s\n", data)
		return
	}
	en := e.Entry
	fmt.Fprintf(p.out, "[ADMIN] admin=%s action=%s target=%s/%s at=%s\n",
		en.AdminID, en.Action, en.TargetType, en.TargetID, en.Timestamp.Format(time.RFC3339))
}
