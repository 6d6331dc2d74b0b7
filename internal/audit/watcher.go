package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rickgao/parkwatch/internal/model"
	"github.com/rickgao/parkwatch/internal/router"
)

// Source is the request/response collaborator the watcher reads from.
type Source interface {
	GetGates(ctx context.Context) ([]model.Gate, error)
	GetParkingState(ctx context.Context) ([]model.ZoneReport, error)
}

// Subscriber registers gate subscriptions on the stream connection.
type Subscriber interface {
	Subscribe(gateID string)
}

// Listeners is the part of the dispatcher the watcher registers with.
type Listeners interface {
	OnAdminUpdate(fn func(router.AdminUpdate)) router.ListenerID
	RemoveListener(kind router.EventKind, id router.ListenerID) bool
}

// Report is the latest administrative parking-state report.
type Report struct {
	Zones     []model.ZoneReport `json:"zones"`
	FetchedAt time.Time          `json:"fetchedAt"`
}

// Watcher is the admin audit-log surface. The stream only delivers
// admin-update events for subscribed gates, so the watcher subscribes to
// every known gate and appends each event to its buffer.
type Watcher struct {
	source    Source
	subs      Subscriber
	listeners Listeners
	buf       *Buffer
	logger    *slog.Logger
	now       func() time.Time

	// OnAppend, when set, observes the buffer length after every push.
	OnAppend func(n int)

	mu         sync.Mutex
	listenerID router.ListenerID
	started    bool
	gates      map[string]model.Gate
	report     Report
}

// NewWatcher creates an audit watcher writing into buf.
func NewWatcher(source Source, subs Subscriber, listeners Listeners, buf *Buffer, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if buf == nil {
		buf = NewBuffer(DefaultCapacity)
	}
	return &Watcher{
		source:    source,
		subs:      subs,
		listeners: listeners,
		buf:       buf,
		logger:    logger,
		now:       time.Now,
		gates:     make(map[string]model.Gate),
	}
}

// Name identifies the watcher for the poller.
func (w *Watcher) Name() string {
	return "audit"
}

// Start registers the admin-update listener and performs the first refresh.
// The listener stays registered even if the refresh fails.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.listenerID = w.listeners.OnAdminUpdate(w.handle)
		w.started = true
	}
	w.mu.Unlock()

	return w.Refresh(ctx)
}

// Close deregisters the listener. Gate subscriptions are left in place.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	w.listeners.RemoveListener(router.KindAdminUpdate, w.listenerID)
	w.started = false
}

func (w *Watcher) handle(e router.AdminUpdate) {
	w.buf.Push(e.Entry)

	w.logger.Debug("admin update",
		"action", e.Entry.Action,
		"target_type", e.Entry.TargetType,
		"target_id", e.Entry.TargetID,
	)

	if w.OnAppend != nil {
		w.OnAppend(w.buf.Len())
	}
}

// Refresh re-reads the gate list, subscribes to gates not seen before and
// reloads the parking-state report.
func (w *Watcher) Refresh(ctx context.Context) error {
	gates, err := w.source.GetGates(ctx)
	if err != nil {
		return fmt.Errorf("fetch gates: %w", err)
	}

	var added int
	for _, g := range gates {
		if g.ID == "" {
			continue
		}
		w.mu.Lock()
		_, seen := w.gates[g.ID]
		w.gates[g.ID] = g
		w.mu.Unlock()

		if !seen {
			w.subs.Subscribe(g.ID)
			added++
		}
	}
	if added > 0 {
		w.logger.Info("subscribed to gates", "added", added, "total", len(w.Gates()))
	}

	zones, err := w.source.GetParkingState(ctx)
	if err != nil {
		return fmt.Errorf("fetch parking state: %w", err)
	}

	w.mu.Lock()
	w.report = Report{Zones: zones, FetchedAt: w.now()}
	w.mu.Unlock()

	return nil
}

// Entries returns the audit log, newest first.
func (w *Watcher) Entries() []model.AuditEntry {
	return w.buf.Entries()
}

// Gates returns every gate the watcher knows about.
func (w *Watcher) Gates() []model.Gate {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]model.Gate, 0, len(w.gates))
	for _, g := range w.gates {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Report returns the latest parking-state report.
func (w *Watcher) Report() Report {
	w.mu.Lock()
	defer w.mu.Unlock()

	r := w.report
	r.Zones = append([]model.ZoneReport(nil), r.Zones...)
	return r
}
