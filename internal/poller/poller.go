package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Refresher is a read model that can be re-fetched from the REST API.
type Refresher interface {
	Name() string
	Refresh(ctx context.Context) error
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc struct {
	ID string
	Fn func(ctx context.Context) error
}

func (f RefresherFunc) Name() string                      { return f.ID }
func (f RefresherFunc) Refresh(ctx context.Context) error { return f.Fn(ctx) }

// Config holds poller configuration.
type Config struct {
	Interval    time.Duration // Poll interval (default: 30s)
	Concurrency int           // Max concurrent refreshes (default: 4)
	Timeout     time.Duration // Per-refresh timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    30 * time.Second,
		Concurrency: 4,
		Timeout:     10 * time.Second,
	}
}

// Stats are cumulative poller counters.
type Stats struct {
	Cycles    int64
	Refreshed int64
	Failed    int64
	LastCycle time.Time
}

// Poller periodically refreshes a fixed set of read models.
type Poller struct {
	cfg        Config
	refreshers []Refresher
	logger     *slog.Logger

	// OnRefresh is called after each refresh with its outcome. Optional.
	OnRefresh func(name string, err error)

	cycles    atomic.Int64
	refreshed atomic.Int64
	failed    atomic.Int64
	lastCycle atomic.Int64 // unix nanos

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, refreshers []Refresher, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Poller{
		cfg:        cfg,
		refreshers: refreshers,
		logger:     logger,
	}
}

// Start begins the polling loop. The first cycle runs after one interval;
// components fetch their initial state in their own Start.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("read model poller started",
		"interval", p.cfg.Interval,
		"concurrency", p.cfg.Concurrency,
		"refreshers", len(p.refreshers),
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("read model poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of the poller counters.
func (p *Poller) Stats() Stats {
	s := Stats{
		Cycles:    p.cycles.Load(),
		Refreshed: p.refreshed.Load(),
		Failed:    p.failed.Load(),
	}
	if n := p.lastCycle.Load(); n != 0 {
		s.LastCycle = time.Unix(0, n)
	}
	return s
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollAll()
		}
	}
}

// pollAll refreshes every read model with bounded concurrency.
func (p *Poller) pollAll() {
	if len(p.refreshers) == 0 {
		p.logger.Debug("no read models to refresh")
		return
	}

	start := time.Now()
	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	var refreshed, failed atomic.Int64

	for _, r := range p.refreshers {
		if p.ctx.Err() != nil {
			break
		}
		r := r
		g.Go(func() error {
			err := p.refreshOne(r)
			if p.OnRefresh != nil {
				p.OnRefresh(r.Name(), err)
			}
			if err != nil {
				p.logger.Warn("failed to refresh read model",
					"name", r.Name(),
					"error", err,
				)
				failed.Add(1)
				return nil
			}
			refreshed.Add(1)
			return nil
		})
	}

	g.Wait()

	p.cycles.Add(1)
	p.refreshed.Add(refreshed.Load())
	p.failed.Add(failed.Load())
	p.lastCycle.Store(time.Now().UnixNano())

	p.logger.Debug("refresh cycle complete",
		"refreshers", len(p.refreshers),
		"refreshed", refreshed.Load(),
		"failed", failed.Load(),
		"duration", time.Since(start),
	)
}

func (p *Poller) refreshOne(r Refresher) error {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()
	return r.Refresh(ctx)
}
