package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/parkwatch/internal/api"
	"github.com/rickgao/parkwatch/internal/audit"
	"github.com/rickgao/parkwatch/internal/config"
	"github.com/rickgao/parkwatch/internal/connection"
	"github.com/rickgao/parkwatch/internal/metrics"
	"github.com/rickgao/parkwatch/internal/poller"
	"github.com/rickgao/parkwatch/internal/router"
	"github.com/rickgao/parkwatch/internal/snapshot"
	"github.com/rickgao/parkwatch/internal/status"
	"github.com/rickgao/parkwatch/internal/version"
	"github.com/rickgao/parkwatch/internal/zones"
)

const shutdownTimeout = 10 * time.Second

// app holds the components shared by the gate and audit surfaces.
type app struct {
	ctx    context.Context
	stop   context.CancelFunc
	cfg    *config.Config
	logger *slog.Logger

	api        *api.Client
	dispatcher *router.Dispatcher
	manager    connection.Manager
	metrics    *metrics.Metrics
	sources    metrics.Sources
}

func setup(parent context.Context, opts *options, logOut io.Writer) (*app, error) {
	if parent == nil {
		parent = context.Background()
	}

	if err := config.LoadEnvFile(opts.envFile); err != nil {
		return nil, err
	}

	logger, err := newLogger(logOut, opts.logLevel, opts.logFormat)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	logger.Info("starting parkwatch",
		"version", version.Version,
		"commit", version.Commit,
		"config", opts.configPath,
	)

	cfg, err := config.LoadAndValidate(opts.configPath)
	if err != nil {
		return nil, err
	}
	logger = logger.With("instance_id", cfg.Instance.ID)

	logger.Info("configuration loaded",
		"api_url", cfg.API.BaseURL,
		"stream_url", cfg.Stream.URL,
		"snapshot_backend", cfg.Snapshot.Backend,
	)

	m, err := metrics.New(nil)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}

	a.api = api.NewClient(
		cfg.API.BaseURL,
		cfg.API.Token,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
	)

	a.dispatcher = router.NewDispatcher(logger)
	a.manager = connection.NewManager(connection.ManagerConfig{
		Client: connection.ClientConfig{
			URL:              cfg.Stream.URL,
			Token:            cfg.API.Token,
			UserAgent:        version.UserAgent(),
			HandshakeTimeout: cfg.Stream.HandshakeTimeout,
			PingInterval:     cfg.Stream.PingInterval,
			PingTimeout:      cfg.Stream.PingTimeout,
			WriteTimeout:     cfg.Stream.WriteTimeout,
			BufferSize:       cfg.Stream.BufferSize,
		},
		Backoff: connection.BackoffConfig{
			BaseDelay:   cfg.Reconnect.BaseDelay,
			MaxDelay:    cfg.Reconnect.MaxDelay,
			MaxAttempts: cfg.Reconnect.MaxAttempts,
		},
	}, a.dispatcher, logger)

	a.manager.OnStateChange(m.ObserveStatus)
	a.manager.OnStateChange(func(s connection.Status) {
		logger.Info("connection status", "status", s.String(), "label", s.Label())
	})

	a.sources = metrics.Sources{
		Connection: a.manager.Stats,
		Dispatcher: a.dispatcher.Stats,
	}

	a.ctx, a.stop = signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	return a, nil
}

func (a *app) openStore() (snapshot.Store, error) {
	store, err := snapshot.Open(a.ctx, a.cfg.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	if pg, ok := store.(*snapshot.PostgresStore); ok {
		a.sources.Pool = pg.Pool
	}
	return store, nil
}

// connect dials the stream. A failed first attempt is not fatal: the
// manager keeps retrying and the surfaces serve offline data meanwhile.
func (a *app) connect() {
	if err := a.manager.Connect(a.ctx); err != nil {
		a.logger.Warn("initial stream connect failed, retrying in background", "error", err)
	}
}

func (a *app) runGate() error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	cache := zones.NewCache()
	syncer := zones.NewSynchronizer(zones.SyncConfig{GateID: a.cfg.Gate.ID}, cache, a.api, store, a.manager, a.dispatcher, a.logger)
	syncer.OnSnapshotSaved = a.metrics.ObserveSnapshot

	// Subscribing before the first connect lets replay carry the gate.
	if err := syncer.Start(a.ctx); err != nil {
		a.logger.Warn("initial zone seed failed", "gate_id", a.cfg.Gate.ID, "error", err)
	}
	a.connect()

	return a.serve([]poller.Refresher{syncer}, status.Deps{
		Connection: a.manager,
		Gates:      []status.ZoneViewer{syncer},
	}, syncer.Close)
}

func (a *app) runAudit() error {
	buf := audit.NewBuffer(a.cfg.Audit.Capacity)
	w := audit.NewWatcher(a.api, a.manager, a.dispatcher, buf, a.logger)
	w.OnAppend = a.metrics.ObserveAuditLen
	a.sources.Audit = buf.Stats

	if err := w.Start(a.ctx); err != nil {
		a.logger.Warn("initial gate list fetch failed", "error", err)
	}
	a.connect()

	return a.serve([]poller.Refresher{w}, status.Deps{
		Connection: a.manager,
		Audit:      w,
	}, w.Close)
}

// serve runs the poller and status API until a shutdown signal, then tears
// everything down in reverse order.
func (a *app) serve(refreshers []poller.Refresher, deps status.Deps, closeSurface func()) error {
	if err := metrics.NewStatsCollector(a.sources).Register(nil); err != nil {
		return fmt.Errorf("register stats collector: %w", err)
	}

	p := poller.New(poller.Config{
		Interval:    a.cfg.Poller.Interval,
		Concurrency: a.cfg.Poller.Concurrency,
		Timeout:     a.cfg.Poller.Timeout,
	}, refreshers, a.logger)
	p.OnRefresh = a.metrics.ObserveRefresh
	if err := p.Start(a.ctx); err != nil {
		return err
	}

	srv := status.New(a.cfg.Status.Port, deps, a.logger)
	srv.Start()

	a.logger.Info("parkwatch running",
		"status_url", fmt.Sprintf("http://localhost:%d/health", a.cfg.Status.Port),
	)

	<-a.ctx.Done()
	a.logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		a.logger.Warn("status server shutdown", "error", err)
	}
	if err := p.Stop(ctx); err != nil {
		a.logger.Warn("poller shutdown", "error", err)
	}
	closeSurface()
	if err := a.manager.Stop(ctx); err != nil {
		a.logger.Warn("connection shutdown", "error", err)
	}

	a.logger.Info("parkwatch stopped")
	return nil
}
