package zones

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/parkwatch/internal/connection"
	"github.com/rickgao/parkwatch/internal/model"
	"github.com/rickgao/parkwatch/internal/router"
	"github.com/rickgao/parkwatch/internal/snapshot"
)

// ErrClosed is returned by Start after Close.
var ErrClosed = errors.New("synchronizer closed")

// ZoneSource is the request/response collaborator used to seed a gate.
type ZoneSource interface {
	GetZones(ctx context.Context, gateID string) ([]model.ZoneState, error)
	GetCategories(ctx context.Context) ([]model.Category, error)
}

// Connection is the part of the Connection Manager the synchronizer uses.
type Connection interface {
	Subscribe(gateID string)
	Unsubscribe(gateID string)
	Status() connection.Status
}

// Listeners is the part of the dispatcher the synchronizer registers with.
type Listeners interface {
	OnZoneUpdate(fn func(router.ZoneUpdate)) router.ListenerID
	RemoveListener(kind router.EventKind, id router.ListenerID) bool
}

// Source says where the zones of a View came from.
type Source string

const (
	SourceLive     Source = "live"     // connected, cache is current
	SourceCache    Source = "cache"    // disconnected, last in-memory list
	SourceSnapshot Source = "snapshot" // disconnected, loaded from the store
	SourceEmpty    Source = "empty"    // disconnected, nothing known
)

// View is what a gate terminal displays.
type View struct {
	GateID string            `json:"gateId"`
	Zones  []model.ZoneState `json:"zones"`
	Live   bool              `json:"live"`
	Source Source            `json:"source"`

	Connection string            `json:"connection"` // status indicator label
	Attempt    int               `json:"attempt,omitempty"`
	Status     connection.Status `json:"-"`
}

// SyncConfig configures a Synchronizer.
type SyncConfig struct {
	GateID      string
	SaveTimeout time.Duration // Per snapshot write
}

// Synchronizer keeps one gate's zone list current.
type Synchronizer struct {
	cfg       SyncConfig
	cache     *Cache
	source    ZoneSource
	store     snapshot.Store
	conn      Connection
	listeners Listeners
	logger    *slog.Logger

	// OnSnapshotSaved, when set, observes the result of every snapshot write.
	OnSnapshotSaved func(err error)

	mu         sync.Mutex
	listenerID router.ListenerID
	started    bool
	closed     bool

	// Background snapshot writer, latest value wins.
	wmu     sync.Mutex
	latest  []model.ZoneState
	dirty   bool
	kick    chan struct{}
	stop    chan struct{}
	wg      sync.WaitGroup
	saves   atomic.Int64
	failure atomic.Int64
}

// NewSynchronizer creates a synchronizer for cfg.GateID.
func NewSynchronizer(cfg SyncConfig, cache *Cache, source ZoneSource, store snapshot.Store, conn Connection, listeners Listeners, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = 5 * time.Second
	}
	return &Synchronizer{
		cfg:       cfg,
		cache:     cache,
		source:    source,
		store:     store,
		conn:      conn,
		listeners: listeners,
		logger:    logger.With("gate_id", cfg.GateID),
		kick:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}
}

// GateID returns the gate this synchronizer serves.
func (s *Synchronizer) GateID() string {
	return s.cfg.GateID
}

// Name identifies the synchronizer for the poller.
func (s *Synchronizer) Name() string {
	return "zones:" + s.cfg.GateID
}

// Start registers the zone listener, subscribes to the gate and seeds it.
// A closed Synchronizer cannot be started again.
// A failed seed is returned but the synchronizer keeps running: live
// updates still merge and offline reads fall back to the snapshot.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if !s.started {
		s.started = true
		s.listenerID = s.listeners.OnZoneUpdate(s.HandleZoneUpdate)
		s.wg.Add(1)
		go s.writeLoop()
	}
	s.mu.Unlock()

	s.conn.Subscribe(s.cfg.GateID)

	return s.Refresh(ctx)
}

// Close unsubscribes, deregisters the listener and flushes any pending
// snapshot.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if !s.started || s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.listeners.RemoveListener(router.KindZoneUpdate, s.listenerID)
	s.conn.Unsubscribe(s.cfg.GateID)

	close(s.stop)
	s.wg.Wait()
}

// Refresh reloads the gate's zones and the category rate cards from the API.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	zones, err := s.source.GetZones(ctx, s.cfg.GateID)
	if err != nil {
		return fmt.Errorf("fetch zones for gate %s: %w", s.cfg.GateID, err)
	}
	s.Seed(zones)

	categories, err := s.source.GetCategories(ctx)
	if err != nil {
		return fmt.Errorf("fetch categories: %w", err)
	}
	s.cache.SetCategories(categories)

	return nil
}

// Seed replaces the gate's list with an online read. A non-empty list is
// persisted as the offline snapshot.
func (s *Synchronizer) Seed(zones []model.ZoneState) {
	s.cache.SetGateZones(s.cfg.GateID, zones)
	s.logger.Debug("gate seeded", "zones", len(zones))

	if len(zones) > 0 {
		s.queueSnapshot()
	}
}

// HandleZoneUpdate merges a pushed zone state.
func (s *Synchronizer) HandleZoneUpdate(e router.ZoneUpdate) {
	if !s.cache.MergeGate(s.cfg.GateID, e.Zone) {
		return
	}
	s.queueSnapshot()
}

// View returns the zones to display. While connected it is the live cache;
// otherwise the in-memory list, falling back to the durable snapshot.
func (s *Synchronizer) View(ctx context.Context) View {
	st := s.conn.Status()
	v := View{
		GateID:     s.cfg.GateID,
		Connection: st.Label(),
		Attempt:    st.Attempt,
		Status:     st,
	}

	zones, _ := s.cache.GateZones(s.cfg.GateID)

	if st.State == connection.StateConnected {
		v.Live = true
		v.Source = SourceLive
		v.Zones = nonNil(zones)
		return v
	}

	if len(zones) > 0 {
		v.Source = SourceCache
		v.Zones = zones
		return v
	}

	saved, err := s.store.Load(ctx, s.cfg.GateID)
	switch {
	case err == nil && len(saved) > 0:
		v.Source = SourceSnapshot
		v.Zones = saved
		return v
	case err != nil && !errors.Is(err, snapshot.ErrNotFound):
		s.logger.Warn("failed to load cached zones", "error", err)
	}

	v.Source = SourceEmpty
	v.Zones = []model.ZoneState{}
	return v
}

// SnapshotStats returns the number of successful and failed snapshot writes.
func (s *Synchronizer) SnapshotStats() (saved, failed int64) {
	return s.saves.Load(), s.failure.Load()
}

func (s *Synchronizer) queueSnapshot() {
	zones, ok := s.cache.GateZones(s.cfg.GateID)
	if !ok || len(zones) == 0 {
		return
	}

	s.wmu.Lock()
	s.latest = zones
	s.dirty = true
	s.wmu.Unlock()

	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Synchronizer) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.kick:
			s.flush()
		case <-s.stop:
			s.flush()
			return
		}
	}
}

func (s *Synchronizer) flush() {
	s.wmu.Lock()
	if !s.dirty {
		s.wmu.Unlock()
		return
	}
	zones := s.latest
	s.latest = nil
	s.dirty = false
	s.wmu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SaveTimeout)
	defer cancel()

	err := s.store.Save(ctx, s.cfg.GateID, zones)
	if err != nil {
		s.failure.Add(1)
		s.logger.Warn("failed to save zone snapshot", "zones", len(zones), "error", err)
	} else {
		s.saves.Add(1)
	}

	if s.OnSnapshotSaved != nil {
		s.OnSnapshotSaved(err)
	}
}

func nonNil(zones []model.ZoneState) []model.ZoneState {
	if zones == nil {
		return []model.ZoneState{}
	}
	return zones
}
