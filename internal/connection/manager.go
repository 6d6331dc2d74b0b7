package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/rickgao/parkwatch/internal/clock"
)

// Manager owns the single event-stream connection, its reconnection policy
// and the gate subscription set.
type Manager interface {
	// Connect opens the connection. It returns nil immediately while
	// connected; concurrent callers share one attempt.
	Connect(ctx context.Context) error

	// Disconnect closes the connection, cancels pending retries and clears
	// every subscription and listener.
	Disconnect()

	// Stop disconnects and waits for the read loop to exit.
	Stop(ctx context.Context) error

	// Subscribe adds a gate and sends the subscribe frame if connected.
	Subscribe(gateID string)

	// Unsubscribe removes a gate and sends the unsubscribe frame if connected.
	Unsubscribe(gateID string)

	// Topics returns the subscribed gates.
	Topics() []string

	// Status returns the current connection status.
	Status() Status

	// IsConnected reports whether Status().State is Connected.
	IsConnected() bool

	// OnStateChange registers fn to observe every status transition.
	// Observers run while the manager's lock is held and must not call
	// back into the Manager.
	OnStateChange(fn func(Status))

	// Stats returns current connection and subscription statistics.
	Stats() ManagerStats
}

// ManagerStats provides statistics about the connection manager.
type ManagerStats struct {
	State          State
	Attempt        int
	Subscriptions  int
	Sessions       uint64 // Successful connects
	Reconnects     uint64 // Retries scheduled
	Replays        uint64 // Subscribe frames sent during replay
	FramesReceived uint64
	SendErrors     uint64
}

// ClientFactory creates the transport for one session.
type ClientFactory func(cfg ClientConfig, logger *slog.Logger) Client

// Option customizes a Manager.
type Option func(*manager)

// WithClock sets the clock used for reconnect timers.
func WithClock(clk clock.Clock) Option {
	return func(m *manager) { m.clock = clk }
}

// WithClientFactory replaces NewClient.
func WithClientFactory(f ClientFactory) Option {
	return func(m *manager) { m.newClient = f }
}

// manager implements the Manager interface.
type manager struct {
	cfg       ManagerConfig
	handler   MessageHandler
	logger    *slog.Logger
	clock     clock.Clock
	newClient ClientFactory

	backoff *Backoff
	subs    *Subscriptions
	group   singleflight.Group

	mu      sync.Mutex
	state   State
	attempt int
	client  Client
	epoch   uint64 // bumped by Disconnect
	ctx     context.Context
	cancel  context.CancelFunc

	session atomic.Uint64 // current read loop generation

	observers []func(Status)

	wg sync.WaitGroup

	sessions       atomic.Uint64
	reconnects     atomic.Uint64
	replays        atomic.Uint64
	framesReceived atomic.Uint64
	sendErrors     atomic.Uint64
}

// NewManager creates a new Connection Manager. Inbound frames are handed to
// handler in arrival order.
func NewManager(cfg ManagerConfig, handler MessageHandler, logger *slog.Logger, opts ...Option) Manager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &manager{
		cfg:       cfg,
		handler:   handler,
		logger:    logger,
		clock:     clock.Real(),
		newClient: NewClient,
		subs:      NewSubscriptions(),
		state:     StateDisconnected,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.backoff = NewBackoff(cfg.Backoff, m.clock)
	m.ctx, m.cancel = context.WithCancel(context.Background())

	return m
}

// Connect opens the connection.
func (m *manager) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	switch m.state {
	case StateConnected:
		m.mu.Unlock()
		return nil
	case StateDisconnected:
		m.backoff.Reset()
	case StateReconnecting:
		m.backoff.Cancel()
	}
	key := fmt.Sprintf("connect-%d", m.epoch)
	m.mu.Unlock()

	ch := m.group.DoChan(key, func() (any, error) {
		return nil, m.open(ctx)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retry is the reconnection timer callback.
func (m *manager) retry() {
	m.mu.Lock()
	if m.state != StateReconnecting {
		m.mu.Unlock()
		return
	}
	ctx := m.ctx
	key := fmt.Sprintf("connect-%d", m.epoch)
	m.mu.Unlock()

	m.group.Do(key, func() (any, error) {
		return nil, m.open(ctx)
	})
}

// open performs one dial attempt. On success it replays every subscription
// and only then starts dispatching inbound frames.
func (m *manager) open(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateConnected {
		m.mu.Unlock()
		return nil
	}
	epoch := m.epoch
	lifeCtx := m.ctx
	m.setStateLocked(StateConnecting, 0)
	m.mu.Unlock()

	dialCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(lifeCtx, cancel)
	defer stop()
	defer cancel()

	client := m.newClient(m.cfg.Client, m.logger)
	err := client.Connect(dialCtx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		client.Close()
		return ErrClosed
	}

	if err != nil {
		client.Close()
		m.logger.Warn("connect failed", "url", m.cfg.Client.URL, "error", err)
		m.scheduleRetryLocked()
		return fmt.Errorf("connect %s: %w", m.cfg.Client.URL, err)
	}

	m.client = client
	m.backoff.Reset()
	m.sessions.Add(1)
	gen := m.session.Add(1)
	m.setStateLocked(StateConnected, 0)

	m.logger.Info("connected",
		"url", m.cfg.Client.URL,
		"session", client.SessionID().String(),
		"subscriptions", m.subs.Len(),
	)

	m.replayLocked(client)

	m.wg.Add(1)
	go m.readLoop(client, gen)

	return nil
}

// replayLocked resends a subscribe frame for every registered gate.
func (m *manager) replayLocked(client Client) {
	for _, gateID := range m.subs.Topics() {
		if err := m.write(client, Command{Type: FrameSubscribe, Payload: GatePayload{GateID: gateID}}); err != nil {
			m.logger.Warn("replay subscribe failed", "gate_id", gateID, "error", err)
			continue
		}
		m.replays.Add(1)
	}
}

// scheduleRetryLocked hands the closure to the reconnection policy.
func (m *manager) scheduleRetryLocked() {
	attempt, delay, ok := m.backoff.Schedule(m.retry)
	if !ok {
		m.logger.Error("reconnect attempts exhausted", "attempts", attempt)
		m.setStateLocked(StateDisconnected, 0)
		return
	}

	m.reconnects.Add(1)
	m.logger.Info("scheduling reconnect", "attempt", attempt, "delay", delay)
	m.setStateLocked(StateReconnecting, attempt)
}

// readLoop forwards frames of one session to the handler, then reports the
// closure.
func (m *manager) readLoop(client Client, gen uint64) {
	defer m.wg.Done()

	for {
		select {
		case msg := <-client.Messages():
			m.dispatch(client, gen, msg)

		case <-client.Done():
			// Frames read before the failure are still delivered.
			for {
				select {
				case msg := <-client.Messages():
					m.dispatch(client, gen, msg)
					continue
				default:
				}
				break
			}

			var err error
			select {
			case err = <-client.Errors():
			default:
			}
			m.handleClosure(gen, err)
			return
		}
	}
}

func (m *manager) dispatch(client Client, gen uint64, msg TimestampedMessage) {
	if m.session.Load() != gen {
		return
	}
	m.framesReceived.Add(1)

	if m.handler == nil {
		return
	}
	m.handler.HandleMessage(RawMessage{
		Data:       msg.Data,
		SessionID:  client.SessionID(),
		ReceivedAt: msg.ReceivedAt,
	})
}

// handleClosure reacts to an unexpected end of session gen.
func (m *manager) handleClosure(gen uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.Load() != gen || m.state != StateConnected {
		return
	}

	if err == nil {
		err = ErrNotConnected
	}
	m.logger.Warn("connection lost", "error", err)

	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
	m.session.Add(1)
	m.scheduleRetryLocked()
}

// Disconnect tears everything down. A later Connect starts fresh.
func (m *manager) Disconnect() {
	m.mu.Lock()
	m.epoch++
	m.session.Add(1)
	m.cancel()
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.backoff.Reset()
	client := m.client
	m.client = nil
	m.subs.Clear()
	m.setStateLocked(StateDisconnected, 0)
	m.mu.Unlock()

	if m.handler != nil {
		m.handler.Clear()
	}
	if client != nil {
		client.Close()
	}

	m.logger.Info("disconnected")
}

// Stop disconnects and waits for the read loop with a deadline.
func (m *manager) Stop(ctx context.Context) error {
	m.Disconnect()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout, read loop still running")
		return ctx.Err()
	}
}

// Subscribe adds gateID to the registry and sends the frame if connected.
// While disconnected the frame is sent by the next replay.
func (m *manager) Subscribe(gateID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.subs.Add(gateID)
	m.sendLocked(Command{Type: FrameSubscribe, Payload: GatePayload{GateID: gateID}})
}

// Unsubscribe removes gateID from the registry and sends the frame if connected.
func (m *manager) Unsubscribe(gateID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.subs.Remove(gateID)
	m.sendLocked(Command{Type: FrameUnsubscribe, Payload: GatePayload{GateID: gateID}})
}

func (m *manager) sendLocked(cmd Command) {
	if m.state != StateConnected || m.client == nil {
		m.logger.Warn("not connected, frame not sent",
			"type", cmd.Type,
			"gate_id", cmd.Payload.GateID,
		)
		return
	}
	if err := m.write(m.client, cmd); err != nil {
		m.logger.Warn("send failed",
			"type", cmd.Type,
			"gate_id", cmd.Payload.GateID,
			"error", err,
		)
	}
}

func (m *manager) write(client Client, cmd Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		m.sendErrors.Add(1)
		return fmt.Errorf("marshal %s: %w", cmd.Type, err)
	}
	if err := client.Send(data); err != nil {
		m.sendErrors.Add(1)
		return err
	}
	return nil
}

// Topics returns the subscribed gates in sorted order.
func (m *manager) Topics() []string {
	return m.subs.Topics()
}

// Status returns the current connection status.
func (m *manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{State: m.state, Attempt: m.attempt}
}

// IsConnected reports whether the connection is open.
func (m *manager) IsConnected() bool {
	return m.Status().State == StateConnected
}

// OnStateChange registers a status observer.
func (m *manager) OnStateChange(fn func(Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Stats returns current statistics.
func (m *manager) Stats() ManagerStats {
	st := m.Status()
	return ManagerStats{
		State:          st.State,
		Attempt:        st.Attempt,
		Subscriptions:  m.subs.Len(),
		Sessions:       m.sessions.Load(),
		Reconnects:     m.reconnects.Load(),
		Replays:        m.replays.Load(),
		FramesReceived: m.framesReceived.Load(),
		SendErrors:     m.sendErrors.Load(),
	}
}

func (m *manager) setStateLocked(state State, attempt int) {
	if m.state == state && m.attempt == attempt {
		return
	}
	prev := m.state
	m.state = state
	m.attempt = attempt

	st := Status{State: state, Attempt: attempt}
	m.logger.Debug("connection state changed", "from", prev.String(), "to", st.String())

	for _, fn := range m.observers {
		fn(st)
	}
}
