package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	"github.com/rickgao/parkwatch/internal/connection"
	"github.com/rickgao/parkwatch/internal/model"
)

type zoneListener struct {
	id ListenerID
	fn func(ZoneUpdate)
}

type adminListener struct {
	id ListenerID
	fn func(AdminUpdate)
}

// Dispatcher decodes frames and notifies typed listeners. It implements
// connection.MessageHandler.
type Dispatcher struct {
	logger *slog.Logger

	mu     sync.RWMutex
	nextID ListenerID
	zone   []zoneListener
	admin  []adminListener

	received   atomic.Int64
	dispatched atomic.Int64
	parseErrs  atomic.Int64
	unknown    atomic.Int64
	panics     atomic.Int64
}

var _ connection.MessageHandler = (*Dispatcher)(nil)

// NewDispatcher creates a Message Dispatcher with no listeners.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger}
}

// Decode parses one frame. Errors wrap ErrMalformedFrame or ErrUnknownKind.
func Decode(data []byte, receivedAt time.Time) (Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformedFrame)
	}

	typ := gjson.GetBytes(data, "type")
	if typ.Type != gjson.String {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	payload := gjson.GetBytes(data, "payload")

	switch kind := EventKind(typ.Str); kind {
	case KindZoneUpdate:
		if !payload.IsObject() {
			return nil, fmt.Errorf("%w: %s payload is not an object", ErrMalformedFrame, kind)
		}
		var zone model.ZoneState
		if err := json.Unmarshal([]byte(payload.Raw), &zone); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFrame, kind, err)
		}
		if zone.ZoneID == "" {
			return nil, fmt.Errorf("%w: %s without zone id", ErrMalformedFrame, kind)
		}
		return ZoneUpdate{Zone: zone, ReceivedAt: receivedAt}, nil

	case KindAdminUpdate:
		if !payload.IsObject() {
			return nil, fmt.Errorf("%w: %s payload is not an object", ErrMalformedFrame, kind)
		}
		var entry model.AuditEntry
		if err := json.Unmarshal([]byte(payload.Raw), &entry); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFrame, kind, err)
		}
		return AdminUpdate{Entry: entry, ReceivedAt: receivedAt}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, typ.Str)
	}
}

// HandleMessage decodes raw and dispatches the event. Undecodable frames are
// counted, logged and dropped.
func (d *Dispatcher) HandleMessage(raw connection.RawMessage) {
	d.received.Add(1)

	ev, err := Decode(raw.Data, raw.ReceivedAt)
	if err != nil {
		if errors.Is(err, ErrUnknownKind) {
			d.unknown.Add(1)
			d.logger.Debug("skipping message type", "error", err)
			return
		}
		d.parseErrs.Add(1)
		d.logger.Warn("failed to decode frame", "error", err, "size", len(raw.Data))
		return
	}

	d.Dispatch(ev)
}

// Dispatch delivers ev to every listener of its kind in registration order.
func (d *Dispatcher) Dispatch(ev Event) {
	switch e := ev.(type) {
	case ZoneUpdate:
		d.mu.RLock()
		listeners := append([]zoneListener(nil), d.zone...)
		d.mu.RUnlock()

		for _, l := range listeners {
			d.invoke(KindZoneUpdate, l.id, func() { l.fn(e) })
		}

	case AdminUpdate:
		d.mu.RLock()
		listeners := append([]adminListener(nil), d.admin...)
		d.mu.RUnlock()

		for _, l := range listeners {
			d.invoke(KindAdminUpdate, l.id, func() { l.fn(e) })
		}
	}

	d.dispatched.Add(1)
}

func (d *Dispatcher) invoke(kind EventKind, id ListenerID, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.panics.Add(1)
			d.logger.Error("listener panicked",
				"kind", string(kind),
				"listener", uint64(id),
				"panic", fmt.Sprint(r),
			)
		}
	}()
	fn()
}

// OnZoneUpdate registers fn for zone-update events.
func (d *Dispatcher) OnZoneUpdate(fn func(ZoneUpdate)) ListenerID {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.zone = append(d.zone, zoneListener{id: d.nextID, fn: fn})
	return d.nextID
}

// OnAdminUpdate registers fn for admin-update events.
func (d *Dispatcher) OnAdminUpdate(fn func(AdminUpdate)) ListenerID {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.admin = append(d.admin, adminListener{id: d.nextID, fn: fn})
	return d.nextID
}

// RemoveListener deregisters id. Returns false if no such listener exists.
func (d *Dispatcher) RemoveListener(kind EventKind, id ListenerID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch kind {
	case KindZoneUpdate:
		for i, l := range d.zone {
			if l.id == id {
				d.zone = append(d.zone[:i:i], d.zone[i+1:]...)
				return true
			}
		}
	case KindAdminUpdate:
		for i, l := range d.admin {
			if l.id == id {
				d.admin = append(d.admin[:i:i], d.admin[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Clear removes every listener.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.zone = nil
	d.admin = nil
}

// Stats returns current statistics.
func (d *Dispatcher) Stats() DispatcherStats {
	d.mu.RLock()
	zones, admins := len(d.zone), len(d.admin)
	d.mu.RUnlock()

	return DispatcherStats{
		MessagesReceived: d.received.Load(),
		EventsDispatched: d.dispatched.Load(),
		ParseErrors:      d.parseErrs.Load(),
		UnknownMessages:  d.unknown.Load(),
		ListenerPanics:   d.panics.Load(),
		ZoneListeners:    zones,
		AdminListeners:   admins,
	}
}
