package router

import (
	"errors"
	"time"

	"github.com/rickgao/parkwatch/internal/model"
)

// Errors
var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownKind    = errors.New("unknown event kind")
)

// EventKind is the wire "type" of an inbound frame.
type EventKind string

const (
	KindZoneUpdate  EventKind = "zone-update"
	KindAdminUpdate EventKind = "admin-update"
)

// Event is an inbound stream event. The set of implementations is closed:
// ZoneUpdate and AdminUpdate.
type Event interface {
	Kind() EventKind
	isEvent()
}

// ZoneUpdate carries the full new state of one zone.
type ZoneUpdate struct {
	Zone       model.ZoneState
	ReceivedAt time.Time
}

func (ZoneUpdate) Kind() EventKind { return KindZoneUpdate }
func (ZoneUpdate) isEvent()        {}

// AdminUpdate carries one administrative audit entry.
type AdminUpdate struct {
	Entry      model.AuditEntry
	ReceivedAt time.Time
}

func (AdminUpdate) Kind() EventKind { return KindAdminUpdate }
func (AdminUpdate) isEvent()        {}

// ListenerID identifies a registered listener for removal.
type ListenerID uint64

// DispatcherStats contains runtime statistics.
type DispatcherStats struct {
	MessagesReceived int64
	EventsDispatched int64
	ParseErrors      int64
	UnknownMessages  int64
	ListenerPanics   int64
	ZoneListeners    int
	AdminListeners   int
}
