package connection

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrClosed          = errors.New("connection manager disconnected")
)

// State is the lifecycle state of the managed connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Status is a point-in-time view of the connection. Attempt is only set
// while Reconnecting and counts from 1.
type Status struct {
	State   State
	Attempt int
}

func (s Status) String() string {
	if s.State == StateReconnecting {
		return fmt.Sprintf("reconnecting (attempt %d)", s.Attempt)
	}
	return s.State.String()
}

// Label is the short status text shown next to live or cached data.
func (s Status) Label() string {
	if s.State == StateConnected {
		return "Connected"
	}
	return "Disconnected"
}

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// RawMessage is a message from the Connection Manager to the Message Dispatcher.
type RawMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	SessionID  uuid.UUID // Connection session that delivered the frame
	ReceivedAt time.Time // Local timestamp when WS Client received message
}

// MessageHandler consumes inbound frames. HandleMessage is called from a
// single goroutine per session, in arrival order. Clear drops every
// registered listener and is called by Manager.Disconnect.
type MessageHandler interface {
	HandleMessage(msg RawMessage)
	Clear()
}

// Outbound frame types.
const (
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
)

// Command is an outbound frame.
type Command struct {
	Type    string      `json:"type"`
	Payload GatePayload `json:"payload"`
}

// GatePayload is the payload of subscribe and unsubscribe frames.
type GatePayload struct {
	GateID string `json:"gateId"`
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // WebSocket URL (e.g., ws://localhost:3000/api/v1/ws)
	Token            string        // Bearer token (empty = anonymous)
	UserAgent        string        // User-Agent header
	HandshakeTimeout time.Duration // Dial handshake timeout
	PingInterval     time.Duration // Keepalive ping interval
	PingTimeout      time.Duration // Max time without ping/pong before considering connection stale
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      90 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1024,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	Client  ClientConfig
	Backoff BackoffConfig
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Client:  DefaultClientConfig(),
		Backoff: DefaultBackoffConfig(),
	}
}
