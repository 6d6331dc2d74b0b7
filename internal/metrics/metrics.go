package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/parkwatch/internal/connection"
)

const namespace = "parkwatch"

var states = []connection.State{
	connection.StateDisconnected,
	connection.StateConnecting,
	connection.StateConnected,
	connection.StateReconnecting,
}

// Metrics holds the hook-driven collectors.
type Metrics struct {
	ConnectionState  *prometheus.GaugeVec
	ReconnectAttempt prometheus.Gauge
	Transitions      *prometheus.CounterVec
	AuditBufferLen   prometheus.Gauge
	SnapshotWrites   *prometheus.CounterVec
	Refreshes        *prometheus.CounterVec
}

// New creates the collectors and registers them on reg (or the default
// registerer if nil). Collectors already registered are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		ConnectionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "1 for the current stream connection state, 0 otherwise",
		}, []string{"state"}),
		ReconnectAttempt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconnect_attempt",
			Help:      "Current reconnect attempt, 0 when not reconnecting",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_transitions_total",
			Help:      "Stream connection state transitions by target state",
		}, []string{"state"}),
		AuditBufferLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "audit_buffer_entries",
			Help:      "Entries held in the audit buffer",
		}),
		SnapshotWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_writes_total",
			Help:      "Zone snapshot writes by result",
		}, []string{"result"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Read model refreshes by name and result",
		}, []string{"name", "result"}),
	}

	var err error
	m.ConnectionState, err = register(reg, m.ConnectionState)
	if err != nil {
		return nil, err
	}
	m.ReconnectAttempt, err = register(reg, m.ReconnectAttempt)
	if err != nil {
		return nil, err
	}
	m.Transitions, err = register(reg, m.Transitions)
	if err != nil {
		return nil, err
	}
	m.AuditBufferLen, err = register(reg, m.AuditBufferLen)
	if err != nil {
		return nil, err
	}
	m.SnapshotWrites, err = register(reg, m.SnapshotWrites)
	if err != nil {
		return nil, err
	}
	m.Refreshes, err = register(reg, m.Refreshes)
	if err != nil {
		return nil, err
	}

	m.ObserveStatus(connection.Status{State: connection.StateDisconnected})
	return m, nil
}

// ObserveStatus records a connection status transition.
func (m *Metrics) ObserveStatus(s connection.Status) {
	for _, st := range states {
		v := 0.0
		if st == s.State {
			v = 1
		}
		m.ConnectionState.WithLabelValues(st.String()).Set(v)
	}
	m.ReconnectAttempt.Set(float64(s.Attempt))
	m.Transitions.WithLabelValues(s.State.String()).Inc()
}

// ObserveAuditLen records the audit buffer length.
func (m *Metrics) ObserveAuditLen(n int) {
	m.AuditBufferLen.Set(float64(n))
}

// ObserveSnapshot records the result of a snapshot write.
func (m *Metrics) ObserveSnapshot(err error) {
	m.SnapshotWrites.WithLabelValues(result(err)).Inc()
}

// ObserveRefresh records the result of a read model refresh.
func (m *Metrics) ObserveRefresh(name string, err error) {
	m.Refreshes.WithLabelValues(name, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}

// register registers c, returning the existing collector on duplicates.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}
