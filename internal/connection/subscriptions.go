package connection

import (
	"sort"
	"sync"
)

// Subscriptions is the set of gates the client wants events for. It
// survives reconnects and is cleared only by Manager.Disconnect.
type Subscriptions struct {
	mu    sync.RWMutex
	gates map[string]struct{}
}

// NewSubscriptions creates an empty registry.
func NewSubscriptions() *Subscriptions {
	return &Subscriptions{gates: make(map[string]struct{})}
}

// Add records gateID. Returns false if it was already present.
func (s *Subscriptions) Add(gateID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.gates[gateID]; ok {
		return false
	}
	s.gates[gateID] = struct{}{}
	return true
}

// Remove forgets gateID. Returns false if it was not present.
func (s *Subscriptions) Remove(gateID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.gates[gateID]; !ok {
		return false
	}
	delete(s.gates, gateID)
	return true
}

// Has reports membership.
func (s *Subscriptions) Has(gateID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.gates[gateID]
	return ok
}

// Topics returns the members in sorted order.
func (s *Subscriptions) Topics() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.gates))
	for g := range s.gates {
		out = append(out, g)
	}
	s.mu.RUnlock()

	sort.Strings(out)
	return out
}

// Len returns the number of members.
func (s *Subscriptions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.gates)
}

// Clear removes every member.
func (s *Subscriptions) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gates = make(map[string]struct{})
}
