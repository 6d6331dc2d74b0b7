// Package audit keeps the live administrative audit log: a bounded,
// newest-first buffer of admin-update events and the watcher that feeds it.
package audit

import (
	"sync"

	"github.com/rickgao/parkwatch/internal/model"
)

// DefaultCapacity is the number of entries the audit log retains.
const DefaultCapacity = 50

// Buffer is a fixed-capacity ring of audit entries. Push evicts the oldest
// entry once full; Entries returns newest first.
type Buffer struct {
	mu       sync.RWMutex
	buf      []model.AuditEntry
	tail     int // next write position
	count    int
	capacity int

	// Stats
	totalReceived int64
	evicted       int64
}

// BufferStats contains buffer statistics.
type BufferStats struct {
	Len           int
	Capacity      int
	TotalReceived int64
	Evicted       int64
}

// NewBuffer creates a buffer holding at most capacity entries.
// A capacity below 1 uses DefaultCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		buf:      make([]model.AuditEntry, capacity),
		capacity: capacity,
	}
}

// Push adds e as the newest entry.
func (b *Buffer) Push(e model.AuditEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf[b.tail] = e
	b.tail = (b.tail + 1) % b.capacity
	b.totalReceived++

	if b.count == b.capacity {
		b.evicted++
		return
	}
	b.count++
}

// Entries returns a copy of the retained entries, newest first.
func (b *Buffer) Entries() []model.AuditEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]model.AuditEntry, b.count)
	for i := 0; i < b.count; i++ {
		idx := (b.tail - 1 - i + b.capacity) % b.capacity
		out[i] = b.buf[idx]
	}
	return out
}

// Len returns the number of retained entries.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Clear drops every entry. Stats counters are kept.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = make([]model.AuditEntry, b.capacity)
	b.tail = 0
	b.count = 0
}

// Stats returns current buffer statistics.
func (b *Buffer) Stats() BufferStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return BufferStats{
		Len:           b.count,
		Capacity:      b.capacity,
		TotalReceived: b.totalReceived,
		Evicted:       b.evicted,
	}
}
