package snapshot

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/rickgao/parkwatch/internal/model"
)

// MemoryStore keeps snapshots in process memory. Entries expire after ttl;
// a ttl of zero keeps them forever.
type MemoryStore struct {
	c *gocache.Cache
}

// NewMemoryStore creates an in-process store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &MemoryStore{c: gocache.New(ttl, time.Minute)}
}

// Load returns a copy of the stored zones.
func (s *MemoryStore) Load(ctx context.Context, gateID string) ([]model.ZoneState, error) {
	v, ok := s.c.Get(Key(gateID))
	if !ok {
		return nil, ErrNotFound
	}
	data, _ := v.([]byte)
	return decode(data)
}

// Save stores an encoded copy of zones.
func (s *MemoryStore) Save(ctx context.Context, gateID string, zones []model.ZoneState) error {
	data, err := encode(zones)
	if err != nil {
		return err
	}
	s.c.Set(Key(gateID), data, gocache.DefaultExpiration)
	return nil
}

// Close drops every entry.
func (s *MemoryStore) Close() error {
	s.c.Flush()
	return nil
}
