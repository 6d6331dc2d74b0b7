// Package snapshot persists the last known zone list per gate so a gate
// terminal can still show something useful while offline.
//
// Backends:
//   - file: one JSON file per gate, written atomically
//   - memory: in-process, github.com/patrickmn/go-cache
//   - redis: shared across terminals, github.com/redis/go-redis/v9
//   - postgres: shared across terminals, github.com/jackc/pgx/v5
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rickgao/parkwatch/internal/model"
)

// ErrNotFound is returned by Load when no snapshot exists for a gate.
var ErrNotFound = errors.New("snapshot not found")

// Store is durable per-gate storage for zone lists.
type Store interface {
	// Load returns the saved zones for gateID or ErrNotFound.
	Load(ctx context.Context, gateID string) ([]model.ZoneState, error)

	// Save replaces the saved zones for gateID.
	Save(ctx context.Context, gateID string, zones []model.ZoneState) error

	// Close releases backend resources.
	Close() error
}

// Key is the storage key for a gate's snapshot.
func Key(gateID string) string {
	return "zones_" + gateID
}

func encode(zones []model.ZoneState) ([]byte, error) {
	if zones == nil {
		zones = []model.ZoneState{}
	}
	data, err := json.Marshal(zones)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func decode(data []byte) ([]model.ZoneState, error) {
	var zones []model.ZoneState
	if err := json.Unmarshal(data, &zones); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return zones, nil
}
