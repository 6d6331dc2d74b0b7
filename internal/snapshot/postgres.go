package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/parkwatch/internal/database"
	"github.com/rickgao/parkwatch/internal/model"
)

const schema = `CREATE TABLE IF NOT EXISTS zone_snapshots (
	key        TEXT PRIMARY KEY,
	body       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertSnapshot = `INSERT INTO zone_snapshots (key, body, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`

const selectSnapshot = `SELECT body FROM zone_snapshots WHERE key = $1`

// PostgresStore keeps snapshots in a zone_snapshots table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates the table if missing. The store takes ownership
// of pool and closes it on Close.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if err := database.Exec(ctx, pool, schema); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Load reads the gate's snapshot row.
func (s *PostgresStore) Load(ctx context.Context, gateID string) ([]model.ZoneState, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, selectSnapshot, Key(gateID)).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select snapshot: %w", err)
	}
	return decode(body)
}

// Save upserts the gate's snapshot row.
func (s *PostgresStore) Save(ctx context.Context, gateID string, zones []model.ZoneState) error {
	data, err := encode(zones)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, upsertSnapshot, Key(gateID), data); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// Pool exposes the underlying pool for stats collection.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
