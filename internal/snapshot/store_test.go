package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/parkwatch/internal/config"
	"github.com/rickgao/parkwatch/internal/model"
)

func sampleZones() []model.ZoneState {
	return []model.ZoneState{
		{ZoneID: "zone_a", Name: "Zone A", GateIDs: []string{"gate_1"}, TotalSlots: 50, Occupied: 12, Free: 38, Open: true, RateNormal: 5},
		{ZoneID: "zone_b", Name: "Zone B", GateIDs: []string{"gate_1", "gate_2"}, TotalSlots: 20, Free: 20, RateSpecial: 7.5},
	}
}

// runStoreContract exercises behavior every backend must share.
func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	gate := "gate_" + time.Now().Format("150405.000000")

	_, err := store.Load(ctx, gate)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, gate, sampleZones()))

	got, err := store.Load(ctx, gate)
	require.NoError(t, err)
	assert.Equal(t, sampleZones(), got)

	// Save replaces wholesale.
	updated := []model.ZoneState{{ZoneID: "zone_a", Occupied: 13, Free: 37}}
	require.NoError(t, store.Save(ctx, gate, updated))

	got, err = store.Load(ctx, gate)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	// Gates are independent.
	_, err = store.Load(ctx, gate+"_other")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "zones_gate_1", Key("gate_1"))
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "snapshots"))
	require.NoError(t, err)
	defer store.Close()

	runStoreContract(t, store)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, "gate_1", sampleZones()))

	second, err := NewFileStore(dir)
	require.NoError(t, err)
	got, err := second.Load(ctx, "gate_1")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// No temp files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "zones_gate_1.json", entries[0].Name())
}

func TestFileStore_EscapesGateID(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), "../north/1", sampleZones()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got, err := store.Load(context.Background(), "../north/1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFileStore_Corrupt(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "zones_gate_1.json"), []byte("{not json"), 0o644))

	_, err = store.Load(context.Background(), "gate_1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()

	runStoreContract(t, store)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore(10 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "gate_1", sampleZones()))
	time.Sleep(30 * time.Millisecond)

	_, err := store.Load(ctx, "gate_1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_EmptyList(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "gate_1", nil))
	got, err := store.Load(ctx, "gate_1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, config.SnapshotConfig{Backend: "file", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	store, err = Open(ctx, config.SnapshotConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	_, err = Open(ctx, config.SnapshotConfig{Backend: "etcd"})
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("PARKWATCH_TEST_REDIS")
	if addr == "" {
		t.Skip("PARKWATCH_TEST_REDIS not set")
	}

	store, err := NewRedisStore(context.Background(), config.RedisConfig{
		Addr:      addr,
		KeyPrefix: "parkwatch-test:",
		TTL:       time.Minute,
	})
	require.NoError(t, err)
	defer store.Close()

	runStoreContract(t, store)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("PARKWATCH_TEST_POSTGRES")
	if dsn == "" {
		t.Skip("PARKWATCH_TEST_POSTGRES not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))

	store, err := NewPostgresStore(ctx, pool)
	require.NoError(t, err)
	defer store.Close()

	runStoreContract(t, store)
}

func TestOpen_PostgresUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Open(ctx, config.SnapshotConfig{
		Backend: "postgres",
		Postgres: config.DBConfig{
			Host: "127.0.0.1", Port: 1, Name: "x", User: "x", SSLMode: "disable",
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect postgres")
}
