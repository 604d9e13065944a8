package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"
)

func testSnapshot() Snapshot {
	return Snapshot{
		Key:        "workouts:90d",
		Payload:    []byte(`{"volume":1234.5}`),
		ComputedAt: time.Date(2026, 3, 31, 12, 0, 0, 123, time.UTC),
	}
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "nested", "snapshots.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	if _, ok, err := store.Load(ctx, "missing"); err != nil || ok {
		t.Errorf("Load(missing) = %v, %v; want not found", ok, err)
	}

	snap := testSnapshot()
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	snap.Payload = []byte(`{"volume":2000}`)
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, ok, err := store.Load(ctx, snap.Key)
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestRedisStoreLoadMissing(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()
	store := NewRedisStore(db, 0)

	mock.ExpectGet(redisKeyPrefix + "k").SetErr(redis.Nil)
	if _, ok, err := store.Load(context.Background(), "k"); err != nil || ok {
		t.Errorf("Load = %v, %v; want not found", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRedisStoreSaveAndLoad(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()
	store := NewRedisStore(db, 24*time.Hour)
	snap := testSnapshot()

	encoded, err := encodeRedisSnapshot(snap)
	if err != nil {
		t.Fatalf("encodeRedisSnapshot: %v", err)
	}
	mock.ExpectSet(redisKeyPrefix+snap.Key, encoded, 24*time.Hour).SetVal("OK")
	mock.ExpectGet(redisKeyPrefix + snap.Key).SetVal(encoded)

	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok, err := store.Load(context.Background(), snap.Key)
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// TestRedisStoreError verifies transport failures are reported, not treated
// as a miss.
func TestRedisStoreError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()
	store := NewRedisStore(db, 0)

	mock.ExpectGet(redisKeyPrefix + "k").SetErr(errors.New("connection refused"))
	if _, _, err := store.Load(context.Background(), "k"); err == nil {
		t.Error("Load succeeded, want error")
	}
}

type memStore struct {
	snaps   map[string]Snapshot
	loadErr error
	saveErr error
	closed  bool
}

func (m *memStore) Load(_ context.Context, key string) (Snapshot, bool, error) {
	if m.loadErr != nil {
		return Snapshot{}, false, m.loadErr
	}
	s, ok := m.snaps[key]
	return s, ok, nil
}

func (m *memStore) Save(_ context.Context, snap Snapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.snaps == nil {
		m.snaps = map[string]Snapshot{}
	}
	m.snaps[snap.Key] = snap
	return nil
}

func (m *memStore) Close() error {
	m.closed = true
	return nil
}

// TestTieredStoreFallsThrough verifies a failing first tier does not hide a
// snapshot held by the second.
func TestTieredStoreFallsThrough(t *testing.T) {
	snap := testSnapshot()
	broken := &memStore{loadErr: errors.New("redis down"), saveErr: errors.New("redis down")}
	local := &memStore{}
	tiered := TieredStore{broken, local}

	err := tiered.Save(context.Background(), snap)
	if got := len(multierr.Errors(err)); got != 1 {
		t.Errorf("Save errors = %d, want 1 (%v)", got, err)
	}
	if _, ok := local.snaps[snap.Key]; !ok {
		t.Error("second tier did not receive the snapshot")
	}

	got, ok, err := tiered.Load(context.Background(), snap.Key)
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if got.Key != snap.Key {
		t.Errorf("Load key = %s, want %s", got.Key, snap.Key)
	}

	if _, ok, err := tiered.Load(context.Background(), "missing"); ok || err == nil {
		t.Errorf("Load(missing) = %v, %v; want not found with the first tier's error", ok, err)
	}

	if err := tiered.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !broken.closed || !local.closed {
		t.Error("Close did not reach every tier")
	}
}
