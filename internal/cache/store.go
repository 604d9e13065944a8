package cache

import (
	"context"
	"time"

	"go.uber.org/multierr"
)

// Snapshot is the last good payload for a cache key, persisted so that a
// restart followed by an upstream outage can still serve data.
type Snapshot struct {
	Key        string
	Payload    []byte
	ComputedAt time.Time
}

// SnapshotStore persists snapshots outside the process.
type SnapshotStore interface {
	Load(ctx context.Context, key string) (Snapshot, bool, error)
	Save(ctx context.Context, snap Snapshot) error
	Close() error
}

// TieredStore writes to every store and reads from the first one that has
// the key.
type TieredStore []SnapshotStore

// Load returns the first snapshot found. Errors from earlier tiers are
// returned only when no tier has the key.
func (t TieredStore) Load(ctx context.Context, key string) (Snapshot, bool, error) {
	var errs error
	for _, s := range t {
		snap, ok, err := s.Load(ctx, key)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if ok {
			return snap, true, nil
		}
	}
	return Snapshot{}, false, errs
}

// Save writes the snapshot to all tiers and combines their errors.
func (t TieredStore) Save(ctx context.Context, snap Snapshot) error {
	var errs error
	for _, s := range t {
		errs = multierr.Append(errs, s.Save(ctx, snap))
	}
	return errs
}

// Close closes every tier.
func (t TieredStore) Close() error {
	var errs error
	for _, s := range t {
		errs = multierr.Append(errs, s.Close())
	}
	return errs
}
