// Package cache memoizes expensive analytics results per key, coalesces
// concurrent recomputations and falls back to the last good result when a
// recomputation fails.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long an entry stays fresh.
const DefaultTTL = 60 * time.Second

// State is the lifecycle state of a cache entry.
type State string

const (
	StateEmpty State = "empty"
	StateFresh State = "fresh"
	StateStale State = "stale"
)

// Result is what Get hands back to the caller.
type Result[V any] struct {
	Value      V
	ComputedAt time.Time
	State      State
	// Hit is true when the value came straight from a fresh entry.
	Hit bool
	// Stale is true when a recomputation failed and a prior value was served.
	Stale bool
	// Err is the recomputation error behind a stale serve.
	Err error
}

// UnavailableError is returned when a recomputation fails and no prior value
// can be served from memory or the snapshot store.
type UnavailableError struct {
	Key      string
	Err      error
	LastGood *time.Time
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Key, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Config configures an Orchestrator. Zero values get defaults.
type Config struct {
	TTL     time.Duration
	Clock   func() time.Time
	Store   SnapshotStore
	Metrics *Metrics
	Log     *slog.Logger
}

type entry[V any] struct {
	value      V
	computedAt time.Time
	// invalidated entries are never fresh but remain servable as stale.
	invalidated bool
}

func (e entry[V]) fresh(now time.Time, ttl time.Duration) bool {
	return !e.invalidated && now.Sub(e.computedAt) < ttl
}

// Orchestrator is a keyed, TTL-based cache around a compute function.
type Orchestrator[V any] struct {
	ttl     time.Duration
	now     func() time.Time
	store   SnapshotStore
	metrics *Metrics
	log     *slog.Logger

	group singleflight.Group

	mu       sync.Mutex
	entries  map[string]entry[V]
	lastGood map[string]time.Time
}

// New creates an Orchestrator.
func New[V any](cfg Config) *Orchestrator[V] {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics("fitfusion", prometheus.NewRegistry())
	}
	if cfg.Log == nil {
		cfg.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator[V]{
		ttl:      cfg.TTL,
		now:      cfg.Clock,
		store:    cfg.Store,
		metrics:  cfg.Metrics,
		log:      cfg.Log,
		entries:  make(map[string]entry[V]),
		lastGood: make(map[string]time.Time),
	}
}

// TTL returns the freshness window.
func (o *Orchestrator[V]) TTL() time.Duration {
	return o.ttl
}

// State reports the current state of key.
func (o *Orchestrator[V]) State(key string) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.entries[key]
	if !ok {
		return StateEmpty
	}
	if e.fresh(o.now(), o.ttl) {
		return StateFresh
	}
	return StateStale
}

// Get returns the cached value for key, recomputing it when the entry is
// missing, stale or force is set. Concurrent recomputations of one key share
// a single compute call. A caller whose ctx ends stops waiting, but the
// shared computation keeps running for the others.
func (o *Orchestrator[V]) Get(ctx context.Context, key string, force bool, compute func(context.Context) (V, error)) (Result[V], error) {
	if !force {
		o.mu.Lock()
		e, ok := o.entries[key]
		o.mu.Unlock()
		if ok && e.fresh(o.now(), o.ttl) {
			o.metrics.CounterHits.WithLabelValues(key).Inc()
			return Result[V]{Value: e.value, ComputedAt: e.computedAt, State: StateFresh, Hit: true}, nil
		}
	}
	o.metrics.CounterMisses.WithLabelValues(key).Inc()

	computeCtx := context.WithoutCancel(ctx)
	ch := o.group.DoChan(key, func() (any, error) {
		return o.refresh(computeCtx, key, compute)
	})

	select {
	case <-ctx.Done():
		return Result[V]{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Result[V]{}, res.Err
		}
		return res.Val.(Result[V]), nil
	}
}

// Invalidate marks the entry for key stale so the next Get recomputes. The
// value is kept and served if that recomputation fails.
func (o *Orchestrator[V]) Invalidate(key string) {
	o.mu.Lock()
	if e, ok := o.entries[key]; ok {
		e.invalidated = true
		o.entries[key] = e
	}
	o.mu.Unlock()
}

// InvalidateAll marks every entry stale.
func (o *Orchestrator[V]) InvalidateAll() {
	o.mu.Lock()
	for key, e := range o.entries {
		e.invalidated = true
		o.entries[key] = e
	}
	o.mu.Unlock()
}

func (o *Orchestrator[V]) refresh(ctx context.Context, key string, compute func(context.Context) (V, error)) (Result[V], error) {
	start := time.Now()
	v, err := compute(ctx)
	o.metrics.HistComputeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		o.metrics.CounterFailures.WithLabelValues(key).Inc()
		return o.fallback(ctx, key, err)
	}

	o.mu.Lock()
	computedAt := o.now()
	if prev, ok := o.lastGood[key]; ok && !computedAt.After(prev) {
		computedAt = prev.Add(time.Nanosecond)
	}
	o.entries[key] = entry[V]{value: v, computedAt: computedAt}
	o.lastGood[key] = computedAt
	o.mu.Unlock()

	o.persist(ctx, key, v, computedAt)
	return Result[V]{Value: v, ComputedAt: computedAt, State: StateFresh}, nil
}

// fallback serves the prior in-memory entry, else the persisted snapshot.
func (o *Orchestrator[V]) fallback(ctx context.Context, key string, cause error) (Result[V], error) {
	o.mu.Lock()
	prev, ok := o.entries[key]
	var lastGood *time.Time
	if ts, found := o.lastGood[key]; found {
		lastGood = &ts
	}
	o.mu.Unlock()

	if ok {
		o.metrics.CounterStaleServes.WithLabelValues(key).Inc()
		o.log.Warn("serving stale cache entry", "key", key, "computed_at", prev.computedAt, "error", cause)
		return Result[V]{Value: prev.value, ComputedAt: prev.computedAt, State: StateStale, Stale: true, Err: cause}, nil
	}

	if o.store != nil {
		snap, found, err := o.store.Load(ctx, key)
		switch {
		case err != nil:
			o.log.Error("loading cache snapshot", "key", key, "error", err)
		case found:
			var v V
			if err := json.Unmarshal(snap.Payload, &v); err != nil {
				o.log.Error("decoding cache snapshot", "key", key, "error", err)
				lastGood = &snap.ComputedAt
				break
			}
			o.metrics.CounterStaleServes.WithLabelValues(key).Inc()
			o.log.Warn("serving persisted snapshot", "key", key, "computed_at", snap.ComputedAt, "error", cause)
			o.mu.Lock()
			if ts, seen := o.lastGood[key]; !seen || snap.ComputedAt.After(ts) {
				o.lastGood[key] = snap.ComputedAt
			}
			o.mu.Unlock()
			return Result[V]{Value: v, ComputedAt: snap.ComputedAt, State: StateStale, Stale: true, Err: cause}, nil
		}
	}

	return Result[V]{}, &UnavailableError{Key: key, Err: cause, LastGood: lastGood}
}

func (o *Orchestrator[V]) persist(ctx context.Context, key string, v V, computedAt time.Time) {
	if o.store == nil {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		o.log.Error("encoding cache snapshot", "key", key, "error", err)
		return
	}
	if err := o.store.Save(ctx, Snapshot{Key: key, Payload: payload, ComputedAt: computedAt}); err != nil {
		o.log.Error("saving cache snapshot", "key", key, "error", err)
	}
}
