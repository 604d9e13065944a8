package cache

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errUpstream = errors.New("upstream down")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type payload struct {
	Volume float64 `json:"volume"`
}

func newTestOrchestrator(clock *fakeClock, store SnapshotStore) (*Orchestrator[payload], *Metrics) {
	m := NewMetrics("test", prometheus.NewRegistry())
	return New[payload](Config{Clock: clock.Now, Store: store, Metrics: m}), m
}

func constant(v float64, calls *int32) func(context.Context) (payload, error) {
	return func(context.Context) (payload, error) {
		atomic.AddInt32(calls, 1)
		return payload{Volume: v}, nil
	}
}

func failing(context.Context) (payload, error) {
	return payload{}, errUpstream
}

// TestGetServesFreshEntry verifies a second call within the TTL is a hit
// carrying the original timestamp.
func TestGetServesFreshEntry(t *testing.T) {
	clock := newFakeClock()
	o, m := newTestOrchestrator(clock, nil)
	var calls int32

	first, err := o.Get(context.Background(), "workouts:90d", false, constant(1000, &calls))
	if err != nil {
		t.Fatalf("first Get: %v", err)
	}
	clock.Advance(30 * time.Second)
	second, err := o.Get(context.Background(), "workouts:90d", false, constant(2000, &calls))
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}

	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}
	if !second.Hit || second.Value.Volume != 1000 {
		t.Errorf("second = %+v, want hit with volume 1000", second)
	}
	if !second.ComputedAt.Equal(first.ComputedAt) {
		t.Errorf("ComputedAt = %v, want %v", second.ComputedAt, first.ComputedAt)
	}
	if got := testutil.ToFloat64(m.CounterHits.WithLabelValues("workouts:90d")); got != 1 {
		t.Errorf("hits = %v, want 1", got)
	}
}

// TestGetRecomputesAfterTTL verifies entries go stale and are recomputed.
func TestGetRecomputesAfterTTL(t *testing.T) {
	clock := newFakeClock()
	o, _ := newTestOrchestrator(clock, nil)
	var calls int32

	if got := o.State("k"); got != StateEmpty {
		t.Errorf("State before Get = %s, want empty", got)
	}
	first, _ := o.Get(context.Background(), "k", false, constant(1, &calls))
	if got := o.State("k"); got != StateFresh {
		t.Errorf("State after Get = %s, want fresh", got)
	}

	clock.Advance(DefaultTTL)
	if got := o.State("k"); got != StateStale {
		t.Errorf("State after TTL = %s, want stale", got)
	}
	second, err := o.Get(context.Background(), "k", false, constant(2, &calls))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if calls != 2 || second.Value.Volume != 2 || second.Hit {
		t.Errorf("after TTL: calls=%d result=%+v, want recompute", calls, second)
	}
	if !second.ComputedAt.After(first.ComputedAt) {
		t.Errorf("ComputedAt did not advance: %v -> %v", first.ComputedAt, second.ComputedAt)
	}
}

// TestForcedRefreshAdvancesTimestamp verifies a forced refresh yields a
// strictly later timestamp even when the clock has not moved.
func TestForcedRefreshAdvancesTimestamp(t *testing.T) {
	o, _ := newTestOrchestrator(newFakeClock(), nil)
	var calls int32

	first, _ := o.Get(context.Background(), "k", false, constant(1, &calls))
	second, err := o.Get(context.Background(), "k", true, constant(1, &calls))
	if err != nil {
		t.Fatalf("forced Get: %v", err)
	}
	if calls != 2 {
		t.Errorf("compute called %d times, want 2", calls)
	}
	if !second.ComputedAt.After(first.ComputedAt) {
		t.Errorf("forced ComputedAt %v not after %v", second.ComputedAt, first.ComputedAt)
	}
}

// TestConcurrentGetsShareComputation verifies callers arriving during a
// recomputation join it instead of starting their own.
func TestConcurrentGetsShareComputation(t *testing.T) {
	o, m := newTestOrchestrator(newFakeClock(), nil)
	release := make(chan struct{})
	var calls int32
	compute := func(context.Context) (payload, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return payload{Volume: 42}, nil
	}

	const callers = 10
	results := make([]Result[payload], callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = o.Get(context.Background(), "k", i%2 == 0, compute)
		}(i)
	}

	deadline := time.Now().Add(5 * time.Second)
	for testutil.ToFloat64(m.CounterMisses.WithLabelValues("k")) < callers && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}
	for i, r := range results {
		if r.Value.Volume != 42 || !r.ComputedAt.Equal(results[0].ComputedAt) {
			t.Errorf("caller %d got %+v", i, r)
		}
	}
}

// TestFailureServesPriorEntry verifies a failed recomputation falls back to
// the previous value flagged stale.
func TestFailureServesPriorEntry(t *testing.T) {
	clock := newFakeClock()
	o, m := newTestOrchestrator(clock, nil)
	var calls int32

	good, _ := o.Get(context.Background(), "k", false, constant(500, &calls))
	clock.Advance(2 * DefaultTTL)

	res, err := o.Get(context.Background(), "k", false, failing)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !res.Stale || res.State != StateStale {
		t.Errorf("result = %+v, want stale", res)
	}
	if res.Value.Volume != 500 || !res.ComputedAt.Equal(good.ComputedAt) {
		t.Errorf("stale value = %+v, want the prior entry", res)
	}
	if !errors.Is(res.Err, errUpstream) {
		t.Errorf("Err = %v, want %v", res.Err, errUpstream)
	}
	if got := testutil.ToFloat64(m.CounterStaleServes.WithLabelValues("k")); got != 1 {
		t.Errorf("stale serves = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CounterFailures.WithLabelValues("k")); got != 1 {
		t.Errorf("failures = %v, want 1", got)
	}
}

// TestFailureWithoutPriorIsUnavailable verifies the typed error when nothing
// can be served.
func TestFailureWithoutPriorIsUnavailable(t *testing.T) {
	o, _ := newTestOrchestrator(newFakeClock(), nil)

	_, err := o.Get(context.Background(), "k", false, failing)
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want *UnavailableError", err)
	}
	if unavailable.LastGood != nil {
		t.Errorf("LastGood = %v, want nil", unavailable.LastGood)
	}
	if !errors.Is(err, errUpstream) {
		t.Errorf("err does not wrap the compute error: %v", err)
	}
}

// TestInvalidatedEntryServedOnFailure verifies an invalidation forces a
// recompute, and that a failing recompute still serves the invalidated value.
func TestInvalidatedEntryServedOnFailure(t *testing.T) {
	o, m := newTestOrchestrator(newFakeClock(), nil)
	var calls int32
	ctx := context.Background()

	good, err := o.Get(ctx, "k", false, constant(300, &calls))
	if err != nil {
		t.Fatal(err)
	}
	o.InvalidateAll()
	if got := o.State("k"); got != StateStale {
		t.Errorf("State = %s, want stale", got)
	}

	res, err := o.Get(ctx, "k", false, failing)
	if err != nil {
		t.Fatalf("Get after invalidation: %v", err)
	}
	if !res.Stale || res.Value.Volume != 300 || !res.ComputedAt.Equal(good.ComputedAt) {
		t.Errorf("result = %+v, want the invalidated entry served stale", res)
	}
	if got := testutil.ToFloat64(m.CounterFailures.WithLabelValues("k")); got != 1 {
		t.Errorf("failures = %v, want 1 (the recompute ran)", got)
	}
}

// TestUnavailableCarriesLastGood verifies the last good timestamp is reported
// when the persisted snapshot exists but cannot be decoded.
func TestUnavailableCarriesLastGood(t *testing.T) {
	computedAt := time.Date(2026, 3, 30, 8, 0, 0, 0, time.UTC)
	store := &memStore{snaps: map[string]Snapshot{
		"k": {Key: "k", Payload: []byte("{not json"), ComputedAt: computedAt},
	}}
	o, _ := newTestOrchestrator(newFakeClock(), store)

	_, err := o.Get(context.Background(), "k", false, failing)
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want *UnavailableError", err)
	}
	if unavailable.LastGood == nil || !unavailable.LastGood.Equal(computedAt) {
		t.Errorf("LastGood = %v, want %v", unavailable.LastGood, computedAt)
	}
}

// TestSnapshotSurvivesRestart verifies a new orchestrator serves the
// persisted snapshot when its first computation fails.
func TestSnapshotSurvivesRestart(t *testing.T) {
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	defer store.Close()

	clock := newFakeClock()
	before, _ := newTestOrchestrator(clock, store)
	var calls int32
	good, err := before.Get(context.Background(), "workouts:30d", false, constant(750, &calls))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	clock.Advance(time.Hour)
	after, _ := newTestOrchestrator(clock, store)
	res, err := after.Get(context.Background(), "workouts:30d", false, failing)
	if err != nil {
		t.Fatalf("Get after restart: %v", err)
	}
	if !res.Stale || res.Value.Volume != 750 {
		t.Errorf("result = %+v, want stale snapshot with volume 750", res)
	}
	if !res.ComputedAt.Equal(good.ComputedAt) {
		t.Errorf("ComputedAt = %v, want %v", res.ComputedAt, good.ComputedAt)
	}
}

// TestCancelledCallerDoesNotCancelCompute verifies a caller that gives up
// leaves the shared computation running to completion.
func TestCancelledCallerDoesNotCancelCompute(t *testing.T) {
	o, _ := newTestOrchestrator(newFakeClock(), nil)
	release := make(chan struct{})
	done := make(chan struct{})
	compute := func(ctx context.Context) (payload, error) {
		defer close(done)
		<-release
		if err := ctx.Err(); err != nil {
			return payload{}, err
		}
		return payload{Volume: 7}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := o.Get(ctx, "k", false, compute); !errors.Is(err, context.Canceled) {
		t.Errorf("Get with cancelled ctx = %v, want context.Canceled", err)
	}

	close(release)
	<-done

	deadline := time.Now().Add(5 * time.Second)
	for o.State("k") != StateFresh && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	var calls int32
	res, err := o.Get(context.Background(), "k", false, constant(0, &calls))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !res.Hit || res.Value.Volume != 7 {
		t.Errorf("result = %+v, want the completed value as a hit", res)
	}
}

// TestInvalidateAllForcesRecompute verifies every key recomputes after a
// global invalidation even inside the TTL.
func TestInvalidateAllForcesRecompute(t *testing.T) {
	o, _ := newTestOrchestrator(newFakeClock(), nil)
	var calls int32
	ctx := context.Background()

	for _, key := range []string{"workouts:30d", "workouts:90d"} {
		if _, err := o.Get(ctx, key, false, constant(1, &calls)); err != nil {
			t.Fatal(err)
		}
	}
	o.InvalidateAll()
	for _, key := range []string{"workouts:30d", "workouts:90d"} {
		if got := o.State(key); got != StateStale {
			t.Errorf("State(%s) = %s, want stale", key, got)
		}
		if _, err := o.Get(ctx, key, false, constant(1, &calls)); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 4 {
		t.Errorf("compute calls = %d, want 4", calls)
	}
}
