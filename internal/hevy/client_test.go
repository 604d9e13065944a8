package hevy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/claude/fitfusion/internal/analytics"
	"github.com/claude/fitfusion/internal/models"
)

var testNow = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// workoutAt builds a one-exercise workout that started daysAgo days before testNow.
func workoutAt(id string, daysAgo int) Workout {
	start := testNow.Add(-time.Duration(daysAgo) * 24 * time.Hour)
	w, r := 100.0, 5
	return Workout{
		ID:        id,
		Title:     "Leg Day",
		StartTime: start.Format(time.RFC3339),
		EndTime:   start.Add(time.Hour).Format(time.RFC3339),
		Exercises: []Exercise{{Title: "Squat", Sets: []Set{{SetType: "normal", WeightKg: &w, Reps: &r}}}},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL:           srv.URL,
		APIKey:            "secret",
		PageSize:          2,
		RequestsPerSecond: 1000,
		RetryBackoff:      time.Millisecond,
		Clock:             func() time.Time { return testNow },
	}, discardLogger())
}

// TestSessionsPaginates verifies pagination stops at a short page and the
// api-key header is sent.
func TestSessionsPaginates(t *testing.T) {
	pages := map[int][]Workout{
		1: {workoutAt("a", 1), workoutAt("b", 2)},
		2: {workoutAt("c", 3)},
	}
	var requests int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		if got := r.Header.Get("api-key"); got != "secret" {
			t.Errorf("api-key = %q, want secret", got)
		}
		if got := r.URL.Query().Get("pageSize"); got != "2" {
			t.Errorf("pageSize = %q, want 2", got)
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		json.NewEncoder(w).Encode(workoutsPage{Page: page, PageCount: 5, Workouts: pages[page]})
	})

	sessions, err := c.Sessions(context.Background(), 30)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("got %d sessions, want 3", len(sessions))
	}
	if requests != 2 {
		t.Errorf("made %d requests, want 2", requests)
	}
	if sessions[0].ID != "a" || sessions[0].Source != "hevy" {
		t.Errorf("first session = %+v", sessions[0])
	}
}

// TestSessionsStopsAtCutoff verifies no further pages are fetched once a
// workout older than the cutoff appears.
func TestSessionsStopsAtCutoff(t *testing.T) {
	var requests int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		json.NewEncoder(w).Encode(workoutsPage{Workouts: []Workout{workoutAt("new", 5), workoutAt("old", 40)}})
	})

	sessions, err := c.Sessions(context.Background(), 30)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "new" {
		t.Errorf("sessions = %+v, want only the recent one", sessions)
	}
	if requests != 1 {
		t.Errorf("made %d requests, want 1", requests)
	}
}

// TestSessionsUnreadableWorkoutCounted verifies a workout with a bad start
// time neither ends paging nor disappears: it reaches the engine and is
// counted as a dropped session.
func TestSessionsUnreadableWorkoutCounted(t *testing.T) {
	bad := workoutAt("bad", 2)
	bad.StartTime = "not-a-time"
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(workoutsPage{Workouts: []Workout{workoutAt("good", 1), bad}})
	})

	sessions, err := c.Sessions(context.Background(), 30)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 2 || !sessions[1].Start.IsZero() {
		t.Fatalf("sessions = %+v, want the good one plus an unreadable one", sessions)
	}

	resp, err := analytics.NewEngine(analytics.DefaultParams(), discardLogger()).Run(context.Background(), analytics.Input{
		Sessions:      sessions,
		Now:           testNow,
		DaysRequested: 30,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Meta.Dropped.Sessions != 1 || len(resp.MergedWorkouts) != 1 {
		t.Errorf("dropped = %+v, merged = %d; want 1 dropped and 1 merged", resp.Meta.Dropped, len(resp.MergedWorkouts))
	}
}

// TestSessionsEmptyPage verifies an empty first page is no data, not an error.
func TestSessionsEmptyPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"page":1,"page_count":0,"workouts":[]}`)
	})
	sessions, err := c.Sessions(context.Background(), 30)
	if err != nil || len(sessions) != 0 {
		t.Errorf("Sessions = %v, %v; want empty", sessions, err)
	}
}

// TestSessionsUpstreamFailure verifies server errors are retried and then
// reported as upstream unavailability.
func TestSessionsUpstreamFailure(t *testing.T) {
	var requests int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := c.Sessions(context.Background(), 30)
	if !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want ErrUpstreamUnavailable", err)
	}
	if requests != 3 {
		t.Errorf("made %d requests, want 3 attempts", requests)
	}
}

// TestSessionsClientErrorNotRetried verifies a 401 fails immediately.
func TestSessionsClientErrorNotRetried(t *testing.T) {
	var requests int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	})

	if _, err := c.Sessions(context.Background(), 30); !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Errorf("err = %v, want ErrUpstreamUnavailable", err)
	}
	if requests != 1 {
		t.Errorf("made %d requests, want 1", requests)
	}
}

// TestSessionsNotConfigured verifies a missing key is reported without a request.
func TestSessionsNotConfigured(t *testing.T) {
	c := NewClient(Options{BaseURL: "http://127.0.0.1:1"}, discardLogger())
	if c.Configured() {
		t.Error("Configured() = true without a key")
	}
	if _, err := c.Sessions(context.Background(), 30); !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Errorf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

// TestToSession covers set conversion, warmup filtering and duration fallback.
func TestToSession(t *testing.T) {
	raw := `{
		"id": "w1",
		"title": "",
		"start_time": "2026-03-30T07:00:00Z",
		"end_time": "2026-03-30T08:15:00Z",
		"exercises": [{
			"title": " Bench Press (Barbell) ",
			"sets": [
				{"set_type": "warmup", "weight_kg": 40, "reps": 10},
				{"set_type": "normal", "weight_kg": 80, "reps": 8, "rpe": 8.5, "rest_seconds": 120},
				{"set_type": "failure", "weight_kg": 80, "reps": 6}
			]
		}, {
			"title": "Plank",
			"sets": [{"set_type": "normal", "duration_seconds": 60}]
		}]
	}`
	var w Workout
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		t.Fatal(err)
	}
	s, err := w.ToSession()
	if err != nil {
		t.Fatalf("ToSession: %v", err)
	}

	if s.Title != "Workout" {
		t.Errorf("Title = %q, want Workout", s.Title)
	}
	if s.DurationSec == nil || *s.DurationSec != 4500 {
		t.Errorf("DurationSec = %v, want 4500", s.DurationSec)
	}
	if len(s.Sets) != 3 {
		t.Fatalf("got %d sets, want 3 (warmup dropped)", len(s.Sets))
	}
	if s.Sets[0].Exercise != "Bench Press (Barbell)" {
		t.Errorf("Exercise = %q, want trimmed title", s.Sets[0].Exercise)
	}
	if s.Sets[0].RPE == nil || *s.Sets[0].RPE != 8.5 || s.Sets[0].RestSec == nil || *s.Sets[0].RestSec != 120 {
		t.Errorf("first set = %+v", s.Sets[0])
	}
	if !s.Sets[1].ToFailure {
		t.Error("failure set not marked ToFailure")
	}
	if s.Sets[2].WeightKg != nil || s.Sets[2].DurationSec == nil {
		t.Errorf("plank set = %+v, want duration only", s.Sets[2])
	}
}

// TestToSessionNoTime verifies workouts without any timestamp are rejected.
func TestToSessionNoTime(t *testing.T) {
	if _, err := (Workout{ID: "x"}).ToSession(); err == nil {
		t.Error("ToSession succeeded without a start time")
	}
}
