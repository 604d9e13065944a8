package analytics

import (
	"testing"
	"time"

	"github.com/claude/fitfusion/internal/models"
)

// TestMatchSameDayScenario covers two sessions on one day: one exactly
// overlapping a biometric window, one 50 minutes from the nearest window.
func TestMatchSameDayScenario(t *testing.T) {
	p := DefaultParams()
	morning := time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)
	w := window(morning, 60)
	stream := models.BiometricStream{
		Windows: []models.WorkoutWindow{w},
		Samples: hrSamples(morning, 10, 110, 130, 150, 140),
	}

	exact := MatchSession(session(morning, 60, set("Squat", 100, 5)), stream, p)
	if exact.Quality != models.MatchExact {
		t.Fatalf("overlapping session quality = %s, want exact", exact.Quality)
	}
	if exact.AvgHeartRate == nil || *exact.AvgHeartRate != 132.5 {
		t.Errorf("avg HR = %v, want 132.5", exact.AvgHeartRate)
	}
	if exact.MaxHeartRate == nil || *exact.MaxHeartRate != 150 {
		t.Errorf("max HR = %v, want 150", exact.MaxHeartRate)
	}
	if exact.MinHeartRate == nil || *exact.MinHeartRate != 110 {
		t.Errorf("min HR = %v, want 110", exact.MinHeartRate)
	}

	// Window midpoint is 07:30; a 60-minute session at 08:20 has midpoint 08:50.
	far := MatchSession(session(morning.Add(80*time.Minute), 60, set("Squat", 100, 5)), stream, p)
	if far.Quality != models.MatchNone {
		t.Fatalf("distant session quality = %s, want none", far.Quality)
	}
	if far.AvgHeartRate != nil || far.MaxHeartRate != nil || far.MinHeartRate != nil ||
		far.Calories != nil || far.DistanceMeters != nil {
		t.Errorf("distant session has biometric fields: %+v", far)
	}
}

// TestClassifyGapTiers verifies the tier boundaries are exclusive upper bounds.
func TestClassifyGapTiers(t *testing.T) {
	p := DefaultParams()
	tests := []struct {
		gap  time.Duration
		want models.MatchQuality
	}{
		{0, models.MatchExact},
		{299 * time.Second, models.MatchExact},
		{5 * time.Minute, models.MatchClose},
		{29 * time.Minute, models.MatchClose},
		{30 * time.Minute, models.MatchApproximate},
		{44 * time.Minute, models.MatchApproximate},
		{45 * time.Minute, models.MatchNone},
		{2 * time.Hour, models.MatchNone},
	}
	for _, tt := range tests {
		if got := ClassifyGap(tt.gap, p); got != tt.want {
			t.Errorf("ClassifyGap(%s) = %s, want %s", tt.gap, got, tt.want)
		}
	}
}

// TestMatchTieBreaksOnEarliestWindow verifies that equal gaps pick the
// earlier window.
func TestMatchTieBreaksOnEarliestWindow(t *testing.T) {
	p := DefaultParams()
	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	// Session midpoint 12:30. Windows with midpoints 12:20 and 12:40.
	early := window(start.Add(-10*time.Minute), 60)
	late := window(start.Add(10*time.Minute), 60)
	stream := models.BiometricStream{Windows: []models.WorkoutWindow{late, early}}

	m := MatchSession(session(start, 60), stream, p)
	if m.Window == nil || m.Window.ID != early.ID {
		t.Fatalf("matched window = %v, want the earlier one", m.Window)
	}
	if m.Quality != models.MatchClose {
		t.Errorf("quality = %s, want close", m.Quality)
	}
}

// TestMatchWindowsNotConsumed verifies two sessions can match the same window.
func TestMatchWindowsNotConsumed(t *testing.T) {
	p := DefaultParams()
	start := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	stream := models.BiometricStream{Windows: []models.WorkoutWindow{window(start, 60)}}

	a := MatchSession(session(start, 60), stream, p)
	b := MatchSession(session(start.Add(10*time.Minute), 60), stream, p)
	if a.Window == nil || b.Window == nil || a.Window.ID != b.Window.ID {
		t.Fatalf("both sessions should match the single window: a=%v b=%v", a.Window, b.Window)
	}
}

// TestMatchEmptyStream verifies that no biometric data is a valid input.
func TestMatchEmptyStream(t *testing.T) {
	m := MatchSession(session(testNow, 60), models.BiometricStream{}, DefaultParams())
	if m.Quality != models.MatchNone || m.Window != nil {
		t.Errorf("empty stream match = %+v, want none", m)
	}
}

// TestMatchFallsBackToWindowSummary verifies the window's own HR, calories
// and distance are used when no raw samples cover the range.
func TestMatchFallsBackToWindowSummary(t *testing.T) {
	start := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	w := window(start, 60)
	w.AvgHeartRate = floatp(121.04)
	w.Calories = floatp(410)
	w.DistanceMeters = floatp(0)

	m := MatchSession(session(start, 60), models.BiometricStream{Windows: []models.WorkoutWindow{w}}, DefaultParams())
	if m.AvgHeartRate == nil || *m.AvgHeartRate != 121 {
		t.Errorf("avg HR = %v, want 121", m.AvgHeartRate)
	}
	if m.Calories == nil || *m.Calories != 410 {
		t.Errorf("calories = %v, want 410", m.Calories)
	}
	if m.DistanceMeters == nil || *m.DistanceMeters != 0 {
		t.Errorf("distance = %v, want 0", m.DistanceMeters)
	}
}

// TestMatchUsesUnionRange verifies HR samples are read across the union of
// the session and the matched window.
func TestMatchUsesUnionRange(t *testing.T) {
	start := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	// Window starts 10 minutes before the session; its first sample precedes the session.
	w := window(start.Add(-10*time.Minute), 70)
	samples := hrSamples(start.Add(-10*time.Minute), 40, 100, 140)

	m := MatchSession(session(start, 60), models.BiometricStream{Windows: []models.WorkoutWindow{w}, Samples: samples}, DefaultParams())
	if m.MinHeartRate == nil || *m.MinHeartRate != 100 {
		t.Errorf("min HR = %v, want 100 (sample before session start)", m.MinHeartRate)
	}
}

// TestSessionDurationFallbacks verifies the duration sources in order.
func TestSessionDurationFallbacks(t *testing.T) {
	p := DefaultParams()
	s := models.TrainingSession{Start: testNow}
	if got := SessionDuration(s, p); got != time.Hour {
		t.Errorf("default duration = %s, want 1h", got)
	}

	s.Sets = []models.ExerciseSet{{Exercise: "Plank", DurationSec: floatp(60), RestSec: intp(90)}}
	if got := SessionDuration(s, p); got != 150*time.Second {
		t.Errorf("set-derived duration = %s, want 2m30s", got)
	}

	s.DurationSec = floatp(2700)
	if got := SessionDuration(s, p); got != 45*time.Minute {
		t.Errorf("logged duration = %s, want 45m", got)
	}
}
