package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/claude/fitfusion/internal/models"
)

// TestTotalVolumeIgnoresOrder checks that shuffling sets never changes the
// computed tonnage.
func TestTotalVolumeIgnoresOrder(t *testing.T) {
	f := gofakeit.New(42)
	for round := 0; round < 50; round++ {
		sets := make([]models.ExerciseSet, f.IntRange(1, 20))
		for i := range sets {
			sets[i] = set(f.RandomString([]string{"Squat", "Bench Press", "Row"}),
				float64(f.IntRange(0, 400))/2, f.IntRange(0, 15))
			if f.Bool() {
				sets[i].WeightKg = nil
			}
		}
		want := TotalVolume(sets)

		shuffled := append([]models.ExerciseSet(nil), sets...)
		f.ShuffleAnySlice(shuffled)
		if got := TotalVolume(shuffled); got != want {
			t.Fatalf("round %d: shuffled volume = %v, want %v", round, got, want)
		}
	}
}

// TestTotalVolumeSkipsUnweighted verifies bodyweight and timed sets add nothing.
func TestTotalVolumeSkipsUnweighted(t *testing.T) {
	sets := []models.ExerciseSet{
		set("Squat", 100, 5),
		{Exercise: "Pull Up", Reps: intp(10)},
		{Exercise: "Plank", DurationSec: floatp(60)},
	}
	if got := TotalVolume(sets); got != 500 {
		t.Errorf("TotalVolume = %v, want 500", got)
	}
}

func TestEffortScore(t *testing.T) {
	p := DefaultParams()
	rpe8 := set("Bench Press", 80, 8)
	rpe8.RPE = floatp(8)
	failed := rpe8
	failed.ToFailure = true

	tests := []struct {
		name  string
		sets  []models.ExerciseSet
		avgHR *float64
		want  float64
	}{
		{"rpe only", []models.ExerciseSet{rpe8}, nil, 80},
		{"rpe only ignores failure", []models.ExerciseSet{failed}, nil, 80},
		{"no rpe no hr", []models.ExerciseSet{set("Squat", 100, 5)}, nil, 0},
		{"rpe and hr", []models.ExerciseSet{rpe8}, floatp(152), 64},
		{"rpe hr and failure", []models.ExerciseSet{failed}, floatp(152), 84},
		{"hr above max clamps", []models.ExerciseSet{failed}, floatp(250), 92},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffortScore(tt.sets, tt.avgHR, p)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("EffortScore = %v, want %v", got, tt.want)
			}
			if got < 0 || got > 100 {
				t.Errorf("EffortScore = %v, outside 0..100", got)
			}
		})
	}
}

// TestDeriveUnmatchedHasNoBiometrics verifies the none tier never carries
// biometric fields even if the match struct was partially filled.
func TestDeriveUnmatchedHasNoBiometrics(t *testing.T) {
	s := session(testNow, 60, set("Squat", 100, 5), set("Squat", 100, 5))
	s.Sets[1].ToFailure = true

	w := Derive(s, Match{Quality: models.MatchNone, AvgHeartRate: floatp(140)}, DefaultParams())
	if w.MatchQuality != models.MatchNone {
		t.Errorf("MatchQuality = %s, want none", w.MatchQuality)
	}
	if w.AvgHeartRate != nil || w.MatchedWindowID != nil || w.MatchGapSec != nil {
		t.Errorf("unmatched workout carries biometrics: %+v", w)
	}
	if w.TotalVolumeKg != 1000 {
		t.Errorf("TotalVolumeKg = %v, want 1000", w.TotalVolumeKg)
	}
	if w.FailureSets != 1 {
		t.Errorf("FailureSets = %d, want 1", w.FailureSets)
	}
}

// TestDeriveMatchedCopiesWindow verifies a matched workout carries the
// window ID and gap.
func TestDeriveMatchedCopiesWindow(t *testing.T) {
	win := window(testNow, 60)
	m := Match{Quality: models.MatchClose, Window: &win, Gap: 10 * time.Minute, AvgHeartRate: floatp(130)}

	w := Derive(session(testNow, 60, set("Squat", 100, 5)), m, DefaultParams())
	if w.MatchedWindowID == nil || *w.MatchedWindowID != win.ID {
		t.Errorf("MatchedWindowID = %v, want %s", w.MatchedWindowID, win.ID)
	}
	if w.MatchGapSec == nil || *w.MatchGapSec != 600 {
		t.Errorf("MatchGapSec = %v, want 600", w.MatchGapSec)
	}
	if w.AvgHeartRate == nil || *w.AvgHeartRate != 130 {
		t.Errorf("AvgHeartRate = %v, want 130", w.AvgHeartRate)
	}
}
