package analytics

import (
	"math"

	"github.com/claude/fitfusion/internal/models"
)

// TotalVolume sums weight × reps over the weighted sets.
func TotalVolume(sets []models.ExerciseSet) float64 {
	var total float64
	for _, s := range sets {
		total += s.Volume()
	}
	return round1(total)
}

// FailureSets counts sets taken to failure.
func FailureSets(sets []models.ExerciseSet) int {
	n := 0
	for _, s := range sets {
		if s.ToFailure {
			n++
		}
	}
	return n
}

// AverageRPE returns the mean RPE over sets that carry one.
func AverageRPE(sets []models.ExerciseSet) (float64, bool) {
	var sum float64
	n := 0
	for _, s := range sets {
		if s.RPE != nil {
			sum += *s.RPE
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// EffortScore combines RPE, heart-rate intensity and a failure bonus into a
// 0..100 score. Without heart rate the score is RPE-only.
func EffortScore(sets []models.ExerciseSet, avgHR *float64, p Params) float64 {
	rpe, hasRPE := AverageRPE(sets)
	rpePct := clamp(rpe*10, 0, 100)

	if avgHR == nil || p.MaxHeartRate <= 0 {
		if !hasRPE {
			return 0
		}
		return round1(rpePct)
	}

	hrPct := clamp(*avgHR/p.MaxHeartRate*100, 0, 100)
	failPct := 0.0
	if FailureSets(sets) > 0 {
		failPct = 100
	}
	score := p.EffortRPEWeight*rpePct + p.EffortHRWeight*hrPct + p.EffortFailureWeight*failPct
	return round1(clamp(score, 0, 100))
}

// Derive builds the merged record for a session and its match.
func Derive(s models.TrainingSession, m Match, p Params) models.MergedWorkout {
	w := models.MergedWorkout{
		TrainingSession: s,
		TotalVolumeKg:   TotalVolume(s.Sets),
		FailureSets:     FailureSets(s.Sets),
		MatchQuality:    m.Quality,
	}
	if m.Quality != models.MatchNone && m.Window != nil {
		w.AvgHeartRate = m.AvgHeartRate
		w.MaxHeartRate = m.MaxHeartRate
		w.MinHeartRate = m.MinHeartRate
		w.Calories = m.Calories
		w.DistanceMeters = m.DistanceMeters
		gap := m.Gap.Seconds()
		id := m.Window.ID
		w.MatchGapSec = &gap
		w.MatchedWindowID = &id
	} else {
		w.MatchQuality = models.MatchNone
	}
	w.EffortScore = EffortScore(s.Sets, w.AvgHeartRate, p)
	return w
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
