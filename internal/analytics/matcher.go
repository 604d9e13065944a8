package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/claude/fitfusion/internal/models"
)

// Match is the outcome of aligning one session with the biometric stream.
// All pointer fields are nil when Quality is MatchNone.
type Match struct {
	Quality models.MatchQuality
	Window  *models.WorkoutWindow
	Gap     time.Duration

	AvgHeartRate   *float64
	MaxHeartRate   *float64
	MinHeartRate   *float64
	Calories       *float64
	DistanceMeters *float64
}

// SessionDuration returns the logged session duration, else the sum of set
// durations and rests, else the configured default.
func SessionDuration(s models.TrainingSession, p Params) time.Duration {
	if s.DurationSec != nil && *s.DurationSec > 0 {
		return time.Duration(*s.DurationSec * float64(time.Second))
	}
	var secs float64
	for _, set := range s.Sets {
		if set.DurationSec != nil {
			secs += *set.DurationSec
		}
		if set.RestSec != nil {
			secs += float64(*set.RestSec)
		}
	}
	if secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return p.DefaultSessionDuration
}

// ClassifyGap maps a midpoint gap to a match tier.
func ClassifyGap(gap time.Duration, p Params) models.MatchQuality {
	switch {
	case gap < p.ExactThreshold:
		return models.MatchExact
	case gap < p.CloseThreshold:
		return models.MatchClose
	case gap < p.MatchRadius:
		return models.MatchApproximate
	default:
		return models.MatchNone
	}
}

// MatchSession finds the workout window whose midpoint is nearest to the
// session midpoint. Ties go to the smaller gap, then the earlier window.
// Windows are never consumed, so several sessions may match the same one.
// stream.Samples must be sorted by time.
func MatchSession(s models.TrainingSession, stream models.BiometricStream, p Params) Match {
	start := s.Start
	end := start.Add(SessionDuration(s, p))
	mid := start.Add(end.Sub(start) / 2)

	var best *models.WorkoutWindow
	var bestGap time.Duration
	for i := range stream.Windows {
		w := &stream.Windows[i]
		gap := absDuration(mid.Sub(w.Midpoint()))
		if gap >= p.MatchRadius {
			continue
		}
		if best == nil || gap < bestGap || (gap == bestGap && w.Start.Before(best.Start)) {
			best = w
			bestGap = gap
		}
	}
	if best == nil {
		return Match{Quality: models.MatchNone}
	}

	m := Match{
		Quality: ClassifyGap(bestGap, p),
		Window:  best,
		Gap:     bestGap,
	}

	lo, hi := start, end
	if best.Start.Before(lo) {
		lo = best.Start
	}
	if best.End.After(hi) {
		hi = best.End
	}
	readings := samplesBetween(stream.Samples, lo, hi)

	var hr []float64
	var kcal, meters float64
	var haveKcal, haveMeters bool
	for _, r := range readings {
		switch r.Kind {
		case models.KindHeartRate:
			hr = append(hr, r.Value)
		case models.KindCalories:
			kcal += r.Value
			haveKcal = true
		case models.KindDistance:
			meters += r.Value
			haveMeters = true
		}
	}

	if len(hr) > 0 {
		avg, peak, low := heartRateStats(hr)
		m.AvgHeartRate, m.MaxHeartRate, m.MinHeartRate = &avg, &peak, &low
	} else {
		m.AvgHeartRate = copyRounded(best.AvgHeartRate)
		m.MaxHeartRate = copyRounded(best.MaxHeartRate)
		m.MinHeartRate = copyRounded(best.MinHeartRate)
	}

	switch {
	case best.Calories != nil:
		m.Calories = copyRounded(best.Calories)
	case haveKcal:
		v := round1(kcal)
		m.Calories = &v
	}
	switch {
	case best.DistanceMeters != nil:
		m.DistanceMeters = copyRounded(best.DistanceMeters)
	case haveMeters:
		v := round1(meters)
		m.DistanceMeters = &v
	}

	return m
}

// samplesBetween returns the sorted samples with lo <= t <= hi.
func samplesBetween(samples []models.BiometricSample, lo, hi time.Time) []models.BiometricSample {
	i := sort.Search(len(samples), func(i int) bool { return !samples[i].Time.Before(lo) })
	j := sort.Search(len(samples), func(j int) bool { return samples[j].Time.After(hi) })
	if i >= j {
		return nil
	}
	return samples[i:j]
}

func heartRateStats(values []float64) (avg, peak, low float64) {
	peak, low = values[0], values[0]
	var sum float64
	for _, v := range values {
		sum += v
		peak = math.Max(peak, v)
		low = math.Min(low, v)
	}
	return round1(sum / float64(len(values))), round1(peak), round1(low)
}

func copyRounded(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := round1(*v)
	return &r
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
