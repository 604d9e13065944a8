package analytics

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/claude/fitfusion/internal/models"
)

// SummaryInput bundles everything the aggregator reads.
type SummaryInput struct {
	Workouts      []models.MergedWorkout
	Trends        map[string]models.ExerciseTrend
	Stream        models.BiometricStream
	Overrides     map[string]models.MuscleGroup
	Now           time.Time
	DaysRequested int
}

// Summarize produces the 7-day, 30-day and all-time rollups plus the derived
// rankings, muscle distribution and consistency score.
func Summarize(in SummaryInput, p Params) models.Summary {
	last7 := since(in.Workouts, in.Now.Add(-7*day))
	last30 := since(in.Workouts, in.Now.Add(-30*day))

	s := models.Summary{
		Last7Days:          Window(last7),
		Last30Days:         Window(last30),
		Overall:            Window(in.Workouts),
		TopExercises30d:    TopExercises(last30, p.TopExercises),
		RecentPRs:          RecentPRs(in.Trends, in.Now.Add(-30*day)),
		MuscleDistribution: MuscleDistribution(last30, in.Overrides),
		ConsistencyScore:   ConsistencyScore(in.Workouts, in.Now, in.DaysRequested, p.TargetSessionsPerWeek),
		BiometricTotals:    Totals(in.Stream),
	}

	unique := map[string]bool{}
	for _, w := range in.Workouts {
		for _, set := range w.Sets {
			unique[models.ExerciseKey(set.Exercise)] = true
			s.TotalExercisesLogged++
		}
	}
	s.UniqueExercises = len(unique)
	return s
}

func since(workouts []models.MergedWorkout, from time.Time) []models.MergedWorkout {
	var out []models.MergedWorkout
	for _, w := range workouts {
		if !w.Start.Before(from) {
			out = append(out, w)
		}
	}
	return out
}

// Window aggregates a filtered slice of workouts.
func Window(workouts []models.MergedWorkout) models.WindowStats {
	var st models.WindowStats
	var effort, hrSum float64
	hrN := 0
	for _, w := range workouts {
		st.Workouts++
		st.TotalVolumeKg += w.TotalVolumeKg
		effort += w.EffortScore
		if w.AvgHeartRate != nil {
			hrSum += *w.AvgHeartRate
			hrN++
		}
		if w.Calories != nil {
			st.CaloriesBurned += *w.Calories
		}
		st.FailureSets += w.FailureSets
		st.TotalSets += len(w.Sets)
	}

	st.TotalVolumeKg = round1(st.TotalVolumeKg)
	st.CaloriesBurned = round1(st.CaloriesBurned)
	if st.Workouts > 0 {
		st.AvgVolumeKg = round1(st.TotalVolumeKg / float64(st.Workouts))
		st.AvgEffort = round1(effort / float64(st.Workouts))
	}
	if hrN > 0 {
		avg := round1(hrSum / float64(hrN))
		st.AvgHeartRate = &avg
	}
	if st.TotalSets > 0 {
		st.FailureRatePct = round1(float64(st.FailureSets) / float64(st.TotalSets) * 100)
	}
	return st
}

// TopExercises ranks exercises by the number of sessions that include them.
// Ties are broken alphabetically.
func TopExercises(workouts []models.MergedWorkout, limit int) []models.ExerciseCount {
	counts := map[string]int{}
	names := map[string]string{}
	for _, w := range workouts {
		seen := map[string]bool{}
		for _, set := range w.Sets {
			key := models.ExerciseKey(set.Exercise)
			names[key] = set.Exercise
			if seen[key] {
				continue
			}
			seen[key] = true
			counts[key]++
		}
	}

	out := make([]models.ExerciseCount, 0, len(counts))
	for key, n := range counts {
		out = append(out, models.ExerciseCount{Exercise: names[key], Sessions: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sessions != out[j].Sessions {
			return out[i].Sessions > out[j].Sessions
		}
		return strings.ToLower(out[i].Exercise) < strings.ToLower(out[j].Exercise)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// RecentPRs lists weight and volume records achieved on or after from.
func RecentPRs(trends map[string]models.ExerciseTrend, from time.Time) []models.PersonalRecord {
	prs := []models.PersonalRecord{}
	for name, t := range trends {
		if !t.PRWeightDate.IsZero() && !t.PRWeightDate.Before(from) {
			prs = append(prs, models.PersonalRecord{Exercise: name, Type: models.PRWeight, Value: t.PRWeightKg, Date: t.PRWeightDate})
		}
		if !t.PRVolumeDate.IsZero() && !t.PRVolumeDate.Before(from) {
			prs = append(prs, models.PersonalRecord{Exercise: name, Type: models.PRVolume, Value: t.PRVolumeKg, Date: t.PRVolumeDate})
		}
	}
	sort.Slice(prs, func(i, j int) bool {
		if !prs[i].Date.Equal(prs[j].Date) {
			return prs[i].Date.After(prs[j].Date)
		}
		if prs[i].Exercise != prs[j].Exercise {
			return prs[i].Exercise < prs[j].Exercise
		}
		return prs[i].Type > prs[j].Type
	})
	return prs
}

// MuscleDistribution accumulates tonnage and set counts per muscle group.
func MuscleDistribution(workouts []models.MergedWorkout, overrides map[string]models.MuscleGroup) map[models.MuscleGroup]models.MuscleShare {
	dist := map[models.MuscleGroup]models.MuscleShare{}
	var total float64
	for _, w := range workouts {
		for _, set := range w.Sets {
			g := ClassifyMuscleGroup(set.Exercise, overrides)
			share := dist[g]
			share.VolumeKg += set.Volume()
			share.Sets++
			dist[g] = share
			total += set.Volume()
		}
	}
	for g, share := range dist {
		if total > 0 {
			share.VolumePct = round1(share.VolumeKg / total * 100)
		}
		share.VolumeKg = round1(share.VolumeKg)
		dist[g] = share
	}
	return dist
}

// ConsistencyScore averages per-week adherence to the target frequency over
// the observed span, capped to the requested range. Each week scores
// 100 × min(1, sessions/target).
func ConsistencyScore(workouts []models.MergedWorkout, now time.Time, days int, target float64) float64 {
	if len(workouts) == 0 || target <= 0 {
		return 0
	}
	first := workouts[0].Start
	for _, w := range workouts[1:] {
		if w.Start.Before(first) {
			first = w.Start
		}
	}
	if days > 0 {
		if floor := now.Add(-time.Duration(days) * day); first.Before(floor) {
			first = floor
		}
	}

	const week = 7 * day
	weeks := int(math.Ceil(float64(now.Sub(first)) / float64(week)))
	if weeks < 1 {
		weeks = 1
	}
	counts := make([]int, weeks)
	for _, w := range workouts {
		ago := now.Sub(w.Start)
		if ago < 0 || w.Start.Before(first) {
			continue
		}
		idx := int(ago / week)
		if idx >= weeks {
			idx = weeks - 1
		}
		counts[idx]++
	}

	var total float64
	for _, c := range counts {
		total += 100 * math.Min(1, float64(c)/target)
	}
	return round1(total / float64(weeks))
}

// Totals sums the raw step, distance and calorie samples.
func Totals(stream models.BiometricStream) models.BiometricTotals {
	var t models.BiometricTotals
	var meters float64
	for _, s := range stream.Samples {
		switch s.Kind {
		case models.KindSteps:
			t.Steps += s.Value
		case models.KindDistance:
			meters += s.Value
		case models.KindCalories:
			t.Calories += s.Value
		}
	}
	t.Steps = math.Round(t.Steps)
	t.DistanceKm = round1(meters / 1000)
	t.Calories = round1(t.Calories)
	return t
}
