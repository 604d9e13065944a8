package analytics

import (
	"sort"
	"time"

	"github.com/claude/fitfusion/internal/models"
)

const day = 24 * time.Hour

// Epley1RM estimates a one-rep max from a set.
func Epley1RM(weightKg float64, reps int) float64 {
	if reps <= 0 {
		return weightKg
	}
	return weightKg * (1 + float64(reps)/30)
}

// sessionWeight is the mean working weight of one exercise in one session.
type sessionWeight struct {
	date  time.Time
	sum   float64
	count int
}

func (s sessionWeight) mean() float64 {
	if s.count == 0 {
		return 0
	}
	return s.sum / float64(s.count)
}

// exerciseAcc is the running state of one pass over an exercise's history.
type exerciseAcc struct {
	name string

	sets     int
	failures int
	rpeSum   float64
	rpeN     int

	sessions []sessionWeight
	lastIdx  int

	latest     models.ExerciseSet
	latestDate time.Time

	prWeight, prVolume, best1RM          float64
	prWeightDate, prVolumeDate, bestDate time.Time
}

func (a *exerciseAcc) add(set models.ExerciseSet, workoutIdx int, date time.Time) {
	a.name = set.Exercise
	a.sets++
	if set.ToFailure {
		a.failures++
	}
	if set.RPE != nil {
		a.rpeSum += *set.RPE
		a.rpeN++
	}
	if !set.Weighted() {
		return
	}

	w, reps := *set.WeightKg, *set.Reps
	if len(a.sessions) == 0 || a.lastIdx != workoutIdx {
		a.sessions = append(a.sessions, sessionWeight{date: date})
		a.lastIdx = workoutIdx
	}
	cur := &a.sessions[len(a.sessions)-1]
	cur.sum += w
	cur.count++

	a.latest = set
	a.latestDate = date

	// Strict comparisons keep the date of the first session reaching a maximum.
	if w > a.prWeight {
		a.prWeight, a.prWeightDate = w, date
	}
	if v := set.Volume(); v > a.prVolume {
		a.prVolume, a.prVolumeDate = v, date
	}
	if orm := Epley1RM(w, reps); orm > a.best1RM {
		a.best1RM, a.bestDate = orm, date
	}
}

// accumulate scans the history once in ascending date order.
func accumulate(workouts []models.MergedWorkout, only string) map[string]*exerciseAcc {
	order := make([]int, len(workouts))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return workouts[order[i]].Start.Before(workouts[order[j]].Start)
	})

	accs := map[string]*exerciseAcc{}
	for _, idx := range order {
		w := workouts[idx]
		for _, set := range w.Sets {
			key := models.ExerciseKey(set.Exercise)
			if only != "" && key != only {
				continue
			}
			a, ok := accs[key]
			if !ok {
				a = &exerciseAcc{lastIdx: -1}
				accs[key] = a
			}
			a.add(set, idx, w.Start)
		}
	}
	return accs
}

func (a *exerciseAcc) trend(now time.Time, p Params) (models.ExerciseTrend, bool) {
	if len(a.sessions) == 0 {
		return models.ExerciseTrend{}, false
	}
	first, last := a.sessions[0], a.sessions[len(a.sessions)-1]

	t := models.ExerciseTrend{
		Exercise:         a.name,
		LatestWeightKg:   *a.latest.WeightKg,
		LatestReps:       *a.latest.Reps,
		LatestVolumeKg:   round1(a.latest.Volume()),
		PRWeightKg:       a.prWeight,
		PRWeightDate:     a.prWeightDate,
		PRVolumeKg:       round1(a.prVolume),
		PRVolumeDate:     a.prVolumeDate,
		Estimated1RMKg:   round1(a.best1RM),
		Estimated1RMDate: a.bestDate,
		SessionCount:     len(a.sessions),
		SetCount:         a.sets,
	}

	if len(a.sessions) >= 2 {
		t.WeightTrend30dPct = windowTrend(a.sessions, now, p.TrendWindow)
		t.LifetimeTrendPct = pctChange(last.mean(), first.mean())
		if span := last.date.Sub(first.date); span >= day {
			t.FrequencyPerWeek = round1(float64(len(a.sessions)) / (span.Hours() / 24 / 7))
		}
	}

	if since := now.Sub(a.latestDate); since > 0 {
		t.DaysSinceLast = int(since / day)
	}
	if a.rpeN > 0 {
		avg := round1(a.rpeSum / float64(a.rpeN))
		t.AvgRPE = &avg
	}
	if a.sets > 0 {
		t.FailureRatePct = round1(float64(a.failures) / float64(a.sets) * 100)
	}
	return t, true
}

// windowTrend compares the mean session weight of (now-w, now] against
// (now-2w, now-w]. With no prior-window sessions it compares the first and
// last sessions of the recent window instead.
func windowTrend(sessions []sessionWeight, now time.Time, window time.Duration) float64 {
	recentFrom := now.Add(-window)
	priorFrom := now.Add(-2 * window)

	var recent, prior []sessionWeight
	for _, s := range sessions {
		switch {
		case s.date.After(recentFrom):
			recent = append(recent, s)
		case s.date.After(priorFrom):
			prior = append(prior, s)
		}
	}

	switch {
	case len(recent) > 0 && len(prior) > 0:
		return pctChange(meanOf(recent), meanOf(prior))
	case len(recent) >= 2:
		return pctChange(recent[len(recent)-1].mean(), recent[0].mean())
	default:
		return 0
	}
}

func meanOf(sessions []sessionWeight) float64 {
	var sum float64
	for _, s := range sessions {
		sum += s.mean()
	}
	return sum / float64(len(sessions))
}

func pctChange(current, base float64) float64 {
	if base <= 0 {
		return 0
	}
	return round1((current - base) / base * 100)
}

// Trends computes one trend per exercise over the full history, keyed by
// the most recently logged spelling of the exercise name.
func Trends(workouts []models.MergedWorkout, now time.Time, p Params) map[string]models.ExerciseTrend {
	out := map[string]models.ExerciseTrend{}
	for _, a := range accumulate(workouts, "") {
		if t, ok := a.trend(now, p); ok {
			out[t.Exercise] = t
		}
	}
	return out
}

// TrackExercise computes the trend of a single exercise. The name is matched
// case-insensitively. It reports false when the exercise has no weighted sets.
func TrackExercise(name string, workouts []models.MergedWorkout, now time.Time, p Params) (models.ExerciseTrend, bool) {
	key := models.ExerciseKey(name)
	a, ok := accumulate(workouts, key)[key]
	if !ok {
		return models.ExerciseTrend{}, false
	}
	return a.trend(now, p)
}
