package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/claude/fitfusion/internal/models"
)

const reasonInsufficientHistory = "insufficient history"

type volumePoint struct {
	date   time.Time
	volume float64
}

// SmoothedLevel applies simple exponential smoothing and returns the final level.
func SmoothedLevel(series []float64, alpha float64) float64 {
	if len(series) == 0 {
		return 0
	}
	level := series[0]
	for _, v := range series[1:] {
		level = alpha*v + (1-alpha)*level
	}
	return level
}

// LeastSquaresSlope fits y = a + b·x over x = 0..n-1 and returns b.
func LeastSquaresSlope(ys []float64) float64 {
	n := float64(len(ys))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// ConfidenceAt returns the tier for a 1-based projection step. It never
// increases with the step.
func ConfidenceAt(step int, p Params) models.Confidence {
	switch {
	case step <= p.HighConfidenceSteps:
		return models.ConfidenceHigh
	case step <= p.MedConfidenceSteps:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// WorkoutsPerWeek estimates training frequency from session spacing. A span
// shorter than one day yields zero, matching the per-exercise frequency.
func WorkoutsPerWeek(first, last time.Time, sessions int) float64 {
	span := last.Sub(first)
	if sessions == 0 || span < day {
		return 0
	}
	return float64(sessions) / (span.Hours() / 24) * 7
}

// BuildForecast projects the next sessions' volume from the merged history.
// With fewer than MinForecastSessions sessions it returns an unavailable
// forecast rather than a zero-filled one.
func BuildForecast(workouts []models.MergedWorkout, p Params) models.Forecast {
	minSessions := p.MinForecastSessions
	if minSessions < 2 {
		minSessions = 2
	}
	if len(workouts) < minSessions {
		return models.Forecast{Reason: reasonInsufficientHistory, NextSessions: []models.ForecastPoint{}}
	}

	points := make([]volumePoint, len(workouts))
	for i, w := range workouts {
		points[i] = volumePoint{date: w.Start, volume: w.TotalVolumeKg}
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].date.Before(points[j].date) })

	series := make([]float64, len(points))
	for i, pt := range points {
		series[i] = pt.volume
	}

	level := SmoothedLevel(series, p.SmoothingAlpha)

	window := p.SlopeWindow
	if window < 2 {
		window = 2
	}
	recent := series[max(0, len(series)-window):]
	slope := LeastSquaresSlope(recent)

	trend := models.TrendStable
	switch {
	case slope > p.TrendEpsilon:
		trend = models.TrendIncreasing
	case slope < -p.TrendEpsilon:
		trend = models.TrendDecreasing
	}

	first, last := points[0].date, points[len(points)-1].date
	wpw := WorkoutsPerWeek(first, last, len(points))

	interval := last.Sub(first) / time.Duration(len(points)-1)
	if interval < day {
		interval = day
	}

	next := make([]models.ForecastPoint, 0, p.ForecastHorizon)
	for step := 1; step <= p.ForecastHorizon; step++ {
		predicted := math.Max(0, level+slope*float64(step))
		next = append(next, models.ForecastPoint{
			Date:              last.Add(interval * time.Duration(step)),
			PredictedVolumeKg: round1(predicted),
			Confidence:        ConfidenceAt(step, p),
		})
	}

	recentAvg := mean(recent)
	allAvg := mean(series)
	perSession := math.Max(0, level+slope)
	weeksIn30d := 30.0 / 7

	return models.Forecast{
		Available:               true,
		NextSessions:            next,
		Trend:                   trend,
		TrendSlope:              round1(slope),
		WorkoutsPerWeek:         round1(wpw),
		SmoothedVolumeKg:        round1(level),
		RecentAvgVolumeKg:       round1(recentAvg),
		PerformanceVsAveragePct: pctChange(recentAvg, allAvg),
		ExpectedWorkouts30d:     int(wpw * weeksIn30d),
		Predicted30dVolumeKg:    round1(wpw * weeksIn30d * perSession),
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
