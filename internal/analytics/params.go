package analytics

import "time"

// Params holds every tunable coefficient of the pipeline. The defaults are
// product choices, not derived constants; all of them are overridable from
// the analytics section of the config file.
type Params struct {
	// Session matching.
	DefaultSessionDuration time.Duration
	MatchRadius            time.Duration
	ExactThreshold         time.Duration
	CloseThreshold         time.Duration

	// Effort score.
	MaxHeartRate        float64
	EffortRPEWeight     float64
	EffortHRWeight      float64
	EffortFailureWeight float64

	// Trends.
	TrendWindow time.Duration

	// Forecast.
	SmoothingAlpha      float64
	SlopeWindow         int
	TrendEpsilon        float64
	ForecastHorizon     int
	MinForecastSessions int
	HighConfidenceSteps int
	MedConfidenceSteps  int

	// Summary.
	TopExercises          int
	TargetSessionsPerWeek float64
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		DefaultSessionDuration: 60 * time.Minute,
		MatchRadius:            45 * time.Minute,
		ExactThreshold:         5 * time.Minute,
		CloseThreshold:         30 * time.Minute,

		MaxHeartRate:        190, // 220 - age 30
		EffortRPEWeight:     0.4,
		EffortHRWeight:      0.4,
		EffortFailureWeight: 0.2,

		TrendWindow: 30 * 24 * time.Hour,

		SmoothingAlpha:      0.3,
		SlopeWindow:         7,
		TrendEpsilon:        10,
		ForecastHorizon:     10,
		MinForecastSessions: 2,
		HighConfidenceSteps: 2,
		MedConfidenceSteps:  5,

		TopExercises:          5,
		TargetSessionsPerWeek: 3,
	}
}
