package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchQuality is the confidence tier of a session-to-window alignment.
type MatchQuality string

const (
	MatchExact       MatchQuality = "exact"
	MatchClose       MatchQuality = "close"
	MatchApproximate MatchQuality = "approximate"
	MatchNone        MatchQuality = "none"
)

// MergedWorkout is the fused record for one training session. Biometric
// fields are nil whenever MatchQuality is MatchNone.
type MergedWorkout struct {
	TrainingSession

	AvgHeartRate   *float64 `json:"avg_heart_rate"`
	MaxHeartRate   *float64 `json:"max_heart_rate"`
	MinHeartRate   *float64 `json:"min_heart_rate"`
	Calories       *float64 `json:"calories"`
	DistanceMeters *float64 `json:"distance_meters"`

	TotalVolumeKg float64      `json:"total_volume"`
	FailureSets   int          `json:"failure_sets"`
	EffortScore   float64      `json:"effort_score"`
	MatchQuality  MatchQuality `json:"match_quality"`

	MatchGapSec     *float64   `json:"match_gap_seconds,omitempty"`
	MatchedWindowID *uuid.UUID `json:"matched_window_id,omitempty"`
}

// ExerciseTrend is the per-exercise history state, recomputed from scratch on
// every analytics run.
type ExerciseTrend struct {
	Exercise string `json:"exercise"`

	LatestWeightKg float64 `json:"latest_weight"`
	LatestReps     int     `json:"latest_reps"`
	LatestVolumeKg float64 `json:"latest_volume"`

	PRWeightKg       float64   `json:"pr_weight"`
	PRWeightDate     time.Time `json:"pr_weight_date"`
	PRVolumeKg       float64   `json:"pr_volume"`
	PRVolumeDate     time.Time `json:"pr_volume_date"`
	Estimated1RMKg   float64   `json:"estimated_1rm"`
	Estimated1RMDate time.Time `json:"estimated_1rm_date"`

	WeightTrend30dPct float64 `json:"weight_trend_30d_pct"`
	LifetimeTrendPct  float64 `json:"total_weight_gain_pct"`

	SessionCount     int      `json:"total_sessions"`
	SetCount         int      `json:"total_sets"`
	FrequencyPerWeek float64  `json:"frequency_per_week"`
	DaysSinceLast    int      `json:"days_since_last"`
	AvgRPE           *float64 `json:"avg_rpe"`
	FailureRatePct   float64  `json:"failure_rate"`
}

// Confidence is the ordinal certainty of a forecast point.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank orders confidence tiers; higher is more certain.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 2
	case ConfidenceMedium:
		return 1
	default:
		return 0
	}
}

// ForecastPoint is one projected future session.
type ForecastPoint struct {
	Date              time.Time  `json:"date"`
	PredictedVolumeKg float64    `json:"predicted_volume"`
	Confidence        Confidence `json:"confidence"`
}

// VolumeTrend classifies the recent volume slope.
type VolumeTrend string

const (
	TrendIncreasing VolumeTrend = "increasing"
	TrendDecreasing VolumeTrend = "decreasing"
	TrendStable     VolumeTrend = "stable"
)

// Forecast is the short-horizon volume prediction. When Available is false
// the numeric fields are meaningless and NextSessions is empty.
type Forecast struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`

	NextSessions            []ForecastPoint `json:"next_sessions"`
	Trend                   VolumeTrend     `json:"trend,omitempty"`
	TrendSlope              float64         `json:"trend_slope_kg_per_workout"`
	WorkoutsPerWeek         float64         `json:"workouts_per_week"`
	SmoothedVolumeKg        float64         `json:"smoothed_volume"`
	RecentAvgVolumeKg       float64         `json:"recent_avg_volume"`
	PerformanceVsAveragePct float64         `json:"performance_vs_average"`
	ExpectedWorkouts30d     int             `json:"expected_workouts_30d"`
	Predicted30dVolumeKg    float64         `json:"predicted_30d_volume"`
}

// WindowStats is a rollup over one trailing time window.
type WindowStats struct {
	Workouts       int      `json:"workouts"`
	TotalVolumeKg  float64  `json:"total_volume_kg"`
	AvgVolumeKg    float64  `json:"avg_volume_per_workout"`
	AvgEffort      float64  `json:"avg_effort"`
	AvgHeartRate   *float64 `json:"avg_heart_rate"`
	CaloriesBurned float64  `json:"calories_burned"`
	FailureSets    int      `json:"failure_sets"`
	TotalSets      int      `json:"total_sets"`
	FailureRatePct float64  `json:"failure_rate_pct"`
}

// ExerciseCount is one entry of the top-exercises ranking.
type ExerciseCount struct {
	Exercise string `json:"exercise"`
	Sessions int    `json:"times_performed"`
}

// PRType distinguishes weight from volume records.
type PRType string

const (
	PRWeight PRType = "weight"
	PRVolume PRType = "volume"
)

// PersonalRecord is a PR achieved inside the 30-day window.
type PersonalRecord struct {
	Exercise string    `json:"exercise"`
	Type     PRType    `json:"type"`
	Value    float64   `json:"value"`
	Date     time.Time `json:"date"`
}

// MuscleShare is one muscle group's slice of the training volume.
type MuscleShare struct {
	VolumeKg  float64 `json:"volume_kg"`
	VolumePct float64 `json:"volume_pct"`
	Sets      int     `json:"sets"`
}

// BiometricTotals sums the raw samples of the requested range.
type BiometricTotals struct {
	Steps      float64 `json:"total_steps"`
	DistanceKm float64 `json:"total_distance_km"`
	Calories   float64 `json:"total_calories"`
}

// Summary is the time-windowed rollup of the merged history.
type Summary struct {
	Last7Days  WindowStats `json:"last_7_days"`
	Last30Days WindowStats `json:"last_30_days"`
	Overall    WindowStats `json:"overall"`

	TopExercises30d    []ExerciseCount             `json:"top_exercises_30d"`
	RecentPRs          []PersonalRecord            `json:"recent_prs"`
	MuscleDistribution map[MuscleGroup]MuscleShare `json:"muscle_distribution"`
	ConsistencyScore   float64                     `json:"consistency_score"`

	UniqueExercises      int             `json:"unique_exercises"`
	TotalExercisesLogged int             `json:"total_exercises_logged"`
	BiometricTotals      BiometricTotals `json:"biometric_totals"`
}

// DroppedCounts reports records rejected by validation.
type DroppedCounts struct {
	Sessions int `json:"sessions"`
	Samples  int `json:"samples"`
	Windows  int `json:"windows"`
}

// Total returns the number of dropped records of any type.
func (d DroppedCounts) Total() int {
	return d.Sessions + d.Samples + d.Windows
}

// Meta describes how and when a response was produced.
type Meta struct {
	ComputedAt      time.Time     `json:"computed_at"`
	CacheTTLSeconds int           `json:"cache_ttl"`
	DaysRequested   int           `json:"days_requested"`
	DataSource      string        `json:"data_source"`
	Dropped         DroppedCounts `json:"dropped"`
	Stale           bool          `json:"stale"`
	CacheState      string        `json:"cache_state,omitempty"`
}

// Response is the complete analytics result handed to the boundary layer.
type Response struct {
	MergedWorkouts []MergedWorkout          `json:"merged_workouts"`
	Trends         map[string]ExerciseTrend `json:"trends"`
	Forecast       Forecast                 `json:"forecast"`
	Summary        Summary                  `json:"summary"`
	Meta           Meta                     `json:"meta"`
}
