package analytics

import (
	"io"
	"log/slog"
	"time"

	"github.com/claude/fitfusion/internal/models"
	"github.com/google/uuid"
)

var testNow = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

func intp(v int) *int             { return &v }
func floatp(v float64) *float64   { return &v }
func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func set(exercise string, weight float64, reps int) models.ExerciseSet {
	return models.ExerciseSet{Exercise: exercise, WeightKg: floatp(weight), Reps: intp(reps)}
}

func session(start time.Time, minutes float64, sets ...models.ExerciseSet) models.TrainingSession {
	d := minutes * 60
	return models.TrainingSession{Start: start, Title: "Workout", DurationSec: &d, Sets: sets}
}

func window(start time.Time, minutes int) models.WorkoutWindow {
	return models.WorkoutWindow{
		ID:          uuid.New(),
		Type:        "Traditional Strength Training",
		Start:       start,
		End:         start.Add(time.Duration(minutes) * time.Minute),
		DurationSec: float64(minutes * 60),
	}
}

func hrSamples(from time.Time, minutes int, bpm ...float64) []models.BiometricSample {
	var out []models.BiometricSample
	for i, v := range bpm {
		out = append(out, models.BiometricSample{
			Time:  from.Add(time.Duration(i*minutes) * time.Minute),
			Kind:  models.KindHeartRate,
			Value: v,
		})
	}
	return out
}

func merged(start time.Time, volume float64, sets ...models.ExerciseSet) models.MergedWorkout {
	return models.MergedWorkout{
		TrainingSession: models.TrainingSession{Start: start, Title: "Workout", Sets: sets},
		TotalVolumeKg:   volume,
		MatchQuality:    models.MatchNone,
	}
}
