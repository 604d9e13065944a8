package hevy

import (
	"fmt"
	"strings"
	"time"

	"github.com/claude/fitfusion/internal/models"
)

// workoutsPage is one page of GET /v1/workouts.
type workoutsPage struct {
	Page      int       `json:"page"`
	PageCount int       `json:"page_count"`
	Workouts  []Workout `json:"workouts"`
}

// Workout is a logged Hevy workout.
type Workout struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	StartTime       string     `json:"start_time"`
	EndTime         string     `json:"end_time"`
	CreatedAt       string     `json:"created_at"`
	DurationSeconds *float64   `json:"duration_seconds"`
	Exercises       []Exercise `json:"exercises"`
}

// Exercise is one exercise block of a workout.
type Exercise struct {
	Index int    `json:"index"`
	Title string `json:"title"`
	Sets  []Set  `json:"sets"`
}

// Set is one logged set. Every measurement is optional.
type Set struct {
	Index           int      `json:"index"`
	SetType         string   `json:"set_type"`
	WeightKg        *float64 `json:"weight_kg"`
	Reps            *int     `json:"reps"`
	DistanceMeters  *float64 `json:"distance_meters"`
	DurationSeconds *float64 `json:"duration_seconds"`
	RPE             *float64 `json:"rpe"`
	ToFailure       bool     `json:"to_failure"`
	RestSeconds     *int     `json:"rest_seconds"`
}

// Start returns the workout start, falling back to its creation time.
func (w Workout) Start() (time.Time, error) {
	for _, s := range []string{w.StartTime, w.CreatedAt} {
		if s == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing workout %s time %q: %w", w.ID, s, err)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("workout %s has no start time", w.ID)
}

// ToSession converts a Hevy workout into a training session. Warmup sets are
// left out.
func (w Workout) ToSession() (models.TrainingSession, error) {
	start, err := w.Start()
	if err != nil {
		return models.TrainingSession{}, err
	}

	s := models.TrainingSession{
		ID:          w.ID,
		Start:       start,
		Title:       w.Title,
		DurationSec: w.DurationSeconds,
		Source:      "hevy",
	}
	if s.Title == "" {
		s.Title = "Workout"
	}
	if s.DurationSec == nil && w.EndTime != "" {
		if end, err := time.Parse(time.RFC3339, w.EndTime); err == nil && end.After(start) {
			d := end.Sub(start).Seconds()
			s.DurationSec = &d
		}
	}

	for _, ex := range w.Exercises {
		name := strings.TrimSpace(ex.Title)
		if name == "" {
			name = "Unknown"
		}
		for _, set := range ex.Sets {
			if set.SetType == "warmup" {
				continue
			}
			s.Sets = append(s.Sets, models.ExerciseSet{
				Exercise:       name,
				Reps:           set.Reps,
				WeightKg:       set.WeightKg,
				RPE:            set.RPE,
				ToFailure:      set.ToFailure || set.SetType == "failure",
				RestSec:        set.RestSeconds,
				DistanceMeters: set.DistanceMeters,
				DurationSec:    set.DurationSeconds,
			})
		}
	}
	return s, nil
}
