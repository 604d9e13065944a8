package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// TrainingSession is one logged strength workout with its ordered sets.
type TrainingSession struct {
	ID          string        `json:"id,omitempty"`
	Start       time.Time     `json:"start"`
	Title       string        `json:"title"`
	DurationSec *float64      `json:"duration_seconds"`
	Sets        []ExerciseSet `json:"sets"`
	Source      string        `json:"source,omitempty"`
}

// ExerciseSet is a single logged set. Optional fields are nil when the
// training log did not record them.
type ExerciseSet struct {
	Exercise       string   `json:"exercise"`
	Reps           *int     `json:"reps"`
	WeightKg       *float64 `json:"weight_kg"`
	RPE            *float64 `json:"rpe"`
	ToFailure      bool     `json:"to_failure"`
	RestSec        *int     `json:"rest_seconds"`
	DistanceMeters *float64 `json:"distance_meters"`
	DurationSec    *float64 `json:"duration_seconds"`
}

// Volume returns weight × reps, or 0 unless both are present and positive.
func (s ExerciseSet) Volume() float64 {
	if s.WeightKg == nil || s.Reps == nil {
		return 0
	}
	if *s.WeightKg <= 0 || *s.Reps <= 0 {
		return 0
	}
	return *s.WeightKg * float64(*s.Reps)
}

// Weighted reports whether the set carries a positive weight and rep count.
func (s ExerciseSet) Weighted() bool {
	return s.Volume() > 0
}

// ExerciseKey is the case-normalized identity of an exercise name.
func ExerciseKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Validate checks the basic shape of a session. Errors wrap ErrMalformedInput.
func (s TrainingSession) Validate() error {
	if s.Start.IsZero() {
		return fmt.Errorf("%w: session %q has no start time", ErrMalformedInput, s.Title)
	}
	if s.DurationSec != nil && (*s.DurationSec < 0 || !finite(*s.DurationSec)) {
		return fmt.Errorf("%w: session %q has invalid duration %v", ErrMalformedInput, s.Title, *s.DurationSec)
	}
	for i, set := range s.Sets {
		if err := set.validate(); err != nil {
			return fmt.Errorf("%w: session %q set %d: %s", ErrMalformedInput, s.Title, i+1, err)
		}
	}
	return nil
}

func (s ExerciseSet) validate() error {
	if strings.TrimSpace(s.Exercise) == "" {
		return fmt.Errorf("missing exercise name")
	}
	if s.Reps != nil && *s.Reps < 0 {
		return fmt.Errorf("negative reps %d", *s.Reps)
	}
	if s.WeightKg != nil && (*s.WeightKg < 0 || !finite(*s.WeightKg)) {
		return fmt.Errorf("invalid weight %v", *s.WeightKg)
	}
	if s.RPE != nil && (*s.RPE < 0 || *s.RPE > 10 || !finite(*s.RPE)) {
		return fmt.Errorf("rpe %v outside 0..10", *s.RPE)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
