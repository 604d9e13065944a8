package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SampleKind tags a biometric reading.
type SampleKind string

const (
	KindHeartRate SampleKind = "heart_rate"
	KindCalories  SampleKind = "calories"
	KindSteps     SampleKind = "steps"
	KindDistance  SampleKind = "distance"
)

// Valid reports whether k is one of the known sample kinds.
func (k SampleKind) Valid() bool {
	switch k {
	case KindHeartRate, KindCalories, KindSteps, KindDistance:
		return true
	}
	return false
}

// BiometricSample is one timestamped physiological reading. Distance is in
// meters, calories in kcal, heart rate in bpm.
type BiometricSample struct {
	Time   time.Time  `json:"time"`
	Kind   SampleKind `json:"kind"`
	Value  float64    `json:"value"`
	Source string     `json:"source,omitempty"`
}

// Validate checks the basic shape of a sample. Errors wrap ErrMalformedInput.
func (s BiometricSample) Validate() error {
	if s.Time.IsZero() {
		return fmt.Errorf("%w: %s sample has no timestamp", ErrMalformedInput, s.Kind)
	}
	if !s.Kind.Valid() {
		return fmt.Errorf("%w: unknown sample kind %q", ErrMalformedInput, s.Kind)
	}
	if s.Value < 0 || !finite(s.Value) {
		return fmt.Errorf("%w: %s sample has invalid value %v", ErrMalformedInput, s.Kind, s.Value)
	}
	return nil
}

// WorkoutWindow is a workout boundary marker from the biometric export.
type WorkoutWindow struct {
	ID             uuid.UUID `json:"id"`
	Type           string    `json:"type"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	DurationSec    float64   `json:"duration_seconds"`
	Calories       *float64  `json:"calories"`
	DistanceMeters *float64  `json:"distance_meters"`
	AvgHeartRate   *float64  `json:"avg_heart_rate"`
	MaxHeartRate   *float64  `json:"max_heart_rate"`
	MinHeartRate   *float64  `json:"min_heart_rate"`
}

// Midpoint returns the instant halfway between start and end.
func (w WorkoutWindow) Midpoint() time.Time {
	return w.Start.Add(w.End.Sub(w.Start) / 2)
}

// Validate checks the basic shape of a window. Errors wrap ErrMalformedInput.
func (w WorkoutWindow) Validate() error {
	if w.Start.IsZero() {
		return fmt.Errorf("%w: workout window %s has no start", ErrMalformedInput, w.ID)
	}
	if w.End.Before(w.Start) {
		return fmt.Errorf("%w: workout window %s ends before it starts", ErrMalformedInput, w.ID)
	}
	return nil
}

// BiometricStream is the normalized biometric input for a date range.
// A zero stream is valid and means no biometric data is available.
type BiometricStream struct {
	Samples []BiometricSample `json:"samples"`
	Windows []WorkoutWindow   `json:"windows"`
}

// Empty reports whether the stream carries no samples and no windows.
func (s BiometricStream) Empty() bool {
	return len(s.Samples) == 0 && len(s.Windows) == 0
}

var windowNamespace = uuid.MustParse("0b7f7d44-6c1e-4f55-9d8a-3f0c2f1f5e21")

// WindowID derives a stable id from a window's type and start so repeated
// imports of the same export upsert instead of duplicating.
func WindowID(kind string, start time.Time) uuid.UUID {
	return uuid.NewSHA1(windowNamespace, []byte(kind+"|"+start.UTC().Format(time.RFC3339Nano)))
}
