// Package applehealth parses Apple Health exports into a biometric stream.
// Three shapes are accepted: the native export.xml, a JSON document with
// workouts and per-kind record arrays, and a CSV of workouts.
package applehealth

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/claude/fitfusion/internal/models"
)

const source = "Apple Health"

// Format is an accepted upload format.
type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// FormatFromFilename picks the parser from a file extension.
func FormatFromFilename(name string) (Format, error) {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")); ext {
	case "xml":
		return FormatXML, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: unsupported file type %q (xml, json or csv)", models.ErrMalformedInput, ext)
	}
}

// recordKinds maps HealthKit record type suffixes to sample kinds.
var recordKinds = []struct {
	suffix string
	kind   models.SampleKind
}{
	{"HeartRate", models.KindHeartRate},
	{"StepCount", models.KindSteps},
	{"DistanceWalkingRunning", models.KindDistance},
	{"ActiveEnergyBurned", models.KindCalories},
}

// kindForRecord returns the sample kind for a HealthKit type such as
// HKQuantityTypeIdentifierHeartRate. Resting and variability types are not
// heart-rate samples.
func kindForRecord(recordType string) (models.SampleKind, bool) {
	for _, rk := range recordKinds {
		if strings.HasSuffix(recordType, "Identifier"+rk.suffix) {
			return rk.kind, true
		}
	}
	return "", false
}

// parseTime accepts the export layout "2006-01-02 15:04:05 -0700",
// RFC 3339 and a bare date.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t, nil
	}
	return models.ParseHAETime(s)
}

// parseFloat treats an empty string as zero.
func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// toMeters converts a distance in an export unit. Unknown units are meters.
func toMeters(v float64, unit string) float64 {
	switch strings.ToLower(unit) {
	case "km":
		return v * 1000
	case "mi":
		return v * 1609.344
	case "cm":
		return v / 100
	default:
		return v
	}
}

// toSeconds converts a workout duration in an export unit. The native
// export uses minutes; the JSON and CSV shapes use seconds.
func toSeconds(v float64, unit string) float64 {
	switch strings.ToLower(unit) {
	case "min":
		return v * 60
	case "hr", "h":
		return v * 3600
	default:
		return v
	}
}

func toKcal(v float64, unit string) float64 {
	if strings.EqualFold(unit, "kJ") {
		return v / 4.184
	}
	return v
}

// window builds a workout window, deriving whichever of end and duration
// is missing from the other.
func window(kind string, start, end time.Time, durationSec, kcal, meters float64) models.WorkoutWindow {
	kind = strings.TrimPrefix(kind, "HKWorkoutActivityType")
	if kind == "" {
		kind = "Other"
	}
	if end.IsZero() || !end.After(start) {
		end = start.Add(time.Duration(durationSec * float64(time.Second)))
	}
	if durationSec <= 0 {
		durationSec = end.Sub(start).Seconds()
	}
	w := models.WorkoutWindow{
		ID:          models.WindowID(kind, start),
		Type:        kind,
		Start:       start,
		End:         end,
		DurationSec: durationSec,
	}
	if kcal > 0 {
		w.Calories = &kcal
	}
	if meters > 0 {
		w.DistanceMeters = &meters
	}
	return w
}
