package applehealth

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/claude/fitfusion/internal/models"
)

// jsonExport is the JSON upload shape: workouts plus one array per kind.
// Durations are seconds, distances meters, energy kcal.
type jsonExport struct {
	Workouts []struct {
		Type     string  `json:"type"`
		Start    string  `json:"start"`
		End      string  `json:"end"`
		Duration float64 `json:"duration"`
		Calories float64 `json:"calories"`
		Distance float64 `json:"distance"`
	} `json:"workouts"`
	HeartRate []jsonPoint `json:"heart_rate"`
	Steps     []jsonPoint `json:"steps"`
	Distance  []jsonPoint `json:"distance"`
	Calories  []jsonPoint `json:"calories"`
}

type jsonPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// ParseJSON decodes the JSON upload shape.
func ParseJSON(r io.Reader, log *slog.Logger) (models.BiometricStream, error) {
	var doc jsonExport
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return models.BiometricStream{}, fmt.Errorf("%w: decoding health json: %w", models.ErrMalformedInput, err)
	}

	var stream models.BiometricStream
	for _, w := range doc.Workouts {
		start, err := parseTime(w.Start)
		if err != nil {
			log.Warn("skipping health workout", "type", w.Type, "error", err)
			continue
		}
		var end = start
		if w.End != "" {
			if end, err = parseTime(w.End); err != nil {
				log.Warn("skipping health workout", "type", w.Type, "error", err)
				continue
			}
		}
		stream.Windows = append(stream.Windows, window(w.Type, start, end, w.Duration, w.Calories, w.Distance))
	}

	for _, series := range []struct {
		kind   models.SampleKind
		points []jsonPoint
	}{
		{models.KindHeartRate, doc.HeartRate},
		{models.KindSteps, doc.Steps},
		{models.KindDistance, doc.Distance},
		{models.KindCalories, doc.Calories},
	} {
		for _, p := range series.points {
			at, err := parseTime(p.Date)
			if err != nil {
				log.Debug("skipping health point", "kind", series.kind, "error", err)
				continue
			}
			stream.Samples = append(stream.Samples, models.BiometricSample{
				Time: at, Kind: series.kind, Value: p.Value, Source: source,
			})
		}
	}
	return stream, nil
}
