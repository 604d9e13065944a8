package applehealth

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/claude/fitfusion/internal/models"
)

// csvColumns lists accepted header names per field, preferred first.
var csvColumns = map[string][]string{
	"date":     {"date", "startdate", "start"},
	"type":     {"workout_type", "type"},
	"duration": {"duration", "duration_seconds"},
	"calories": {"calories", "totalenergyburned"},
	"distance": {"distance", "totaldistance"},
	"avg_hr":   {"avg_hr", "avg_heart_rate"},
}

// ParseCSV reads a workout CSV with a header row. Each row becomes a window;
// an average heart rate column also yields one heart-rate sample at the
// workout start and sets the window's HR summary.
func ParseCSV(r io.Reader, log *slog.Logger) (models.BiometricStream, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return models.BiometricStream{}, nil
	}
	if err != nil {
		return models.BiometricStream{}, fmt.Errorf("%w: reading csv header: %w", models.ErrMalformedInput, err)
	}
	index := columnIndex(header)
	if _, ok := index["date"]; !ok {
		return models.BiometricStream{}, fmt.Errorf("%w: csv has no date column", models.ErrMalformedInput)
	}

	var stream models.BiometricStream
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stream, fmt.Errorf("%w: reading csv line %d: %w", models.ErrMalformedInput, line, err)
		}
		field := func(name string) string {
			if i, ok := index[name]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		start, err := parseTime(field("date"))
		if err != nil {
			log.Warn("skipping csv row", "line", line, "error", err)
			continue
		}
		dur, errDur := parseFloat(field("duration"))
		kcal, errCal := parseFloat(field("calories"))
		dist, errDist := parseFloat(field("distance"))
		if err := errors.Join(errDur, errCal, errDist); err != nil {
			log.Warn("skipping csv row", "line", line, "error", err)
			continue
		}

		kind := field("type")
		w := window(kind, start, start, dur, kcal, dist)
		if hr := field("avg_hr"); hr != "" {
			if v, err := parseFloat(hr); err == nil && v > 0 {
				w.AvgHeartRate = &v
				stream.Samples = append(stream.Samples, models.BiometricSample{
					Time: start, Kind: models.KindHeartRate, Value: v, Source: source,
				})
			}
		}
		stream.Windows = append(stream.Windows, w)
	}
	return stream, nil
}

func columnIndex(header []string) map[string]int {
	positions := map[string]int{}
	for i, h := range header {
		positions[strings.ToLower(strings.TrimSpace(h))] = i
	}
	index := map[string]int{}
	for field, names := range csvColumns {
		for _, n := range names {
			if i, ok := positions[n]; ok {
				index[field] = i
				break
			}
		}
	}
	return index
}
