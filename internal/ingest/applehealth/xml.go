package applehealth

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/claude/fitfusion/internal/models"
)

// xmlRecord is a <Record> element of export.xml.
type xmlRecord struct {
	Type       string `xml:"type,attr"`
	Unit       string `xml:"unit,attr"`
	Value      string `xml:"value,attr"`
	SourceName string `xml:"sourceName,attr"`
	StartDate  string `xml:"startDate,attr"`
}

// xmlWorkout is a <Workout> element of export.xml.
type xmlWorkout struct {
	ActivityType      string `xml:"workoutActivityType,attr"`
	Duration          string `xml:"duration,attr"`
	DurationUnit      string `xml:"durationUnit,attr"`
	TotalDistance     string `xml:"totalDistance,attr"`
	TotalDistanceUnit string `xml:"totalDistanceUnit,attr"`
	TotalEnergy       string `xml:"totalEnergyBurned,attr"`
	TotalEnergyUnit   string `xml:"totalEnergyBurnedUnit,attr"`
	StartDate         string `xml:"startDate,attr"`
	EndDate           string `xml:"endDate,attr"`
}

// ParseXML streams an export.xml document. Elements that cannot be parsed
// are logged and skipped; only a broken document is an error.
func ParseXML(r io.Reader, log *slog.Logger) (models.BiometricStream, error) {
	var stream models.BiometricStream
	dec := xml.NewDecoder(r)
	dec.Strict = false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stream, fmt.Errorf("%w: reading health xml: %w", models.ErrMalformedInput, err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "Record":
			var rec xmlRecord
			if err := dec.DecodeElement(&rec, &se); err != nil {
				return stream, fmt.Errorf("%w: decoding record: %w", models.ErrMalformedInput, err)
			}
			s, ok, err := rec.sample()
			if err != nil {
				log.Debug("skipping health record", "type", rec.Type, "error", err)
				continue
			}
			if ok {
				stream.Samples = append(stream.Samples, s)
			}

		case "Workout":
			var w xmlWorkout
			if err := dec.DecodeElement(&w, &se); err != nil {
				return stream, fmt.Errorf("%w: decoding workout: %w", models.ErrMalformedInput, err)
			}
			win, err := w.window()
			if err != nil {
				log.Warn("skipping health workout", "type", w.ActivityType, "error", err)
				continue
			}
			stream.Windows = append(stream.Windows, win)
		}
	}
	return stream, nil
}

func (r xmlRecord) sample() (models.BiometricSample, bool, error) {
	kind, ok := kindForRecord(r.Type)
	if !ok {
		return models.BiometricSample{}, false, nil
	}
	at, err := parseTime(r.StartDate)
	if err != nil {
		return models.BiometricSample{}, false, err
	}
	v, err := parseFloat(r.Value)
	if err != nil {
		return models.BiometricSample{}, false, fmt.Errorf("parsing value %q: %w", r.Value, err)
	}
	switch kind {
	case models.KindDistance:
		v = toMeters(v, r.Unit)
	case models.KindCalories:
		v = toKcal(v, r.Unit)
	}
	src := r.SourceName
	if src == "" {
		src = source
	}
	return models.BiometricSample{Time: at, Kind: kind, Value: v, Source: src}, true, nil
}

func (w xmlWorkout) window() (models.WorkoutWindow, error) {
	start, err := parseTime(w.StartDate)
	if err != nil {
		return models.WorkoutWindow{}, fmt.Errorf("parsing start: %w", err)
	}
	var end = start
	if w.EndDate != "" {
		if end, err = parseTime(w.EndDate); err != nil {
			return models.WorkoutWindow{}, fmt.Errorf("parsing end: %w", err)
		}
	}
	dur, err := parseFloat(w.Duration)
	if err != nil {
		return models.WorkoutWindow{}, fmt.Errorf("parsing duration: %w", err)
	}
	kcal, _ := parseFloat(w.TotalEnergy)
	dist, _ := parseFloat(w.TotalDistance)

	unit := w.DurationUnit
	if unit == "" {
		unit = "min"
	}
	return window(w.ActivityType, start, end,
		toSeconds(dur, unit), toKcal(kcal, w.TotalEnergyUnit), toMeters(dist, w.TotalDistanceUnit)), nil
}
