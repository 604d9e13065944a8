package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Health Auto Export REST payloads. Only the fields FitFusion reads are
// declared; everything else in the export is ignored by encoding/json.

// haeLayouts are tried in order. The app writes the first; manual exports
// and older versions produce the others.
var haeLayouts = []string{
	"2006-01-02 15:04:05 -0700",
	time.RFC3339,
	"2006-01-02",
}

// HAETime is a timestamp in one of the app's formats.
type HAETime struct {
	time.Time
}

func (t *HAETime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("hae time: %w", err)
	}
	parsed, err := ParseHAETime(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t HAETime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Format(haeLayouts[0]))
}

// ParseHAETime parses s with the first matching HAE layout.
func ParseHAETime(s string) (time.Time, error) {
	for _, layout := range haeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized HAE time %q", ErrMalformedInput, s)
}

// HAEPayload is the body the app POSTs to the ingest endpoint.
type HAEPayload struct {
	Data struct {
		Metrics  []HAEMetric  `json:"metrics"`
		Workouts []HAEWorkout `json:"workouts"`
	} `json:"data"`
}

// HAEMetric is one named series. Points stay raw because their shape
// depends on the metric.
type HAEMetric struct {
	Name  string            `json:"name"`
	Units string            `json:"units"`
	Data  []json.RawMessage `json:"data"`
}

// HAEMetricDataPoint is a plain quantity point.
type HAEMetricDataPoint struct {
	Date   HAETime `json:"date"`
	Qty    float64 `json:"qty"`
	Source string  `json:"source,omitempty"`
}

// HAEHeartRateDataPoint is a min/avg/max point. The app capitalizes these
// keys.
type HAEHeartRateDataPoint struct {
	Date   HAETime `json:"date"`
	Min    float64 `json:"Min"`
	Avg    float64 `json:"Avg"`
	Max    float64 `json:"Max"`
	Source string  `json:"source,omitempty"`
}

// HAEQuantity is a value with its unit.
type HAEQuantity struct {
	Qty   float64 `json:"qty"`
	Units string  `json:"units"`
}

// HAEWorkout is a version 2 workout. Heart rate arrives either as the nested
// heartRate summary or as the flat avg/max fields, depending on app version.
type HAEWorkout struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Start    HAETime `json:"start"`
	End      HAETime `json:"end"`
	Duration float64 `json:"duration"`

	ActiveEnergyBurned *HAEQuantity `json:"activeEnergyBurned,omitempty"`
	Distance           *HAEQuantity `json:"distance,omitempty"`

	HeartRate *struct {
		Min HAEQuantity `json:"min"`
		Avg HAEQuantity `json:"avg"`
		Max HAEQuantity `json:"max"`
	} `json:"heartRate,omitempty"`
	AvgHR *HAEQuantity `json:"avgHeartRate,omitempty"`
	MaxHR *HAEQuantity `json:"maxHeartRate,omitempty"`

	HeartRateData []HAEHeartRateDataPoint `json:"heartRateData,omitempty"`
}
