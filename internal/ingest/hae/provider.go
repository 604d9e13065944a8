package hae

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/claude/fitfusion/internal/ingest"
	"github.com/claude/fitfusion/internal/models"
	"github.com/google/uuid"
)

const source = "Health Auto Export"

// Provider processes Health Auto Export REST API payloads.
type Provider struct {
	store ingest.BiometricStore
	log   *slog.Logger
}

// NewProvider creates a new HAE ingest provider.
func NewProvider(store ingest.BiometricStore, log *slog.Logger) *Provider {
	return &Provider{store: store, log: log}
}

// Ingest normalizes an HAE payload and stores accepted samples and windows.
func (p *Provider) Ingest(ctx context.Context, payload *models.HAEPayload) (*ingest.Result, error) {
	stream, rejected := ToStream(payload, p.log)

	result := &ingest.Result{SamplesRejected: rejected.Points, RejectedNames: rejected.Names}
	if err := ingest.StoreStream(ctx, p.store, stream, result, p.log); err != nil {
		return result, fmt.Errorf("storing hae payload: %w", err)
	}

	if len(result.RejectedNames) > 0 {
		result.Message = fmt.Sprintf(
			"Some metrics were ignored because FitFusion does not use them: %v. "+
				"Heart rate, steps, active energy and walking/running distance are stored.",
			result.RejectedNames)
	}
	return result, nil
}

// Rejected summarizes metrics FitFusion does not track.
type Rejected struct {
	Names  []string
	Points int
}

// ToStream converts a payload into a biometric stream. Metrics FitFusion does
// not track are reported by name; unparseable points are logged and skipped.
func ToStream(payload *models.HAEPayload, log *slog.Logger) (models.BiometricStream, Rejected) {
	var stream models.BiometricStream
	var rej Rejected
	seen := map[string]bool{}

	for _, m := range payload.Data.Metrics {
		kind, ok := KindFor(m.Name)
		if !ok {
			if !seen[m.Name] {
				rej.Names = append(rej.Names, m.Name)
				seen[m.Name] = true
			}
			rej.Points += len(m.Data)
			continue
		}
		for _, raw := range m.Data {
			s, err := convertMetricDataPoint(m.Name, m.Units, kind, raw)
			if err != nil {
				log.Warn("skipping data point", "metric", m.Name, "error", err)
				continue
			}
			stream.Samples = append(stream.Samples, s)
		}
	}
	sort.Strings(rej.Names)

	for _, w := range payload.Data.Workouts {
		window := convertWorkout(w)
		stream.Windows = append(stream.Windows, window)

		// Per-workout HR series become ordinary heart-rate samples so the
		// matcher can aggregate them over the session range.
		for _, hr := range w.HeartRateData {
			stream.Samples = append(stream.Samples, models.BiometricSample{
				Time:   hr.Date.Time,
				Kind:   models.KindHeartRate,
				Value:  hr.Avg,
				Source: sourceOr(hr.Source),
			})
		}
	}
	return stream, rej
}

// convertMetricDataPoint decodes one point according to the metric's shape.
func convertMetricDataPoint(name, units string, kind models.SampleKind, raw json.RawMessage) (models.BiometricSample, error) {
	switch DetectMetricShape(name) {
	case ShapeMinAvgMax:
		var dp models.HAEHeartRateDataPoint
		if err := json.Unmarshal(raw, &dp); err != nil {
			return models.BiometricSample{}, fmt.Errorf("parsing min/avg/max: %w", err)
		}
		return models.BiometricSample{Time: dp.Date.Time, Kind: kind, Value: dp.Avg, Source: sourceOr(dp.Source)}, nil

	default:
		var dp models.HAEMetricDataPoint
		if err := json.Unmarshal(raw, &dp); err != nil {
			return models.BiometricSample{}, fmt.Errorf("parsing qty: %w", err)
		}
		return models.BiometricSample{
			Time:   dp.Date.Time,
			Kind:   kind,
			Value:  normalize(kind, dp.Qty, units),
			Source: sourceOr(dp.Source),
		}, nil
	}
}

func convertWorkout(w models.HAEWorkout) models.WorkoutWindow {
	id, err := uuid.Parse(w.ID)
	if err != nil {
		id = models.WindowID(w.Name, w.Start.Time)
	}
	win := models.WorkoutWindow{
		ID:          id,
		Type:        w.Name,
		Start:       w.Start.Time,
		End:         w.End.Time,
		DurationSec: w.Duration,
	}
	if win.DurationSec == 0 && !win.End.IsZero() {
		win.DurationSec = win.End.Sub(win.Start).Seconds()
	}

	if w.ActiveEnergyBurned != nil {
		kcal := toKcal(w.ActiveEnergyBurned.Qty, w.ActiveEnergyBurned.Units)
		win.Calories = &kcal
	}
	if w.Distance != nil {
		m := toMeters(w.Distance.Qty, w.Distance.Units)
		win.DistanceMeters = &m
	}

	if w.HeartRate != nil {
		avg, hi, lo := w.HeartRate.Avg.Qty, w.HeartRate.Max.Qty, w.HeartRate.Min.Qty
		win.AvgHeartRate, win.MaxHeartRate, win.MinHeartRate = &avg, &hi, &lo
	} else {
		if w.AvgHR != nil {
			avg := w.AvgHR.Qty
			win.AvgHeartRate = &avg
		}
		if w.MaxHR != nil {
			hi := w.MaxHR.Qty
			win.MaxHeartRate = &hi
		}
	}
	return win
}

func sourceOr(s string) string {
	if s == "" {
		return source
	}
	return s
}
