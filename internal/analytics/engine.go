package analytics

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/claude/fitfusion/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/claude/fitfusion/internal/analytics"

// Input is one pipeline run's worth of raw data.
type Input struct {
	Sessions      []models.TrainingSession
	Stream        models.BiometricStream
	Overrides     map[string]models.MuscleGroup
	Now           time.Time
	DaysRequested int
}

// Engine runs matcher, deriver, trends, forecast and summary over one input.
// It holds no state between runs.
type Engine struct {
	params Params
	log    *slog.Logger
	tracer trace.Tracer
}

// NewEngine creates an Engine with the given coefficients.
func NewEngine(p Params, log *slog.Logger) *Engine {
	return &Engine{params: p, log: log, tracer: otel.Tracer(tracerName)}
}

// Params returns the engine's coefficients.
func (e *Engine) Params() Params {
	return e.params
}

// Run executes the full pipeline. Malformed records are dropped and counted
// in Meta.Dropped; they never fail the run.
func (e *Engine) Run(ctx context.Context, in Input) (*models.Response, error) {
	ctx, span := e.tracer.Start(ctx, "analytics.Run", trace.WithAttributes(
		attribute.Int("sessions", len(in.Sessions)),
		attribute.Int("samples", len(in.Stream.Samples)),
		attribute.Int("windows", len(in.Stream.Windows)),
	))
	defer span.End()

	sessions, stream, dropped := e.validate(in)
	if dropped.Total() > 0 {
		e.log.Warn("dropped malformed records",
			"sessions", dropped.Sessions, "samples", dropped.Samples, "windows", dropped.Windows)
	}

	merged := e.merge(ctx, sessions, stream)

	var (
		trends   map[string]models.ExerciseTrend
		forecast models.Forecast
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, s := e.tracer.Start(gctx, "analytics.Trends")
		defer s.End()
		trends = Trends(merged, in.Now, e.params)
		return gctx.Err()
	})
	g.Go(func() error {
		_, s := e.tracer.Start(gctx, "analytics.Forecast")
		defer s.End()
		forecast = BuildForecast(merged, e.params)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Summary reads the finished trends for its recent PRs.
	_, sumSpan := e.tracer.Start(ctx, "analytics.Summary")
	summary := Summarize(SummaryInput{
		Workouts:      merged,
		Trends:        trends,
		Stream:        stream,
		Overrides:     in.Overrides,
		Now:           in.Now,
		DaysRequested: in.DaysRequested,
	}, e.params)
	sumSpan.End()

	return &models.Response{
		MergedWorkouts: merged,
		Trends:         trends,
		Forecast:       forecast,
		Summary:        summary,
		Meta: models.Meta{
			ComputedAt:    in.Now,
			DaysRequested: in.DaysRequested,
			Dropped:       dropped,
		},
	}, nil
}

func (e *Engine) validate(in Input) ([]models.TrainingSession, models.BiometricStream, models.DroppedCounts) {
	var dropped models.DroppedCounts

	sessions := make([]models.TrainingSession, 0, len(in.Sessions))
	for _, s := range in.Sessions {
		if err := s.Validate(); err != nil {
			e.log.Debug("dropping session", "error", err)
			dropped.Sessions++
			continue
		}
		sessions = append(sessions, s)
	}

	var stream models.BiometricStream
	stream.Samples = make([]models.BiometricSample, 0, len(in.Stream.Samples))
	for _, s := range in.Stream.Samples {
		if err := s.Validate(); err != nil {
			dropped.Samples++
			continue
		}
		stream.Samples = append(stream.Samples, s)
	}
	for _, w := range in.Stream.Windows {
		if err := w.Validate(); err != nil {
			e.log.Debug("dropping workout window", "error", err)
			dropped.Windows++
			continue
		}
		stream.Windows = append(stream.Windows, w)
	}
	sort.SliceStable(stream.Samples, func(i, j int) bool {
		return stream.Samples[i].Time.Before(stream.Samples[j].Time)
	})
	return sessions, stream, dropped
}

// merge matches and derives every session, newest first.
func (e *Engine) merge(ctx context.Context, sessions []models.TrainingSession, stream models.BiometricStream) []models.MergedWorkout {
	_, span := e.tracer.Start(ctx, "analytics.Merge")
	defer span.End()

	merged := make([]models.MergedWorkout, 0, len(sessions))
	counts := map[models.MatchQuality]int{}
	for _, s := range sessions {
		w := Derive(s, MatchSession(s, stream, e.params), e.params)
		counts[w.MatchQuality]++
		merged = append(merged, w)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Start.After(merged[j].Start) })

	span.SetAttributes(
		attribute.Int("match.exact", counts[models.MatchExact]),
		attribute.Int("match.close", counts[models.MatchClose]),
		attribute.Int("match.approximate", counts[models.MatchApproximate]),
		attribute.Int("match.none", counts[models.MatchNone]),
	)
	return merged
}
