// Package fusion gathers training sessions and biometric data from their
// sources and runs the analytics engine behind the cache.
package fusion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/fitfusion/internal/analytics"
	"github.com/claude/fitfusion/internal/cache"
	"github.com/claude/fitfusion/internal/models"
	"github.com/claude/fitfusion/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const day = 24 * time.Hour

// TrainingSource yields the sessions started within the last days.
type TrainingSource interface {
	Sessions(ctx context.Context, days int) ([]models.TrainingSession, error)
}

// BiometricSource loads the biometric stream for a time range.
type BiometricSource interface {
	Stream(ctx context.Context, start, end time.Time) (models.BiometricStream, error)
}

// OverrideSource lists user muscle-group overrides.
type OverrideSource interface {
	ListMuscleOverrides(ctx context.Context) ([]models.MuscleOverride, error)
}

// StepsSource sums step samples per day.
type StepsSource interface {
	QueryDailySteps(ctx context.Context, start, end time.Time) ([]storage.DailySteps, error)
}

// Options wires a Service. Biometrics, Overrides and Steps may be nil.
type Options struct {
	Training       TrainingSource
	TrainingName   string
	HevyConfigured bool
	Biometrics     BiometricSource
	Overrides      OverrideSource
	Steps          StepsSource

	Engine *analytics.Engine
	Cache  *cache.Orchestrator[*models.Response]

	DefaultDays int
	MaxDays     int
	Clock       func() time.Time
}

// Service is the read side of FitFusion shared by the HTTP API and the MCP
// tools.
type Service struct {
	opts   Options
	log    *slog.Logger
	tracer trace.Tracer
}

// NewService creates a Service. Missing defaults are filled in.
func NewService(opts Options, log *slog.Logger) *Service {
	if opts.DefaultDays <= 0 {
		opts.DefaultDays = 90
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 3650
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Engine == nil {
		opts.Engine = analytics.NewEngine(analytics.DefaultParams(), log)
	}
	if opts.Cache == nil {
		opts.Cache = cache.New[*models.Response](cache.Config{Clock: opts.Clock, Log: log})
	}
	return &Service{opts: opts, log: log, tracer: otel.Tracer("github.com/claude/fitfusion/internal/fusion")}
}

// ClampDays maps a requested range onto [1, MaxDays], using the default for
// non-positive values.
func (s *Service) ClampDays(days int) int {
	if days <= 0 {
		return s.opts.DefaultDays
	}
	return min(days, s.opts.MaxDays)
}

// CacheKey is the orchestrator key for a range.
func CacheKey(days int) string {
	return fmt.Sprintf("workouts:%dd", days)
}

// Workouts returns the analytics response for the last days. With refresh
// the cache is bypassed and the shared recomputation joined. When the
// sources fail and nothing was ever computed the error is a
// *cache.UnavailableError.
func (s *Service) Workouts(ctx context.Context, days int, refresh bool) (*models.Response, error) {
	days = s.ClampDays(days)
	ctx, span := s.tracer.Start(ctx, "fusion.Workouts", trace.WithAttributes(
		attribute.Int("days", days), attribute.Bool("refresh", refresh)))
	defer span.End()

	res, err := s.opts.Cache.Get(ctx, CacheKey(days), refresh, func(ctx context.Context) (*models.Response, error) {
		return s.compute(ctx, days)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if res.Stale {
		s.log.Warn("serving stale analytics", "days", days, "computed_at", res.ComputedAt, "error", res.Err)
	}

	out := *res.Value
	out.Meta.ComputedAt = res.ComputedAt
	out.Meta.CacheTTLSeconds = int(s.opts.Cache.TTL().Seconds())
	out.Meta.DataSource = s.opts.TrainingName
	out.Meta.Stale = res.Stale
	out.Meta.CacheState = string(res.State)
	return &out, nil
}

func (s *Service) compute(ctx context.Context, days int) (*models.Response, error) {
	now := s.opts.Clock()

	sessions, err := s.opts.Training.Sessions(ctx, days)
	if err != nil {
		return nil, fmt.Errorf("fetching training sessions: %w", err)
	}

	var stream models.BiometricStream
	if s.opts.Biometrics != nil {
		stream, err = s.opts.Biometrics.Stream(ctx, now.Add(-time.Duration(days+1)*day), now.Add(day))
		if err != nil {
			return nil, fmt.Errorf("loading biometrics: %w", err)
		}
	}

	overrides, err := s.overrides(ctx)
	if err != nil {
		return nil, err
	}

	s.log.Debug("running analytics", "days", days, "sessions", len(sessions),
		"samples", len(stream.Samples), "windows", len(stream.Windows))
	return s.opts.Engine.Run(ctx, analytics.Input{
		Sessions:      sessions,
		Stream:        stream,
		Overrides:     overrides,
		Now:           now,
		DaysRequested: days,
	})
}

func (s *Service) overrides(ctx context.Context) (map[string]models.MuscleGroup, error) {
	if s.opts.Overrides == nil {
		return nil, nil
	}
	list, err := s.opts.Overrides.ListMuscleOverrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading muscle overrides: %w", err)
	}
	m := make(map[string]models.MuscleGroup, len(list))
	for _, o := range list {
		m[models.ExerciseKey(o.Exercise)] = o.Group
	}
	return m, nil
}

// ErrUnknownExercise is returned when no logged session contains the exercise.
var ErrUnknownExercise = errors.New("unknown exercise")

// ExerciseTrend returns the trend of one exercise, matched
// case-insensitively, over the last days.
func (s *Service) ExerciseTrend(ctx context.Context, name string, days int) (models.ExerciseTrend, error) {
	resp, err := s.Workouts(ctx, days, false)
	if err != nil {
		return models.ExerciseTrend{}, err
	}
	key := models.ExerciseKey(name)
	for ex, tr := range resp.Trends {
		if models.ExerciseKey(ex) == key {
			return tr, nil
		}
	}
	return models.ExerciseTrend{}, fmt.Errorf("%w: %q", ErrUnknownExercise, name)
}

// DailySteps returns step totals per day for the last days, oldest first.
func (s *Service) DailySteps(ctx context.Context, days int) ([]storage.DailySteps, error) {
	if s.opts.Steps == nil {
		return []storage.DailySteps{}, nil
	}
	days = s.ClampDays(days)
	now := s.opts.Clock()
	start := now.Add(-time.Duration(days) * day).Truncate(day)
	steps, err := s.opts.Steps.QueryDailySteps(ctx, start, now.Add(day))
	if err != nil {
		return nil, fmt.Errorf("loading daily steps: %w", err)
	}
	if steps == nil {
		steps = []storage.DailySteps{}
	}
	return steps, nil
}

// Invalidate drops every cached response, e.g. after new data was ingested.
func (s *Service) Invalidate() {
	s.opts.Cache.InvalidateAll()
}

// Status describes the configured sources.
type Status struct {
	TrainingSource      string
	HevyConfigured      bool
	BiometricsAvailable bool
}

// Status reports which sources are wired.
func (s *Service) Status() Status {
	return Status{
		TrainingSource:      s.opts.TrainingName,
		HevyConfigured:      s.opts.HevyConfigured,
		BiometricsAvailable: s.opts.Biometrics != nil,
	}
}
