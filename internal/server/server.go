package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/fitfusion/internal/fusion"
	"github.com/claude/fitfusion/internal/ingest"
	"github.com/claude/fitfusion/internal/ingest/alpha"
	"github.com/claude/fitfusion/internal/ingest/applehealth"
	"github.com/claude/fitfusion/internal/ingest/hae"
	"github.com/claude/fitfusion/internal/models"
	"github.com/claude/fitfusion/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analytics is the read side served by the dashboard endpoints.
type Analytics interface {
	Workouts(ctx context.Context, days int, refresh bool) (*models.Response, error)
	ExerciseTrend(ctx context.Context, name string, days int) (models.ExerciseTrend, error)
	DailySteps(ctx context.Context, days int) ([]storage.DailySteps, error)
	Invalidate()
	Status() fusion.Status
}

// Store is the persistence used by the ingest and settings endpoints.
type Store interface {
	ingest.BiometricStore
	ingest.TrainingStore
	ListMuscleOverrides(ctx context.Context) ([]models.MuscleOverride, error)
	UpsertMuscleOverride(ctx context.Context, o models.MuscleOverride) error
	DeleteMuscleOverride(ctx context.Context, exercise string) (bool, error)
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	QueryImportLogs(ctx context.Context, limit int) ([]storage.ImportLog, error)
}

// Options wires a Server. MCP and Registry may be nil.
type Options struct {
	Analytics   Analytics
	Store       Store
	APIKey      string
	CORSOrigins []string
	Version     string
	Registry    *prometheus.Registry
	MCP         http.Handler
	Clock       func() time.Time
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	analytics Analytics
	store     Store
	hae       *hae.Provider
	alpha     *alpha.Provider
	apple     *applehealth.Provider
	log       *slog.Logger
	opts      Options
	metrics   *httpMetrics
	router    chi.Router
}

// New creates a new Server with all routes configured.
func New(opts Options, log *slog.Logger) *Server {
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	s := &Server{
		analytics: opts.Analytics,
		store:     opts.Store,
		hae:       hae.NewProvider(opts.Store, log),
		alpha:     alpha.NewProvider(opts.Store, log),
		apple:     applehealth.NewProvider(opts.Store, log),
		log:       log,
		opts:      opts,
		metrics:   newHTTPMetrics(opts.Registry),
		router:    chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(s.metrics.middleware)
	s.router.Use(CORS(s.opts.CORSOrigins))

	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/workouts", s.handleWorkouts)
	s.router.Get("/api/steps", s.handleSteps)
	s.router.Get("/api/v1/exercises/{name}/trend", s.handleExerciseTrend)
	s.router.Get("/api/v1/muscle-overrides", s.handleListOverrides)
	s.router.Get("/api/v1/imports", s.handleImportLogs)

	// Ingest endpoints (API key required)
	s.router.Route("/api/v1/ingest", func(r chi.Router) {
		r.Use(APIKeyAuth(s.opts.APIKey))
		r.Post("/", s.handleHAEIngest)
		r.Post("/alpha", s.handleAlphaIngest)
		r.Post("/apple", s.handleAppleIngest)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.opts.APIKey))
		r.Put("/api/v1/muscle-overrides", s.handlePutOverride)
		r.Delete("/api/v1/muscle-overrides/{exercise}", s.handleDeleteOverride)
	})

	s.router.Handle("/metrics", promhttp.HandlerFor(s.opts.Registry, promhttp.HandlerOpts{}))
	if s.opts.MCP != nil {
		s.router.Handle("/mcp", s.opts.MCP)
	}
}
