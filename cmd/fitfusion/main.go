package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/fitfusion/internal/analytics"
	"github.com/claude/fitfusion/internal/cache"
	"github.com/claude/fitfusion/internal/config"
	"github.com/claude/fitfusion/internal/fusion"
	"github.com/claude/fitfusion/internal/hevy"
	fitmcp "github.com/claude/fitfusion/internal/mcp"
	"github.com/claude/fitfusion/internal/models"
	"github.com/claude/fitfusion/internal/observability"
	"github.com/claude/fitfusion/internal/server"
	"github.com/claude/fitfusion/internal/storage"
	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "loading .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, logCloser, err := observability.NewLogger(observability.LogOptions{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	log.Info("FitFusion starting", "version", Version)

	if err := run(cfg, *migrateOnly, log); err != nil {
		log.Error("fatal", "error", err)
		_ = logCloser.Close()
		os.Exit(1)
	}
	if err := logCloser.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "closing log file: %v\n", err)
	}
}

func run(cfg *config.Config, migrateOnly bool, log *slog.Logger) (err error) {
	shutdownTracing, err := observability.InitTracing(observability.TraceOptions{
		Enabled:     cfg.Tracing.Enabled,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, log)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	// Run migrations
	dsn := cfg.Database.DSN()
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Info("migrations applied")

	if migrateOnly {
		log.Info("migrate-only: exiting")
		return shutdownTracing(context.Background())
	}

	// Connect database
	ctx := context.Background()
	db, err := storage.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer db.Close()
	log.Info("database connected")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	snapshots := openSnapshotStore(ctx, cfg.Cache, log)
	orchestrator := cache.New[*models.Response](cache.Config{
		TTL:     cfg.Cache.TTL(),
		Store:   snapshots,
		Metrics: cache.NewMetrics("fitfusion", registry),
		Log:     log,
	})

	source, sourceName, hevyConfigured := trainingSource(cfg, db, log)
	svc := fusion.NewService(fusion.Options{
		Training:       source,
		TrainingName:   sourceName,
		HevyConfigured: hevyConfigured,
		Biometrics:     db,
		Overrides:      db,
		Steps:          db,
		Engine:         analytics.NewEngine(cfg.Analytics.Params(analytics.DefaultParams()), log),
		Cache:          orchestrator,
		DefaultDays:    cfg.Training.DefaultDays,
		MaxDays:        cfg.Training.MaxDays,
	}, log)
	log.Info("training source selected", "source", sourceName, "hevy_configured", hevyConfigured)

	mcpSrv := fitmcp.New(svc, Version, log)

	srv := server.New(server.Options{
		Analytics:   svc,
		Store:       db,
		APIKey:      cfg.Auth.APIKey,
		CORSOrigins: cfg.Server.CORSOrigins,
		Version:     Version,
		Registry:    registry,
		MCP:         mcpserver.NewStreamableHTTPServer(mcpSrv),
	}, log)

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			return fmt.Errorf("tsnet start: %w", err)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			return fmt.Errorf("tsnet listen: %w", err)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}

	serveErr := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down", "signal", sig)
	case err = <-serveErr:
		log.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = multierr.Combine(
		err,
		httpSrv.Shutdown(shutdownCtx),
		shutdownTracing(shutdownCtx),
	)
	if snapshots != nil {
		err = multierr.Append(err, snapshots.Close())
	}
	log.Info("server stopped")
	return err
}

// openSnapshotStore builds the persistent tiers behind the analytics cache.
// Redis comes first when configured; an unreachable Redis is skipped so the
// server still starts.
func openSnapshotStore(ctx context.Context, cfg config.CacheConfig, log *slog.Logger) cache.SnapshotStore {
	var tiers cache.TieredStore

	if cfg.Redis.Addr != "" {
		ttl := time.Duration(cfg.Redis.TTLHours) * time.Hour
		rs, err := cache.DialRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, ttl)
		if err != nil {
			log.Warn("redis snapshot store unavailable", "addr", cfg.Redis.Addr, "error", err)
		} else {
			tiers = append(tiers, rs)
			log.Info("redis snapshot store enabled", "addr", cfg.Redis.Addr)
		}
	}

	if cfg.SnapshotPath != "" {
		ss, err := cache.OpenSQLiteStore(cfg.SnapshotPath)
		if err != nil {
			log.Warn("sqlite snapshot store unavailable", "path", cfg.SnapshotPath, "error", err)
		} else {
			tiers = append(tiers, ss)
			log.Info("sqlite snapshot store enabled", "path", cfg.SnapshotPath)
		}
	}

	switch len(tiers) {
	case 0:
		return nil
	case 1:
		return tiers[0]
	default:
		return tiers
	}
}

func trainingSource(cfg *config.Config, db *storage.DB, log *slog.Logger) (fusion.TrainingSource, string, bool) {
	client := hevy.NewClient(hevy.Options{
		BaseURL:           cfg.Hevy.BaseURL,
		APIKey:            cfg.Hevy.APIKey,
		PageSize:          cfg.Hevy.PageSize,
		Timeout:           cfg.Hevy.Timeout(),
		RequestsPerSecond: cfg.Hevy.RequestsPerSecond,
	}, log)
	if cfg.UseHevy() {
		return client, config.SourceHevy, client.Configured()
	}
	return fusion.NewLocalSource(db, nil), config.SourceLocal, client.Configured()
}
