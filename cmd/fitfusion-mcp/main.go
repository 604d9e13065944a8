// Command fitfusion-mcp serves the FitFusion MCP tools over stdio. With
// -server it forwards to a running FitFusion API; otherwise it computes
// analytics from the local database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/fitfusion/internal/analytics"
	"github.com/claude/fitfusion/internal/cache"
	"github.com/claude/fitfusion/internal/config"
	"github.com/claude/fitfusion/internal/fusion"
	"github.com/claude/fitfusion/internal/hevy"
	fitmcp "github.com/claude/fitfusion/internal/mcp"
	"github.com/claude/fitfusion/internal/models"
	"github.com/claude/fitfusion/internal/storage"
	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (local mode)")
	serverURL := flag.String("server", "", "FitFusion base URL; enables remote mode")
	flag.Parse()

	// stdout carries the protocol, so logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ds, cleanup, err := dataSource(*configPath, *serverURL, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := mcpserver.ServeStdio(fitmcp.New(ds, Version, log)); err != nil {
		log.Error("mcp server error", "error", err)
		cleanup()
		os.Exit(1)
	}
}

func dataSource(configPath, serverURL string, log *slog.Logger) (fitmcp.DataSource, func(), error) {
	if serverURL != "" {
		log.Info("remote mode", "server", serverURL)
		return fitmcp.NewHTTPClient(serverURL), func() {}, nil
	}

	_ = godotenv.Load()
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()
	db, err := storage.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connecting database: %w", err)
	}

	client := hevy.NewClient(hevy.Options{
		BaseURL:           cfg.Hevy.BaseURL,
		APIKey:            cfg.Hevy.APIKey,
		PageSize:          cfg.Hevy.PageSize,
		Timeout:           cfg.Hevy.Timeout(),
		RequestsPerSecond: cfg.Hevy.RequestsPerSecond,
	}, log)
	var training fusion.TrainingSource = fusion.NewLocalSource(db, nil)
	name := config.SourceLocal
	if cfg.UseHevy() {
		training, name = client, config.SourceHevy
	}

	svc := fusion.NewService(fusion.Options{
		Training:       training,
		TrainingName:   name,
		HevyConfigured: client.Configured(),
		Biometrics:     db,
		Overrides:      db,
		Steps:          db,
		Engine:         analytics.NewEngine(cfg.Analytics.Params(analytics.DefaultParams()), log),
		Cache:          cache.New[*models.Response](cache.Config{TTL: cfg.Cache.TTL(), Log: log}),
		DefaultDays:    cfg.Training.DefaultDays,
		MaxDays:        cfg.Training.MaxDays,
	}, log)
	log.Info("local mode", "training_source", name)

	return svc, db.Close, nil
}
