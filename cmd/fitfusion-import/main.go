package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/claude/fitfusion/internal/config"
	"github.com/claude/fitfusion/internal/importer"
	"github.com/claude/fitfusion/internal/observability"
	"github.com/claude/fitfusion/internal/storage"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	kind := flag.String("kind", "", "export kind: apple, alpha or hae (required)")
	path := flag.String("path", "", "export file or directory (required)")
	dryRun := flag.Bool("dry-run", false, "report counts without inserting into database")
	flag.Parse()

	if *path == "" || !validKind(importer.Kind(*kind)) {
		fmt.Fprintf(os.Stderr, "Usage: fitfusion-import -config config.yaml -kind apple|alpha|hae -path /path/to/export [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, logCloser, err := observability.NewLogger(observability.LogOptions{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	if _, err := os.Stat(*path); err != nil {
		log.Error("import path does not exist", "path", *path, "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()

	// Run migrations
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *dryRun {
		log.Info("DRY RUN mode, no data will be written to the database")
	}

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	imp := importer.New(db, log, *dryRun)
	stats, err := imp.Import(ctx, importer.Kind(*kind), *path)
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, stats)
		db.Close()
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete")
}

func validKind(k importer.Kind) bool {
	switch k {
	case importer.KindAppleHealth, importer.KindAlpha, importer.KindHAE:
		return true
	}
	return false
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	if stats == nil {
		return
	}
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"samples_inserted", stats.SamplesInserted,
		"samples_duplicated", stats.SamplesDuplicated,
		"samples_rejected", stats.SamplesRejected,
		"windows_inserted", stats.WindowsInserted,
		"sessions_imported", stats.SessionsImported,
		"sets_inserted", stats.SetsInserted,
	)
	if len(stats.RejectedMetrics) > 0 {
		log.Info("rejected metrics (not in allowlist)", "metrics", stats.RejectedMetrics)
	}
}
