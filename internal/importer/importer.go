// Package importer bulk-loads export files from disk into the database.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/claude/fitfusion/internal/ingest"
	"github.com/claude/fitfusion/internal/ingest/alpha"
	"github.com/claude/fitfusion/internal/ingest/applehealth"
	"github.com/claude/fitfusion/internal/ingest/hae"
	"github.com/claude/fitfusion/internal/models"
	"github.com/claude/fitfusion/internal/storage"
)

// Kind selects which parser a file is fed to.
type Kind string

const (
	KindAppleHealth Kind = "apple"
	KindAlpha       Kind = "alpha"
	KindHAE         Kind = "hae"
)

// Store is everything the importer writes to.
type Store interface {
	ingest.BiometricStore
	ingest.TrainingStore
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	UpdateImportLog(ctx context.Context, id int64, log storage.ImportLog) error
}

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int

	SamplesInserted   int64
	SamplesDuplicated int64
	SamplesRejected   int
	WindowsInserted   int
	SessionsImported  int
	SetsInserted      int64

	RejectedMetrics []string
}

// Importer reads export files and inserts their data through the ingest
// providers. In dry-run mode files are parsed and counted but nothing is
// written.
type Importer struct {
	store  Store
	log    *slog.Logger
	dryRun bool
	stats  Stats
}

// New creates a new Importer.
func New(store Store, log *slog.Logger, dryRun bool) *Importer {
	if dryRun {
		store = &dryRunStore{}
	}
	return &Importer{store: store, log: log, dryRun: dryRun}
}

// Import processes path, a file or a directory walked recursively, with the
// parser for kind. Per-file failures are logged and counted; only a bad path
// or a storage failure stops the run.
func (imp *Importer) Import(ctx context.Context, kind Kind, path string) (*Stats, error) {
	files, err := CollectFiles(kind, path)
	if err != nil {
		return &imp.stats, err
	}
	imp.log.Info("importing files", "kind", kind, "count", len(files), "dry_run", imp.dryRun)

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return &imp.stats, err
		}
		if err := imp.importFile(ctx, kind, f); err != nil {
			return &imp.stats, err
		}
	}
	sort.Strings(imp.stats.RejectedMetrics)
	return &imp.stats, nil
}

// CollectFiles lists the files under path that kind can parse, sorted.
func CollectFiles(kind Kind, path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if accepts(kind, d.Name()) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", path, err)
	}
	sort.Strings(files)
	return files, nil
}

func accepts(kind Kind, name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	switch kind {
	case KindAppleHealth:
		return ext == ".xml" || ext == ".json" || ext == ".csv"
	case KindAlpha:
		return ext == ".csv"
	case KindHAE:
		return ext == ".json"
	}
	return false
}

func (imp *Importer) importFile(ctx context.Context, kind Kind, path string) error {
	f, err := os.Open(path)
	if err != nil {
		imp.log.Warn("open failed", "file", path, "error", err)
		imp.stats.FilesErrored++
		return nil
	}
	defer f.Close()

	start := time.Now()
	logID, err := imp.store.InsertImportLog(ctx, storage.ImportLog{Source: string(kind), Status: "running"})
	if err != nil {
		return fmt.Errorf("creating import log for %s: %w", filepath.Base(path), err)
	}

	var result *ingest.Result
	switch kind {
	case KindAppleHealth:
		format, ferr := applehealth.FormatFromFilename(path)
		if ferr != nil {
			err = ferr
			break
		}
		result, err = applehealth.NewProvider(imp.store, imp.log).Ingest(ctx, format, f)
	case KindAlpha:
		result, err = alpha.NewProvider(imp.store, imp.log).Ingest(ctx, f)
	case KindHAE:
		var payload models.HAEPayload
		if derr := json.NewDecoder(f).Decode(&payload); derr != nil {
			err = fmt.Errorf("%w: decoding %s: %w", models.ErrMalformedInput, filepath.Base(path), derr)
			break
		}
		result, err = hae.NewProvider(imp.store, imp.log).Ingest(ctx, &payload)
	default:
		err = fmt.Errorf("unknown import kind %q", kind)
	}

	entry := importLogEntry(kind, result, err, time.Since(start))
	if uerr := imp.store.UpdateImportLog(ctx, logID, entry); uerr != nil {
		imp.log.Warn("failed to update import log", "id", logID, "error", uerr)
	}

	if err != nil {
		imp.log.Warn("import failed", "file", path, "error", err)
		imp.stats.FilesErrored++
		return nil
	}
	imp.add(result)
	if result.SamplesReceived == 0 && result.WindowsReceived == 0 && result.SetsReceived == 0 {
		imp.stats.FilesSkipped++
	} else {
		imp.stats.FilesProcessed++
	}
	imp.log.Info("imported file", "file", filepath.Base(path),
		"samples", result.SamplesInserted, "windows", result.WindowsInserted, "sets", result.SetsInserted)
	return nil
}

func (imp *Importer) add(r *ingest.Result) {
	imp.stats.SamplesInserted += r.SamplesInserted
	imp.stats.SamplesDuplicated += r.SamplesSkipped
	imp.stats.SamplesRejected += r.SamplesRejected
	imp.stats.WindowsInserted += r.WindowsInserted
	imp.stats.SessionsImported += r.SessionsReceived
	imp.stats.SetsInserted += r.SetsInserted
	for _, name := range r.RejectedNames {
		if !contains(imp.stats.RejectedMetrics, name) {
			imp.stats.RejectedMetrics = append(imp.stats.RejectedMetrics, name)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// importLogEntry summarizes one ingest run for the import_logs table.
func importLogEntry(kind Kind, result *ingest.Result, err error, elapsed time.Duration) storage.ImportLog {
	ms := int(elapsed.Milliseconds())
	entry := storage.ImportLog{Source: string(kind), Status: "success", DurationMs: &ms}
	if result != nil {
		entry.SamplesReceived = result.SamplesReceived
		entry.SamplesInserted = result.SamplesInserted
		entry.WindowsReceived = result.WindowsReceived
		entry.WindowsInserted = result.WindowsInserted
		entry.SetsInserted = result.SetsInserted
	}
	if err != nil {
		msg := err.Error()
		entry.Status = "error"
		entry.ErrorMessage = &msg
	}
	return entry
}

// dryRunStore accepts every write and reports it as inserted.
type dryRunStore struct{}

func (dryRunStore) InsertSamples(_ context.Context, s []models.BiometricSample) (int64, error) {
	return int64(len(s)), nil
}

func (dryRunStore) InsertWindows(_ context.Context, w []models.WorkoutWindow) (int64, error) {
	return int64(len(w)), nil
}

func (dryRunStore) DeleteTrainingSession(context.Context, string) error { return nil }

func (dryRunStore) InsertTrainingSets(_ context.Context, rows []models.TrainingSetRow) (int64, error) {
	return int64(len(rows)), nil
}

func (dryRunStore) InsertImportLog(context.Context, storage.ImportLog) (int64, error) { return 0, nil }

func (dryRunStore) UpdateImportLog(context.Context, int64, storage.ImportLog) error { return nil }
