package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/claude/fitfusion/internal/cache"
	"github.com/claude/fitfusion/internal/fusion"
	"github.com/claude/fitfusion/internal/ingest"
	"github.com/claude/fitfusion/internal/ingest/applehealth"
	"github.com/claude/fitfusion/internal/models"
	"github.com/claude/fitfusion/internal/storage"
	"github.com/go-chi/chi/v5"
)

// maxUploadMemory is the part of a multipart upload kept in memory; the rest
// spills to temporary files.
const maxUploadMemory = 32 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.analytics.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":               "ok",
		"timestamp":            s.opts.Clock().UTC(),
		"training_source":      st.TrainingSource,
		"hevy_configured":      st.HevyConfigured,
		"biometrics_available": st.BiometricsAvailable,
		"version":              s.opts.Version,
	})
}

func (s *Server) handleWorkouts(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := s.analytics.Workouts(r.Context(), days, parseBool(r.URL.Query().Get("refresh")))
	if err != nil {
		s.writeAnalyticsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSteps(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	steps, err := s.analytics.DailySteps(r.Context(), days)
	if err != nil {
		s.log.Error("daily steps", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"daily_steps": steps})
}

func (s *Server) handleExerciseTrend(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		writeError(w, http.StatusBadRequest, "invalid exercise name")
		return
	}
	days, err := parseDays(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	trend, err := s.analytics.ExerciseTrend(r.Context(), name, days)
	if errors.Is(err, fusion.ErrUnknownExercise) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.writeAnalyticsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

// writeAnalyticsError maps an analytics failure to 503 when the training
// source is down and nothing was cached, else 500.
func (s *Server) writeAnalyticsError(w http.ResponseWriter, err error) {
	var unavailable *cache.UnavailableError
	if errors.As(err, &unavailable) {
		s.log.Warn("analytics unavailable", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error":           unavailable.Error(),
			"last_known_good": unavailable.LastGood,
		})
		return
	}
	s.log.Error("analytics failed", "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) handleHAEIngest(w http.ResponseWriter, r *http.Request) {
	var payload models.HAEPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	start := time.Now()
	result, err := s.hae.Ingest(r.Context(), &payload)
	s.finishIngest(w, "hae", result, err, start)
}

func (s *Server) handleAlphaIngest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result, err := s.alpha.Ingest(r.Context(), r.Body)
	s.finishIngest(w, "alpha", result, err, start)
}

func (s *Server) handleAppleIngest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	format, err := applehealth.FormatFromFilename(header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	start := time.Now()
	result, err := s.apple.Ingest(r.Context(), format, file)
	s.finishIngest(w, "apple", result, err, start)
}

// finishIngest logs the import, drops cached analytics after a successful
// write and renders the result.
func (s *Server) finishIngest(w http.ResponseWriter, source string, result *ingest.Result, err error, start time.Time) {
	s.logImport(source, result, err, time.Since(start))
	if err != nil {
		s.log.Error("ingest error", "source", source, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, models.ErrMalformedInput) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	s.analytics.Invalidate()
	writeJSON(w, http.StatusOK, result)
}

// logImport records an import operation's result to the import_logs table.
func (s *Server) logImport(source string, result *ingest.Result, importErr error, elapsed time.Duration) {
	ms := int(elapsed.Milliseconds())
	entry := storage.ImportLog{Source: source, Status: "success", DurationMs: &ms}
	if result != nil {
		entry.SamplesReceived = result.SamplesReceived
		entry.SamplesInserted = result.SamplesInserted
		entry.WindowsReceived = result.WindowsReceived
		entry.WindowsInserted = result.WindowsInserted
		entry.SetsInserted = result.SetsInserted
	}
	if importErr != nil {
		msg := importErr.Error()
		entry.Status = "error"
		entry.ErrorMessage = &msg
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.store.InsertImportLog(ctx, entry); err != nil {
		s.log.Error("failed to log import", "source", source, "error", err)
	}
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = min(parsed, 500)
		}
	}
	logs, err := s.store.QueryImportLogs(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if logs == nil {
		logs = []storage.ImportLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleListOverrides(w http.ResponseWriter, r *http.Request) {
	overrides, err := s.store.ListMuscleOverrides(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if overrides == nil {
		overrides = []models.MuscleOverride{}
	}
	writeJSON(w, http.StatusOK, overrides)
}

func (s *Server) handlePutOverride(w http.ResponseWriter, r *http.Request) {
	var o models.MuscleOverride
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := s.store.UpsertMuscleOverride(r.Context(), o); err != nil {
		if errors.Is(err, models.ErrMalformedInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.analytics.Invalidate()
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleDeleteOverride(w http.ResponseWriter, r *http.Request) {
	exercise, err := url.PathUnescape(chi.URLParam(r, "exercise"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid exercise name")
		return
	}
	found, err := s.store.DeleteMuscleOverride(r.Context(), exercise)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "no override for "+exercise)
		return
	}
	s.analytics.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseDays reads the days query parameter. Absent means 0, which the
// analytics layer replaces with its default.
func parseDays(r *http.Request) (int, error) {
	v := r.URL.Query().Get("days")
	if v == "" {
		return 0, nil
	}
	days, err := strconv.Atoi(v)
	if err != nil || days < 1 {
		return 0, fmt.Errorf("days must be a positive integer, got %q", v)
	}
	return days, nil
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
