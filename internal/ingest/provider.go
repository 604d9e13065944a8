// Package ingest holds the pieces shared by the biometric and training-log
// importers: the result counters and the storage they write into.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/claude/fitfusion/internal/models"
)

// Result holds the outcome of an ingest operation.
type Result struct {
	SamplesReceived int      `json:"samples_received"`
	SamplesInserted int64    `json:"samples_inserted"`
	SamplesSkipped  int64    `json:"samples_skipped"`
	SamplesRejected int      `json:"samples_rejected"`
	RejectedNames   []string `json:"rejected_names,omitempty"`

	WindowsReceived int `json:"windows_received,omitempty"`
	WindowsInserted int `json:"windows_inserted,omitempty"`
	WindowsRejected int `json:"windows_rejected,omitempty"`

	SessionsReceived int   `json:"sessions_received,omitempty"`
	SetsReceived     int   `json:"sets_received"`
	SetsInserted     int64 `json:"sets_inserted"`

	Message string `json:"message,omitempty"`
}

// BiometricStore persists normalized samples and workout windows.
type BiometricStore interface {
	InsertSamples(ctx context.Context, samples []models.BiometricSample) (int64, error)
	InsertWindows(ctx context.Context, windows []models.WorkoutWindow) (int64, error)
}

// TrainingStore persists flattened training sets.
type TrainingStore interface {
	DeleteTrainingSession(ctx context.Context, sessionID string) error
	InsertTrainingSets(ctx context.Context, rows []models.TrainingSetRow) (int64, error)
}

// StoreStream validates a parsed stream and writes what survives. Invalid
// samples and windows are dropped and counted, never fatal.
func StoreStream(ctx context.Context, store BiometricStore, stream models.BiometricStream, result *Result, log *slog.Logger) error {
	samples := make([]models.BiometricSample, 0, len(stream.Samples))
	for _, s := range stream.Samples {
		result.SamplesReceived++
		if err := s.Validate(); err != nil {
			log.Debug("dropping sample", "error", err)
			result.SamplesRejected++
			continue
		}
		samples = append(samples, s)
	}

	windows := make([]models.WorkoutWindow, 0, len(stream.Windows))
	for _, w := range stream.Windows {
		result.WindowsReceived++
		if err := w.Validate(); err != nil {
			log.Warn("dropping workout window", "error", err)
			result.WindowsRejected++
			continue
		}
		windows = append(windows, w)
	}

	if len(samples) > 0 {
		inserted, err := store.InsertSamples(ctx, samples)
		if err != nil {
			return fmt.Errorf("inserting samples: %w", err)
		}
		result.SamplesInserted += inserted
		result.SamplesSkipped += int64(len(samples)) - inserted
	}
	if len(windows) > 0 {
		inserted, err := store.InsertWindows(ctx, windows)
		if err != nil {
			return fmt.Errorf("inserting workout windows: %w", err)
		}
		result.WindowsInserted += int(inserted)
	}
	return nil
}
