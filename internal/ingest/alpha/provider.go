package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/claude/fitfusion/internal/ingest"
	"github.com/claude/fitfusion/internal/models"
)

// Provider processes Alpha Progression CSV exports.
type Provider struct {
	store ingest.TrainingStore
	log   *slog.Logger
}

// NewProvider creates a new Alpha Progression ingest provider.
func NewProvider(store ingest.TrainingStore, log *slog.Logger) *Provider {
	return &Provider{store: store, log: log}
}

// Ingest parses a CSV export and stores its sets, replacing any sets
// previously imported for the same sessions.
func (p *Provider) Ingest(ctx context.Context, r io.Reader) (*ingest.Result, error) {
	sessions, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing CSV: %w", models.ErrMalformedInput, err)
	}

	result := &ingest.Result{SessionsReceived: len(sessions)}
	var rows []models.TrainingSetRow
	for _, s := range sessions {
		if err := p.store.DeleteTrainingSession(ctx, s.SessionID()); err != nil {
			return nil, fmt.Errorf("clearing session %s: %w", s.Date.Format("2006-01-02"), err)
		}
		rows = append(rows, s.Rows()...)
	}

	result.SetsReceived = len(rows)
	if len(rows) > 0 {
		inserted, err := p.store.InsertTrainingSets(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("inserting sets: %w", err)
		}
		result.SetsInserted = inserted
	}
	p.log.Info("alpha import stored", "sessions", len(sessions), "sets", result.SetsInserted)
	return result, nil
}
