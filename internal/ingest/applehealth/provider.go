package applehealth

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/claude/fitfusion/internal/ingest"
	"github.com/claude/fitfusion/internal/models"
)

// Parse dispatches to the parser for format.
func Parse(format Format, r io.Reader, log *slog.Logger) (models.BiometricStream, error) {
	switch format {
	case FormatXML:
		return ParseXML(r, log)
	case FormatJSON:
		return ParseJSON(r, log)
	case FormatCSV:
		return ParseCSV(r, log)
	default:
		return models.BiometricStream{}, fmt.Errorf("%w: unsupported format %q", models.ErrMalformedInput, format)
	}
}

// Provider stores parsed Apple Health uploads.
type Provider struct {
	store ingest.BiometricStore
	log   *slog.Logger
}

// NewProvider creates an Apple Health ingest provider.
func NewProvider(store ingest.BiometricStore, log *slog.Logger) *Provider {
	return &Provider{store: store, log: log}
}

// Ingest parses r in the given format and stores the resulting stream.
func (p *Provider) Ingest(ctx context.Context, format Format, r io.Reader) (*ingest.Result, error) {
	stream, err := Parse(format, r, p.log)
	if err != nil {
		return nil, err
	}
	result := &ingest.Result{}
	if err := ingest.StoreStream(ctx, p.store, stream, result, p.log); err != nil {
		return result, fmt.Errorf("storing apple health %s: %w", format, err)
	}
	result.Message = fmt.Sprintf("Processed %d records and %d workouts from %s upload",
		result.SamplesReceived, result.WindowsReceived, format)
	return result, nil
}
