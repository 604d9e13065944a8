package observability

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TraceOptions configures InitTracing.
type TraceOptions struct {
	Enabled     bool
	SampleRatio float64
	// Output receives exported spans; nil means stdout.
	Output io.Writer
}

// InitTracing installs a global tracer provider exporting to stdout. When
// tracing is disabled the global no-op provider stays in place. The returned
// function flushes and stops the provider.
func InitTracing(opts TraceOptions, log *slog.Logger) (func(context.Context) error, error) {
	if !opts.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	ratio := opts.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}

	exp, err := stdouttrace.New(stdouttrace.WithWriter(opts.Output))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	log.Info("tracing initialized", "sample_ratio", ratio)
	return tp.Shutdown, nil
}
