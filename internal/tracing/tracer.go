// Package tracing exports OpenTelemetry spans for session activity: one root
// span per session, a child span per turn, and span events for tool calls and
// results. It plugs into the session as a SessionRecorder, next to the ledger
// and the sqlite store.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Supported exporter names.
const (
	ExporterConsole  = "console"
	ExporterOTLPHTTP = "otlp-http"
)

const defaultServiceName = "tradescope"

// Config selects the span exporter.
type Config struct {
	ServiceName string

	// Exporter is one of the Exporter* constants. Empty selects console.
	Exporter string

	// Endpoint is the host:port of the OTLP collector, otlp-http only.
	Endpoint string
}

// NewProvider builds a tracer provider for the configured exporter. The
// caller owns shutdown.
func NewProvider(ctx context.Context, cfg Config) (*sdktrace.TracerProvider, error) {
	var (
		exporter sdktrace.SpanExporter
		err      error
	)
	switch cfg.Exporter {
	case "", ExporterConsole:
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case ExporterOTLPHTTP:
		opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	name := cfg.ServiceName
	if name == "" {
		name = defaultServiceName
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", name),
		)),
	), nil
}
