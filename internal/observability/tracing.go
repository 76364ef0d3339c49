// Package observability provides OpenTelemetry integration for distributed
// tracing.
//
// Traces are exported over OTLP HTTP to a local collector, which handles
// buffering, authentication and forwarding to whatever backend is configured
// there. Genkit already instruments every flow and model call with spans; this
// package only attaches an exporter to Genkit's TracerProvider, so pipeline
// stages show up in the trace view without any manual span management.
//
// Configuration (~/.bents/config.yaml):
//
//	tracing:
//	  enabled: true
//	  endpoint: "localhost:4318"
//	  environment: "dev"
//	  service_name: "bents-assistant"
package observability

import (
	"context"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/MohamedRasheqA/bents-v3/internal/log"
)

// Config for OTLP trace export.
type Config struct {
	// Endpoint is the collector OTLP HTTP endpoint (default: localhost:4318)
	Endpoint string
	// Environment is the deployment environment (dev, staging, prod)
	Environment string
	// ServiceName is the service name shown in the trace backend
	ServiceName string
}

// DefaultEndpoint is the default collector OTLP HTTP endpoint.
const DefaultEndpoint = "localhost:4318"

// noopShutdown satisfies the shutdown contract when tracing is off.
func noopShutdown(context.Context) error { return nil }

// Setup registers an OTLP exporter with Genkit's TracerProvider and returns
// a shutdown function that flushes pending spans. A failed exporter setup
// disables tracing instead of failing the application.
func Setup(ctx context.Context, cfg Config, logger log.Logger) (shutdown func(context.Context) error, err error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	// Genkit's TracerProvider reads the service identity from the standard
	// OTEL environment variables at span export time.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(), // local collector, no TLS
	)
	if err != nil {
		logger.Warn("failed to create trace exporter, tracing disabled", "error", err)
		return noopShutdown, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled",
		"endpoint", endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return tracing.TracerProvider().Shutdown, nil
}
