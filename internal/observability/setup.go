package observability

import (
	"context"
	"os"

	"certquiz/internal/config"

	autosdk "go.opentelemetry.io/auto/sdk"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

// SetupObservability wires up the whole observability stack for one process:
// the logger first, so tracing setup can report through it, then tracing and
// metrics as enabled by config. Setup failures are returned, not fatal here;
// the caller decides whether to run without telemetry.
func SetupObservability(cfg *config.OpenTelemetryConfig, serviceName string) (trace.TracerProvider, *metric.MeterProvider, *Logger, error) {
	if serviceName != "" {
		cfg.ServiceName = serviceName
	}

	// Exporters and the auto SDK read service identity from the environment
	if err := os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName); err != nil {
		return nil, nil, nil, err
	}
	if err := os.Setenv("OTEL_SERVICE_VERSION", cfg.ServiceVersion); err != nil {
		return nil, nil, nil, err
	}

	// NewLogger is a no-op logger when logging is disabled, so there is
	// always something safe to log through
	logger := NewLogger(cfg)

	var tp trace.TracerProvider
	if cfg.EnableTracing {
		var err error
		tp, err = setupTracing(cfg, logger)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	var mp *metric.MeterProvider
	if cfg.EnableMetrics {
		var err error
		mp, err = InitMetrics(cfg)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	return tp, mp, logger, nil
}

// setupTracing installs the tracer provider (auto SDK or the standard SDK
// with an OTLP exporter), the propagators, and the package-global tracer.
func setupTracing(cfg *config.OpenTelemetryConfig, logger *Logger) (trace.TracerProvider, error) {
	var tp trace.TracerProvider

	if cfg.UseAutoSDK {
		tp = autosdk.TracerProvider()
		logger.Info(context.Background(), "Tracing enabled with Auto SDK", map[string]interface{}{"service_name": cfg.ServiceName})
	} else {
		var err error
		tp, err = InitStandardTracing(cfg)
		if err != nil {
			return nil, err
		}
		logger.Info(context.Background(), "Tracing enabled with standard SDK", map[string]interface{}{"service_name": cfg.ServiceName})
	}
	otel.SetTracerProvider(tp)

	if err := InitTracing(cfg); err != nil {
		return nil, err
	}
	InitGlobalTracer()

	return tp, nil
}
