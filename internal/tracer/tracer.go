package tracer

import (
	"context"
	"log"

	"dota-report-be/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

const ServiceName = "dota-report-backend"

type Shutdown func(context.Context) error

func noop(context.Context) error { return nil }

// InitTracer installs the global tracer provider used by otelfiber and the
// report spans. Without OTEL_ENABLED=true it returns a no-op shutdown and
// the otel default (non-recording) provider stays in place.
func InitTracer(cfg config.TelemetryConfig, environment string) Shutdown {
	if !cfg.Enabled {
		log.Println("Tracing disabled (OTEL_ENABLED is not true)")
		return noop
	}

	exporter, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		log.Printf("Warning: OTLP exporter unavailable, tracing disabled: %v", err)
		return noop
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sampler(cfg.SampleRatio)),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(ServiceName),
			semconv.DeploymentEnvironmentKey.String(environment),
		)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	log.Printf("Tracing to %s (sample ratio %.2f)", cfg.Endpoint, cfg.SampleRatio)

	return tp.Shutdown
}

// sampler honours the caller's sampling decision and samples new root
// traces at ratio. Ratios outside (0,1) mean always or never.
func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}
