package tracing

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/trellis/pkg/tracing/exporters"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type Config struct {
	ServiceName string
	// Endpoint of the OTLP collector. Spans go to the logger when empty.
	Endpoint string
	Protocol string
	Insecure bool
	Timeout  time.Duration
}

// Setup installs a global tracer provider and returns its shutdown func.
func Setup(ctx context.Context, logger ectologger.Logger, config Config) (func(context.Context) error, error) {
	var exporter sdktrace.SpanExporter = &exporters.ConsoleExporter{Logger: logger}
	if config.Endpoint != "" {
		otlp, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: config.Endpoint,
			Protocol: config.Protocol,
			Insecure: config.Insecure,
			Timeout:  config.Timeout,
		})
		if err != nil {
			return nil, err
		}
		exporter = otlp
	}

	res := resource.NewSchemaless(attribute.String("service.name", config.ServiceName))
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	SetTracer(provider.Tracer(config.ServiceName))

	logger.WithFields(map[string]any{
		"endpoint": config.Endpoint,
		"protocol": config.Protocol,
	}).Info("tracing initialized")

	return provider.Shutdown, nil
}
