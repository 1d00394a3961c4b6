package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/fboiero/MIESC-sub012/internal/config"
	"github.com/fboiero/MIESC-sub012/pkg/version"
)

const (
	defaultBatchTimeout = 5 * time.Second
	serviceName         = "miesc"
)

// TracingOption is a functional option for configuring tracing initialization.
type TracingOption func(*tracingOptions)

// tracingOptions holds configuration options for tracing initialization.
type tracingOptions struct {
	sampler      sdktrace.Sampler
	resource     *resource.Resource
	batchTimeout time.Duration
}

// WithSampler sets a custom sampler for the tracer provider.
func WithSampler(sampler sdktrace.Sampler) TracingOption {
	return func(o *tracingOptions) {
		o.sampler = sampler
	}
}

// WithResource sets a custom resource for the tracer provider.
func WithResource(res *resource.Resource) TracingOption {
	return func(o *tracingOptions) {
		o.resource = res
	}
}

// WithBatchTimeout sets the maximum time between batch exports.
func WithBatchTimeout(timeout time.Duration) TracingOption {
	return func(o *tracingOptions) {
		o.batchTimeout = timeout
	}
}

// Tracing holds the initialized tracer and its shutdown hook.
type Tracing struct {
	Tracer   trace.Tracer
	shutdown func(context.Context) error
}

// Shutdown flushes pending spans and releases exporter resources.
func (t *Tracing) Shutdown(ctx context.Context) error {
	if t.shutdown == nil {
		return nil
	}
	return t.shutdown(ctx)
}

// InitTracing initializes distributed tracing from configuration.
//
// When tracing is disabled it returns a no-op tracer with zero overhead.
// When enabled, spans are exported over OTLP/gRPC to the configured
// endpoint.
func InitTracing(ctx context.Context, cfg config.TracingConfig, opts ...TracingOption) (*Tracing, error) {
	if !cfg.Enabled {
		return &Tracing{
			Tracer: tracenoop.NewTracerProvider().Tracer(serviceName),
		}, nil
	}

	options := &tracingOptions{
		sampler:      sdktrace.AlwaysSample(),
		batchTimeout: defaultBatchTimeout,
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.resource == nil {
		res, err := resource.New(
			ctx,
			resource.WithAttributes(
				semconv.ServiceName(serviceName),
				semconv.ServiceVersion(version.Version),
			),
			resource.WithFromEnv(),
			resource.WithTelemetrySDK(),
		)
		if err != nil {
			return nil, err
		}
		options.resource = res
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(options.sampler),
		sdktrace.WithResource(options.resource),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(options.batchTimeout)),
	)

	otel.SetTracerProvider(provider)

	return &Tracing{
		Tracer:   provider.Tracer(serviceName),
		shutdown: provider.Shutdown,
	}, nil
}
