// Package tracing builds the OpenTelemetry tracer provider for the rounds
// service.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var (
	errNoURL       = errors.New("URL is empty")
	errNoSvcName   = errors.New("service name is empty")
	errUnsupported = errors.New("unsupported URL scheme")
	errRatio       = errors.New("trace ratio must be within [0, 1]")
)

// NewProvider exports spans over OTLP/HTTP to collector, sampling the given
// fraction of traces, and installs the provider as the global one.
func NewProvider(ctx context.Context, svcName string, collector url.URL, instanceID string, fraction float64) (*sdktrace.TracerProvider, error) {
	if collector == (url.URL{}) {
		return nil, errNoURL
	}
	if svcName == "" {
		return nil, errNoSvcName
	}
	if fraction < 0 || fraction > 1 {
		return nil, fmt.Errorf("%w: %v", errRatio, fraction)
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(collector.Host)}
	if collector.Path != "" {
		opts = append(opts, otlptracehttp.WithURLPath(collector.Path))
	}
	switch collector.Scheme {
	case "http":
		opts = append(opts, otlptracehttp.WithInsecure())
	case "https":
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupported, collector.Scheme)
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(svcName),
			attribute.String("host.id", instanceID),
		),
		resource.WithHost(),
		resource.WithOSType(),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(fraction))),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp, nil
}

// Tracer returns a tracer from an OTLP provider when collector is set and a
// no-op tracer otherwise. The returned shutdown func is never nil.
func Tracer(ctx context.Context, svcName string, collector url.URL, instanceID string, fraction float64) (trace.Tracer, func(context.Context) error, error) {
	if collector == (url.URL{}) {
		return noop.NewTracerProvider().Tracer(svcName), func(context.Context) error { return nil }, nil
	}

	tp, err := NewProvider(ctx, svcName, collector, instanceID, fraction)
	if err != nil {
		return nil, nil, err
	}

	return tp.Tracer(svcName), tp.Shutdown, nil
}
