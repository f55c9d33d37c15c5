// Package tracing wires OpenTelemetry tracing for the kernel. Commands and
// fired scheduler steps are recorded as spans; without an installed provider
// the global no-op tracer is used.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Name is the instrumentation scope of the kernel's spans.
const Name = "github.com/desertwitch/forthos"

// Provider is an installed tracer provider.
type Provider struct {
	tp     *sdktrace.TracerProvider
	closer io.Closer
}

// NewProvider returns a [Provider] exporting spans through exporter.
func NewProvider(ctx context.Context, serviceName, serviceVersion string, exporter sdktrace.SpanExporter) (*Provider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("(tracing) failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	)

	return &Provider{tp: tp}, nil
}

// Init creates a [Provider] writing spans as JSON to outputFile and installs
// it as the global tracer provider.
func Init(ctx context.Context, serviceName, serviceVersion, outputFile string) (*Provider, error) {
	f, err := os.Create(outputFile)
	if err != nil {
		return nil, fmt.Errorf("(tracing) failed to create %s: %w", outputFile, err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(f))
	if err != nil {
		f.Close()

		return nil, fmt.Errorf("(tracing) failed to create exporter: %w", err)
	}

	p, err := NewProvider(ctx, serviceName, serviceVersion, exporter)
	if err != nil {
		f.Close()

		return nil, err
	}
	p.closer = f

	otel.SetTracerProvider(p.tp)

	return p, nil
}

// Tracer returns the kernel's tracer of the provider.
func (p *Provider) Tracer() trace.Tracer {
	return p.tp.Tracer(Name)
}

// Shutdown flushes and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	err := p.tp.Shutdown(ctx)

	if p.closer != nil {
		if cerr := p.closer.Close(); err == nil {
			err = cerr
		}
	}

	if err != nil {
		return fmt.Errorf("(tracing) failed to shut down: %w", err)
	}

	return nil
}

// Global returns the kernel's tracer of the global provider.
func Global() trace.Tracer {
	return otel.Tracer(Name)
}

// End records the outcome of a span and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}
