package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestProvider_Success tests that spans and their status are exported.
func TestProvider_Success(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()

	p, err := NewProvider(context.Background(), "forthos", "test", exporter)
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "mem_alloc")
	span.SetAttributes(attribute.String("line", "mem_alloc 10 X"))
	End(span, nil)

	_, span = p.Tracer().Start(context.Background(), "kill")
	End(span, errors.New("not found"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "mem_alloc", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Equal(t, "not found", spans[1].Status.Description)

	require.NoError(t, p.Shutdown(context.Background()))
}

// TestInit_Success tests that spans are written to the trace file.
func TestInit_Success(t *testing.T) {
	t.Parallel()

	fname := filepath.Join(t.TempDir(), "trace.json")

	p, err := Init(context.Background(), "forthos", "test", fname)
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "boot")
	End(span, nil)

	require.NoError(t, p.Shutdown(context.Background()))

	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Name":"boot"`)
}

// TestInit_Fail tests an unwritable trace file.
func TestInit_Fail(t *testing.T) {
	t.Parallel()

	_, err := Init(context.Background(), "forthos", "test", filepath.Join(t.TempDir(), "missing", "trace.json"))
	require.Error(t, err)
}
