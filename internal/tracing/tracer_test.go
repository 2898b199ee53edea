package tracing

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.False(t, cfg.Enabled, "tracing should be disabled by default")
	require.Equal(t, "stdout", cfg.Exporter)
	require.Equal(t, "nodelink", cfg.ServiceName)
}

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(Config{Enabled: false})
	require.NoError(t, err)
	require.False(t, provider.Enabled())

	tracer := provider.Tracer()
	require.NotNil(t, tracer)

	_, span := tracer.Start(context.Background(), "noop-span")
	require.False(t, span.SpanContext().IsValid(), "no-op spans carry no context")
	span.End()

	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_StdoutWriter(t *testing.T) {
	var buf bytes.Buffer
	provider, err := NewProvider(Config{Enabled: true, Exporter: "stdout", Writer: &buf})
	require.NoError(t, err)
	require.True(t, provider.Enabled())

	_, span := provider.Tracer().Start(context.Background(), "link.Connect")
	require.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, provider.Shutdown(context.Background()))
	require.Contains(t, buf.String(), `"Name": "link.Connect"`)
	require.Contains(t, buf.String(), "nodelink")
}

func TestNewProvider_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces", "spans.json")
	provider, err := NewProvider(Config{Enabled: true, Exporter: "file", FilePath: path, ServiceName: "test-service"})
	require.NoError(t, err)

	_, span := provider.Tracer().Start(context.Background(), "link.Apply")
	span.End()
	require.NoError(t, provider.Shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"Name":"link.Apply"`)
	require.Contains(t, string(data), "test-service")
}

func TestNewProvider_Errors(t *testing.T) {
	_, err := NewProvider(Config{Enabled: true, Exporter: "file"})
	require.ErrorContains(t, err, "file_path required")

	_, err = NewProvider(Config{Enabled: true, Exporter: "otlp"})
	require.ErrorContains(t, err, "unsupported exporter type: otlp")
}

func TestNewProvider_NoExporter(t *testing.T) {
	provider, err := NewProvider(Config{Enabled: true, Exporter: "none"})
	require.NoError(t, err)

	_, span := provider.Tracer().Start(context.Background(), "internal")
	require.True(t, span.SpanContext().IsValid(), "spans still correlate without an exporter")
	span.End()
	require.NoError(t, provider.Shutdown(context.Background()))
}
