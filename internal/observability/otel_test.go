package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func keepGlobalProvider(t *testing.T) {
	t.Helper()
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
}

func TestInitTracingDisabledKeepsProvider(t *testing.T) {
	keepGlobalProvider(t)
	before := otel.GetTracerProvider()

	shutdown, err := InitTracing(context.Background(), nil, TracingConfig{Exporter: "bogus"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.Same(t, before, otel.GetTracerProvider())
}

func TestInitTracingStdoutExporter(t *testing.T) {
	keepGlobalProvider(t)

	shutdown, err := InitTracing(context.Background(), nil, TracingConfig{
		Enabled:     true,
		Exporter:    " STDOUT ",
		SampleRatio: 0,
	})
	require.NoError(t, err)
	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	keepGlobalProvider(t)
	before := otel.GetTracerProvider()

	shutdown, err := InitTracing(context.Background(), nil, TracingConfig{Enabled: true, Exporter: "zipkin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zipkin")
	assert.NoError(t, shutdown(context.Background()))
	assert.Same(t, before, otel.GetTracerProvider())
}

func TestClampRatio(t *testing.T) {
	for in, want := range map[float64]float64{-0.5: 0, 0: 0, 0.25: 0.25, 1: 1, 3: 1} {
		assert.Equal(t, want, clampRatio(in), "ratio %v", in)
	}
}

func TestExporterNameDefaultsToOTLP(t *testing.T) {
	assert.Equal(t, ExporterOTLP, exporterName(TracingConfig{}))
	assert.Equal(t, ExporterStdout, exporterName(TracingConfig{Exporter: "Stdout"}))
}
