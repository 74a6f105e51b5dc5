package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetupTelemetryInstallsTracerProvider(t *testing.T) {
	old := TelemetryEndpoint
	TelemetryEndpoint = "stdout"
	t.Cleanup(func() { TelemetryEndpoint = old })

	tel, err := SetupTelemetry(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, tel.Shutdown(context.Background())) })

	assert.Same(t, tel.tracerProvider, otel.GetTracerProvider())
	assert.Same(t, tel.meterProvider, otel.GetMeterProvider())

	_, span := otel.Tracer("github.com/exaring/otelpgx").Start(context.Background(), "query")
	defer span.End()
	assert.True(t, span.IsRecording())
	assert.True(t, span.SpanContext().IsValid())
}

func TestTelemetryShutdownNil(t *testing.T) {
	var tel *Telemetry
	assert.NoError(t, tel.Shutdown(context.Background()))
}
