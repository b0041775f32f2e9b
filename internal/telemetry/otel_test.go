package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/lexflow/lexflow-api/internal/config"
)

func TestSetupTracing_Disabled(t *testing.T) {
	cfg := &config.Config{Telemetry: config.TelemetryCfg{Enabled: true}}
	assert.False(t, Enabled(cfg))

	tp, err := SetupTracing(context.Background(), cfg)
	require.NoError(t, err)
	assert.Nil(t, tp)
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), Sampler(0).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), Sampler(1.5).Description())
	assert.Contains(t, Sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}
