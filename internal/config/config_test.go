package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.App.Port)
	assert.Equal(t, 24, cfg.Auth.TokenTTLHours)
	assert.Equal(t, "lexflow.activity", cfg.RabbitMQ.ActivityQueue)
	assert.Equal(t, 3600, cfg.AICacheTTLSeconds())
	assert.Equal(t, "gemini-1.5-flash", cfg.AI.GeminiModel)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRatio)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_APP_PORT", "9100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.App.Port)
}

func TestLoad_FileWithEnvExpansion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0o755))
	yaml := `app:
  name: lexflow-test
auth:
  jwtSecret: ${LEXFLOW_TEST_SECRET}
ai:
  cacheTTLSec: 60
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "config.yaml"), []byte(yaml), 0o644))
	t.Chdir(dir)
	t.Setenv("LEXFLOW_TEST_SECRET", "s3cr3t")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "lexflow-test", cfg.App.Name)
	assert.Equal(t, "s3cr3t", cfg.Auth.JWTSecret)
	assert.Equal(t, 60, cfg.AICacheTTLSeconds())
	// defaults still apply to keys missing from the file
	assert.Equal(t, "0.0.0.0", cfg.App.Host)
}
