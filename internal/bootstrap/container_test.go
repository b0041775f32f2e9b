package bootstrap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexflow/lexflow-api/internal/config"
	"github.com/lexflow/lexflow-api/internal/pkg/jwtutil"
)

func TestNewTokenManager(t *testing.T) {
	cfg := &config.Config{}
	cfg.Auth.TokenTTLHours = 2

	_, err := newTokenManager(cfg)
	assert.ErrorIs(t, err, jwtutil.ErrEmptySecret)
	assert.Contains(t, err.Error(), "auth.jwt_secret")

	cfg.Auth.JWTSecret = "s3cr3t"
	m, err := newTokenManager(cfg)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, m.TTL())
}
