package jwtutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_IssueAndParse(t *testing.T) {
	m, err := NewManager("test-secret", 24*time.Hour)
	require.NoError(t, err)
	userID, tenantID := uuid.New(), uuid.New()

	token, issued, err := m.Issue(userID, tenantID, "ada")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), issued.ExpiresAt.Time, 5*time.Second)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, tenantID, claims.TenantID)
	assert.Equal(t, "ada", claims.Username)
}

func TestManager_Expired(t *testing.T) {
	now := time.Now()
	m, err := NewManager("test-secret", time.Hour)
	require.NoError(t, err)
	m.WithClock(func() time.Time { return now })

	token, _, err := m.Issue(uuid.New(), uuid.New(), "ada")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestManager_Invalid(t *testing.T) {
	m, err := NewManager("test-secret", time.Hour)
	require.NoError(t, err)
	other, err := NewManager("other-secret", time.Hour)
	require.NoError(t, err)

	token, _, err := other.Issue(uuid.New(), uuid.New(), "ada")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "wrong secret", token: token},
		{name: "none algorithm", token: func() string {
			s, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &UserClaims{UserID: uuid.New()}).SignedString(jwt.UnsafeAllowNoneSignatureType)
			return s
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Parse(tt.token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestNewManager(t *testing.T) {
	_, err := NewManager("", time.Hour)
	assert.ErrorIs(t, err, ErrEmptySecret)

	m, err := NewManager("test-secret", 0)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, m.TTL())
}
