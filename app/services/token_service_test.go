package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgdesk/orgdesk/utils"
)

const testSecret = "test-secret-key-that-is-long-enough-for-hs256"

func newTestTokenService(t *testing.T, ttl time.Duration) TokenService {
	t.Helper()
	svc, err := NewTokenService(ttl, "orgdesk-test", "orgdesk-api", testSecret)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService(t *testing.T) {
	t.Run("RejectsEmptySecret", func(t *testing.T) {
		_, err := NewTokenService(time.Hour, "iss", "aud", "")
		assert.Error(t, err)
	})
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestTokenService(t, time.Hour)

	token, err := svc.GenerateToken(42, utils.LevelManager)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, utils.LevelManager, claims.HierarchyLevel)
	assert.NotEmpty(t, claims.TokenID)
	assert.WithinDuration(t, utils.UTCNow(), claims.IssuedAt, 5*time.Second)
	assert.WithinDuration(t, utils.UTCNowAdd(time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestValidateTokenFailures(t *testing.T) {
	svc := newTestTokenService(t, time.Hour)

	t.Run("GarbageToken", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("WrongSigningKey", func(t *testing.T) {
		other, err := NewTokenService(time.Hour, "orgdesk-test", "orgdesk-api", "a-completely-different-secret-key-value")
		require.NoError(t, err)

		token, err := other.GenerateToken(1, utils.LevelCEO)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		expired := newTestTokenService(t, -time.Minute)

		token, err := expired.GenerateToken(1, utils.LevelCEO)
		require.NoError(t, err)

		_, err = expired.ValidateToken(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})
}
