package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, exp, err := GenerateToken(secret, 42, "amira", "waiter", time.Hour)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserId)
	assert.Equal(t, "amira", claims.Username)
	assert.Equal(t, "waiter", claims.Role)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := GenerateToken([]byte("secret-a"), 1, "u", "kitchen", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken([]byte("secret-b"), token)
	require.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	secret := []byte("test-secret")
	token, _, err := GenerateToken(secret, 1, "u", "owner", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(secret, token)
	require.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := ParseToken([]byte("s"), "not.a.token")
	require.Error(t, err)
}
