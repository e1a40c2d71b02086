package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService("test-secret", time.Hour, 24*time.Hour, "vireo-test")

	token, err := svc.GenerateAccessToken("u-1", "alice", "admin")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "vireo-test", claims.Issuer)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := NewService("test-secret", -time.Minute, time.Hour, "vireo-test")

	token, err := svc.GenerateAccessToken("u-1", "alice", "")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	svc := NewService("secret-a", time.Hour, time.Hour, "vireo-test")
	other := NewService("secret-b", time.Hour, time.Hour, "vireo-test")

	token, err := svc.GenerateAccessToken("u-1", "alice", "")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestRefreshToken(t *testing.T) {
	svc := NewService("test-secret", time.Hour, 24*time.Hour, "vireo-test")

	token, err := svc.GenerateRefreshToken("u-9")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}
