package jwtutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	util := NewJWTUtil("test-signing-key")

	token, err := util.GenerateToken("owner@example.com", 7, "user", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := util.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", claims.Email)
	assert.Equal(t, uint(7), claims.UserID)
	assert.False(t, claims.IsAdmin())
}

func TestAdminClaims(t *testing.T) {
	util := NewJWTUtil("test-signing-key")

	token, err := util.GenerateToken("ops@example.com", 1, RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := util.ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())
}

func TestValidateRejectsWrongKey(t *testing.T) {
	token, err := NewJWTUtil("key-one").GenerateToken("a@b.c", 1, "user", time.Hour)
	require.NoError(t, err)

	_, err = NewJWTUtil("key-two").ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	util := NewJWTUtil("test-signing-key")

	token, err := util.GenerateToken("a@b.c", 1, "user", -time.Minute)
	require.NoError(t, err)

	_, err = util.ValidateToken(token)
	assert.Error(t, err)
}

func TestMissingSigningKey(t *testing.T) {
	util := NewJWTUtil("")

	_, err := util.GenerateToken("a@b.c", 1, "user", time.Hour)
	assert.Error(t, err)

	_, err = util.ValidateToken("whatever")
	assert.Error(t, err)
}
