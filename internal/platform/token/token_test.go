package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenService = NewService("test-signing-key", "test-issuer")

func Test_GenerateAndValidate(t *testing.T) {
	signed, err := tokenService.Generate("admin", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := tokenService.Validate(signed)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Scope)
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_Validate_InvalidToken(t *testing.T) {
	_, err := tokenService.Validate("invalid-token-string")
	require.EqualError(t, err, "invalid token")
}

func Test_Validate_ExpiredToken(t *testing.T) {
	signed, err := tokenService.Generate("admin", -time.Hour)
	require.NoError(t, err)

	_, err = tokenService.Validate(signed)
	require.EqualError(t, err, "token has expired")
}

func Test_Validate_WrongKey(t *testing.T) {
	other := NewService("another-signing-key", "test-issuer")
	signed, err := other.Generate("admin", time.Hour)
	require.NoError(t, err)

	_, err = tokenService.Validate(signed)
	require.EqualError(t, err, "invalid token")
}
