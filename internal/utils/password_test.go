package utils

import (
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashVerify(t *testing.T) {
	encoded, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$"))

	assert.True(t, VerifyPassword(encoded, "s3cret"))
	assert.False(t, VerifyPassword(encoded, "S3cret"))
	assert.False(t, VerifyPassword(encoded, ""))
}

func TestPasswordHashSaltedPerCall(t *testing.T) {
	a, err := HashPassword("same")
	require.NoError(t, err)
	b, err := HashPassword("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.True(t, VerifyPassword(a, "same"))
	assert.True(t, VerifyPassword(b, "same"))
}

func TestVerifyPasswordMalformed(t *testing.T) {
	assert.False(t, VerifyPassword("", "x"))
	assert.False(t, VerifyPassword("$argon2id$v=19$bogus", "x"))
	assert.False(t, VerifyPassword("$bcrypt$whatever", "x"))
}

func TestNewAccessTokenClaims(t *testing.T) {
	access, err := NewAccessToken("secret", 42, 30)
	require.NoError(t, err)
	require.NotEmpty(t, access.Token)

	tok, err := jwt.Parse(access.Token, func(t *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	require.True(t, tok.Valid)

	claims := tok.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(42), claims["sub"])
	assert.Equal(t, "admin", claims["role"])
}

func TestNewAdminPasswordDistinct(t *testing.T) {
	a, err := NewAdminPassword()
	require.NoError(t, err)
	b, err := NewAdminPassword()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a)
}
