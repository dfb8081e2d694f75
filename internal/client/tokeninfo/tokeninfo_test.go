package tokeninfo

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, c Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("any-key"))
	require.NoError(t, err)
	return s
}

func TestInspect(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := sign(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "7", ExpiresAt: jwt.NewNumericDate(exp)},
		TokenType:        TypeAccess,
	})

	info, err := Inspect(tok)
	require.NoError(t, err)
	require.Equal(t, "7", info.Subject)
	require.Equal(t, TypeAccess, info.TokenType)
	require.True(t, exp.Equal(info.ExpiresAt))
	require.True(t, info.IssuedAt.IsZero())
	require.False(t, info.Expired(time.Now()))
	require.True(t, info.Expired(exp))
}

func TestInspect_ExpiredTokenStillDecodes(t *testing.T) {
	exp := time.Now().Add(-time.Hour)
	tok := sign(t, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "7", ExpiresAt: jwt.NewNumericDate(exp)}})

	info, err := Inspect(tok)
	require.NoError(t, err)
	require.True(t, info.Expired(time.Now()))
}

func TestInspect_NoExpiry(t *testing.T) {
	info, err := Inspect(sign(t, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}}))
	require.NoError(t, err)
	require.False(t, info.Expired(time.Now().Add(100*365*24*time.Hour)))
}

func TestInspect_Opaque(t *testing.T) {
	_, err := Inspect("opaque-token")
	require.ErrorIs(t, err, ErrNotJWT)
}
