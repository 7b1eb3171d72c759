// ABOUTME: Tests for JWT verification and generation
// ABOUTME: Covers round trips, expiry, wrong secrets, and malformed sub claims

package auth

import (
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVerifier(t *testing.T) *JWTVerifier {
	t.Helper()
	v, err := NewJWTVerifier([]byte("test-secret"))
	require.NoError(t, err)
	return v
}

func TestJWTVerifier_RoundTrip(t *testing.T) {
	v := newTestVerifier(t)

	token, err := v.Generate(42, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestJWTVerifier_EmptySecret(t *testing.T) {
	_, err := NewJWTVerifier(nil)
	assert.Error(t, err)
}

func TestJWTVerifier_ExpiredToken(t *testing.T) {
	v := newTestVerifier(t)

	token, err := v.Generate(42, -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTVerifier_WrongSecret(t *testing.T) {
	v := newTestVerifier(t)
	other, err := NewJWTVerifier([]byte("other-secret"))
	require.NoError(t, err)

	token, err := other.Generate(42, time.Hour)
	require.NoError(t, err)

	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifier_GarbageToken(t *testing.T) {
	v := newTestVerifier(t)

	_, err := v.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifier_MissingSub(t *testing.T) {
	v := newTestVerifier(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = v.Verify(signed)
	assert.ErrorIs(t, err, ErrMissingClaim)
}

func TestJWTVerifier_NonNumericSub(t *testing.T) {
	v := newTestVerifier(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = v.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTVerifier_RejectsUnexpectedSigningMethod(t *testing.T) {
	v := newTestVerifier(t)

	// alg=none style tokens must never verify
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": strconv.FormatInt(42, 10),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.Verify(signed)
	assert.Error(t, err)
}
