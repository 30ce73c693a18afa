package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestParseRoundTrip(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	token := signToken(t, jwt.MapClaims{
		"sub":  "user-1",
		"role": RoleClient,
		"iss":  "fitsync.identity",
		"exp":  exp.Unix(),
	}, testSecret)

	claims, err := Parse(token, Config{Secret: testSecret, Issuer: "fitsync.identity"})
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, RoleClient, claims.Role)
	require.Equal(t, token, claims.Raw)
	require.WithinDuration(t, exp, claims.ExpiresAt, time.Second)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, "other-secret")

	_, err := Parse(token, Config{Secret: testSecret})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Minute).Unix(),
	}, testSecret)

	_, err := Parse(token, Config{Secret: testSecret})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsMissingSubject(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	_, err := Parse(token, Config{Secret: testSecret})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub": "user-1",
		"iss": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	_, err := Parse(token, Config{Secret: testSecret, Issuer: "fitsync.identity"})
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsEmptyToken(t *testing.T) {
	_, err := Parse("", Config{Secret: testSecret})
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestCanAccessUser(t *testing.T) {
	client := &Claims{Subject: "user-1", Role: RoleClient}
	require.True(t, client.CanAccessUser("user-1"))
	require.False(t, client.CanAccessUser("user-2"))

	trainer := &Claims{Subject: "trainer-1", Role: RoleTrainer}
	require.True(t, trainer.CanAccessUser("user-2"))

	admin := &Claims{Subject: "admin-1", Role: RoleAdmin}
	require.True(t, admin.CanAccessUser("user-2"))
}
