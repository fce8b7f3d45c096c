package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	j := JWT{Secret: []byte("s3cret"), Issuer: "degenecho", TokenTTL: time.Minute}
	token, exp, err := j.Sign(Claims{Role: RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Subject: "wallet-1"}})
	require.NoError(t, err)
	require.True(t, exp.After(time.Now()))

	claims, err := j.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "wallet-1", claims.Subject)
	require.Equal(t, RoleAdmin, claims.Role)
}

func TestJWT_RejectsWrongSecretAndMissingSubject(t *testing.T) {
	j := JWT{Secret: []byte("s3cret")}
	token, _, err := j.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "wallet-1"}})
	require.NoError(t, err)

	_, err = JWT{Secret: []byte("other")}.Verify(token)
	require.Error(t, err)

	anon, _, err := j.Sign(Claims{})
	require.NoError(t, err)
	_, err = j.Verify(anon)
	require.Error(t, err)
}

func TestJWT_RejectsExpired(t *testing.T) {
	j := JWT{Secret: []byte("s3cret")}
	past := time.Now().Add(-time.Hour)
	token, _, err := j.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "wallet-1",
		ExpiresAt: jwt.NewNumericDate(past),
	}})
	require.NoError(t, err)
	_, err = j.Verify(token)
	require.Error(t, err)
}
