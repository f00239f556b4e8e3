package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ingest-api/cmd/configs"
)

func TestGenerateAndValidate(t *testing.T) {
	ts := NewTokenService(&configs.JWTConfig{SecretKey: "secret", AccessTokenTTL: 5})

	token, err := ts.GenerateServiceToken("airflow")
	require.NoError(t, err)

	claims, err := ts.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "airflow", claims.Client)
	assert.Equal(t, "ingest-api", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateRejectsOtherSecret(t *testing.T) {
	token, err := NewTokenService(&configs.JWTConfig{SecretKey: "one"}).GenerateServiceToken("a")
	require.NoError(t, err)

	_, err = NewTokenService(&configs.JWTConfig{SecretKey: "two"}).ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	ts := NewTokenService(&configs.JWTConfig{SecretKey: "secret"})
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "ingest-api",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ts.ValidateToken(token)
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	ts := NewTokenService(&configs.JWTConfig{})

	token, err := ts.ExtractTokenFromHeader("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	_, err = ts.ExtractTokenFromHeader("Basic abc")
	assert.Error(t, err)
	_, err = ts.ExtractTokenFromHeader("")
	assert.Error(t, err)
}

func TestEnabled(t *testing.T) {
	assert.False(t, NewTokenService(&configs.JWTConfig{}).Enabled())
	assert.True(t, NewTokenService(&configs.JWTConfig{SecretKey: "s"}).Enabled())

	_, err := NewTokenService(&configs.JWTConfig{}).GenerateServiceToken("a")
	assert.Error(t, err)
}
