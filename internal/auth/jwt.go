package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"ingest-api/cmd/configs"
)

const defaultIssuer = "ingest-api"

// Claims identify the caller of the ingest API
type Claims struct {
	Client string `json:"client"`
	jwt.RegisteredClaims
}

type TokenService struct {
	config *configs.JWTConfig
}

func NewTokenService(cfg *configs.JWTConfig) *TokenService {
	return &TokenService{config: cfg}
}

// Enabled reports whether a signing secret is configured
func (ts *TokenService) Enabled() bool {
	return ts != nil && ts.config != nil && ts.config.SecretKey != ""
}

func (ts *TokenService) issuer() string {
	if ts.config.Issuer != "" {
		return ts.config.Issuer
	}
	return defaultIssuer
}

// GenerateServiceToken issues an HS256 token for a calling service
func (ts *TokenService) GenerateServiceToken(client string) (string, error) {
	if !ts.Enabled() {
		return "", errors.New("jwt secret is not configured")
	}

	ttl := ts.config.AccessTokenTTL
	if ttl <= 0 {
		ttl = 60
	}
	now := time.Now()

	claims := &Claims{
		Client: client,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttl) * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    ts.issuer(),
			Subject:   client,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(ts.config.SecretKey))
}

func (ts *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(ts.config.SecretKey), nil
	}, jwt.WithIssuer(ts.issuer()))

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

func (ts *TokenService) ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("authorization header is required")
	}

	const bearerPrefix = "Bearer "
	if len(authHeader) < len(bearerPrefix) || authHeader[:len(bearerPrefix)] != bearerPrefix {
		return "", errors.New("authorization header must start with Bearer")
	}

	return authHeader[len(bearerPrefix):], nil
}
