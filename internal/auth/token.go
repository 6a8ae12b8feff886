package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mailblast/mailblast/internal/config"
)

// TokenService handles JWT access token creation and validation.
type TokenService struct {
	cfg config.TokenConfig
}

// TokenClaims represents the claims in an access token.
type TokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// NewTokenService creates a new TokenService.
func NewTokenService(cfg config.TokenConfig) *TokenService {
	return &TokenService{cfg: cfg}
}

// GenerateAccessToken creates a signed HS256 access token for the user.
func (s *TokenService) GenerateAccessToken(userID, email string) (string, error) {
	now := time.Now()

	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenTTL)),
			ID:        uuid.New().String(),
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.AccessSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken validates an access token and returns the claims.
func (s *TokenService) ValidateAccessToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.AccessSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

// AccessTokenTTL returns the configured access token TTL.
func (s *TokenService) AccessTokenTTL() time.Duration {
	return s.cfg.AccessTokenTTL
}

// RefreshTokenTTL returns the configured refresh token TTL.
func (s *TokenService) RefreshTokenTTL() time.Duration {
	return s.cfg.RefreshTokenTTL
}
