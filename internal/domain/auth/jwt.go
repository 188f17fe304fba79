// Package auth provides token issuing and validation for POS operators.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pharmapos/internal/core/appctx"
	"pharmapos/internal/core/id"
)

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
}

// DefaultJWTConfig returns default JWT configuration.
func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{
		Secret:         secret,
		Issuer:         "pharmapos",
		AccessTokenTTL: 8 * time.Hour,
	}
}

// Claims are the JWT claims carried by operator tokens. BranchID scopes the
// operator to one branch; all sale and refund requests run against it.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"uid"`
	Name     string `json:"name"`
	BranchID string `json:"bid"`
}

// JWTService issues and validates operator tokens.
type JWTService struct {
	config JWTConfig
}

// NewJWTService creates a new JWT service.
func NewJWTService(config JWTConfig) *JWTService {
	return &JWTService{config: config}
}

// GenerateAccessToken issues a token for an operator bound to a branch.
func (s *JWTService) GenerateAccessToken(userID, name string, branchID id.ID) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.AccessTokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:   userID,
		Name:     name,
		BranchID: branchID.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken validates a token and returns the actor it represents.
func (s *JWTService) ValidateToken(tokenString string) (*appctx.Actor, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if _, err := id.Parse(claims.BranchID); err != nil {
		return nil, fmt.Errorf("invalid branch id in token: %w", err)
	}

	return &appctx.Actor{
		UserID:   claims.UserID,
		Name:     claims.Name,
		BranchID: claims.BranchID,
	}, nil
}
