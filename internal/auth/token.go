package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenMaker issues and verifies signed bearer tokens carrying a user ID.
type TokenMaker struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenMaker creates a token maker with the given HMAC secret and lifetime
func NewTokenMaker(secret string, ttl time.Duration) (*TokenMaker, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("token secret must be at least 32 characters, got %d", len(secret))
	}
	return &TokenMaker{secret: []byte(secret), ttl: ttl}, nil
}

// CreateToken issues a token for the given user ID
func (m *TokenMaker) CreateToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks the token signature and expiry and returns the user ID
func (m *TokenMaker) VerifyToken(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
