// Package utils issues and parses the signed session tokens that identify
// anonymous booking sessions.
package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionToken is a signed HS256 JWT whose subject is the session ID.
type SessionToken struct {
	SessionID string    // uuid identifying the session
	Token     string    // the serialized JWT
	Exp       time.Time // UTC expiration time
}

// ErrInvalidToken is returned for tokens that fail signature, expiry or
// claim checks.
var ErrInvalidToken = errors.New("invalid token")

// NewSessionToken starts a new anonymous session valid for ttl.
func NewSessionToken(secret string, ttl time.Duration) (SessionToken, error) {
	return signSession(secret, uuid.New().String(), time.Now().UTC(), ttl)
}

func signSession(secret, sessionID string, now time.Time, ttl time.Duration) (SessionToken, error) {
	exp := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		ID:        uuid.New().String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{SessionID: sessionID, Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies raw and returns its session ID.
func ParseSessionToken(secret, raw string) (string, error) {
	var claims jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
