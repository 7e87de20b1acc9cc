// Package auth issues and verifies session tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"legaldesk/internal/domain"
)

const (
	// CookieName is the cookie carrying the session token.
	CookieName = "token"

	SessionTTL    = 7 * 24 * time.Hour
	RememberMeTTL = 30 * 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the signed contents of a session token.
type Claims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	now    func() time.Time
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret), now: time.Now}
}

// TTL returns the session lifetime for the remember-me choice.
func TTL(rememberMe bool) time.Duration {
	if rememberMe {
		return RememberMeTTL
	}
	return SessionTTL
}

// Issue signs id with an expiry of 7 days, or 30 days when rememberMe is set.
func (m *TokenManager) Issue(id domain.Identity, rememberMe bool) (string, error) {
	now := m.now()
	claims := &Claims{
		ID:    id.ID,
		Email: id.Email,
		Role:  string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTL(rememberMe))),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify returns the identity embedded in a valid token. Any failure
// (signature, algorithm, expiry, unknown role) yields ErrInvalidToken.
func (m *TokenManager) Verify(tokenString string) (*domain.Identity, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &domain.Identity{ID: claims.ID, Email: claims.Email, Role: role}, nil
}
