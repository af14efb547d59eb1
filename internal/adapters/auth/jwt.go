// Package auth resolves a connection's credential to a verified identity.
// Nothing room-related runs before this succeeds.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dkeye/WatchParty/internal/core"
	"github.com/dkeye/WatchParty/internal/domain"
)

// UserStore is the persistence lookup the resolver needs.
type UserStore interface {
	GetUser(ctx context.Context, id domain.UserID) (*domain.User, error)
}

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies the bearer tokens clients present.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

func (m *TokenManager) Issue(user *domain.User, now time.Time) (string, error) {
	c := claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
}

// Verify returns the user id the token was issued for.
func (m *TokenManager) Verify(token string) (domain.UserID, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("verify token: %w", core.ErrUnauthenticated)
	}
	return domain.UserID(c.Subject), nil
}

// Resolver is the identity resolver: credential in, verified identity out.
// A valid signature over a deleted account still fails.
type Resolver struct {
	Tokens *TokenManager
	Users  UserStore
}

func NewResolver(tokens *TokenManager, users UserStore) *Resolver {
	return &Resolver{Tokens: tokens, Users: users}
}

func (r *Resolver) Resolve(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, core.ErrUnauthenticated
	}
	uid, err := r.Tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	user, err := r.Users.GetUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", uid, core.ErrUnauthenticated)
	}
	return user, nil
}
