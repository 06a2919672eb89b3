// Package auth issues and verifies the bearer tokens that carry a caller's
// identity and role.
package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/YahyaBCR/car-rental-BO-sub002/services/api/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issue signs an HS256 token for actor that expires after ttl.
func Issue(secret []byte, actor domain.Actor, now time.Time, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("jwt secret is empty")
	}
	if _, err := domain.ParseRole(string(actor.Role)); err != nil {
		return "", err
	}
	claims := Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Verify checks the signature and expiry of tokenStr and returns the actor
// it names.
func Verify(secret []byte, tokenStr string) (domain.Actor, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid {
		return domain.Actor{}, ErrInvalidToken
	}
	return claims.actor()
}

// Inspect reads the actor from tokenStr without verifying the signature. The
// client side uses it to learn its own role; the server never trusts it.
func Inspect(tokenStr string) (domain.Actor, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return domain.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims.actor()
}

func (c *Claims) actor() (domain.Actor, error) {
	role, err := domain.ParseRole(c.Role)
	if err != nil {
		return domain.Actor{}, err
	}
	if c.Subject == "" {
		return domain.Actor{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return domain.Actor{UserID: c.Subject, Role: role}, nil
}
