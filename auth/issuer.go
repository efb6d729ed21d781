// Package auth issues and verifies the API's own session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/joyofrisk/api/middleware"
)

// DefaultIssuer is the iss claim of session tokens
const DefaultIssuer = "joy-of-risk-api"

var (
	// ErrEmptySecret is returned when the signing secret is not configured
	ErrEmptySecret = errors.New("jwt secret is empty")
	// ErrInvalidClaims is returned when a token verifies but carries no subject
	ErrInvalidClaims = errors.New("invalid claims")
)

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer signs and validates HS256 session tokens carrying sub and email.
// Roles are not embedded; they live in the profile record.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer. ttl <= 0 means tokens never expire.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Issuer{
		secret: []byte(secret),
		issuer: DefaultIssuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a token for the given subject
func (i *Issuer) Issue(sub, email string) (string, error) {
	if sub == "" {
		return "", ErrInvalidClaims
	}
	now := i.now()
	claims := sessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  sub,
			Issuer:   i.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken implements middleware.TokenValidator
func (i *Issuer) ValidateToken(_ context.Context, token string) (*middleware.Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	},
		jwt.WithIssuer(i.issuer),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return nil, err
	}

	c, _ := parsed.Claims.(*sessionClaims)
	if c == nil || c.Subject == "" {
		return nil, ErrInvalidClaims
	}

	claims := &middleware.Claims{
		Sub:   c.Subject,
		Email: c.Email,
		Iss:   c.Issuer,
	}
	if c.IssuedAt != nil {
		claims.Iat = c.IssuedAt.Unix()
	}
	if c.ExpiresAt != nil {
		claims.Exp = c.ExpiresAt.Unix()
	}
	return claims, nil
}
