// Package jwt signs and verifies the bearer tokens that identify a
// verification subject.
package jwt

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrKeyTooShort is returned when the HS512 key holds fewer than 64 bytes.
	ErrKeyTooShort = errors.New("HS512 signing key must be at least 64 bytes")

	// ErrUnexpectedMethod is returned when a token is signed with anything
	// other than HS512.
	ErrUnexpectedMethod = errors.New("unexpected JWT signing method")

	// ErrTokenExpired is returned when the token is past its expiry.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid is returned for malformed or unverifiable tokens.
	ErrTokenInvalid = errors.New("invalid token")
)

// JWT issues and checks subject tokens.
type JWT interface {
	Generate(subjectID int64, email string) (string, error)
	Verify(tokenStr string) (Claims, error)
}

type clocker interface {
	Now() time.Time
}

type generator interface {
	Generate() string
}

type authContextKey struct{}

// GetAuth returns the claims stored in the context, or nil when the request
// is anonymous.
func GetAuth(ctx context.Context) *Claims {
	clm, ok := ctx.Value(authContextKey{}).(Claims)
	if !ok {
		return nil
	}

	return &clm
}

// SetAuth stores verified claims in the context.
func SetAuth(ctx context.Context, clm Claims) context.Context {
	return context.WithValue(ctx, authContextKey{}, clm)
}
