package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/serroba/link-registry/internal/shortener"
)

type tokenKey struct{}

// ContextWithToken attaches the caller's bearer token to ctx.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFromContext returns the bearer token attached to ctx, if any.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)

	return token, ok && token != ""
}

// Verifier implements shortener.Authenticator over bearer tokens carried
// in the request context.
type Verifier struct {
	maxAge time.Duration
	now    func() time.Time
}

// NewVerifier creates a token verifier. maxAge of zero accepts any token
// that has not reached its own expiry.
func NewVerifier(maxAge time.Duration) *Verifier {
	return &Verifier{maxAge: maxAge, now: time.Now}
}

func (v *Verifier) RequireAuth(ctx context.Context, id shortener.Identity) error {
	token, ok := TokenFromContext(ctx)
	if !ok {
		return fmt.Errorf("%w: missing bearer token", shortener.ErrAuthenticationFailed)
	}

	if _, err := Parse(token, id, v.now(), v.maxAge); err != nil {
		return fmt.Errorf("%w: %w", shortener.ErrAuthenticationFailed, err)
	}

	return nil
}

// Compile-time check.
var _ shortener.Authenticator = (*Verifier)(nil)
