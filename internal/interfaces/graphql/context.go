// Package graphql exposes the API schema and its resolvers, served over a
// single /graphql endpoint.
package graphql

import (
	"context"

	"github.com/mediavault/backend/internal/domain/identity"
	"github.com/mediavault/backend/internal/infrastructure/auth"
)

// Principal is the authenticated caller of a request. RawToken keeps the
// presented bearer token so refreshToken can re-validate it with the expiry
// grace applied.
type Principal struct {
	User     *identity.User
	Claims   *auth.Claims
	RawToken string
}

type contextKey string

const principalKey contextKey = "principal"
const rawTokenKey contextKey = "raw_token"

// WithPrincipal attaches the authenticated principal to the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the authenticated principal, or nil for anonymous
// requests.
func PrincipalFrom(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalKey).(*Principal); ok {
		return p
	}
	return nil
}

// WithRawToken attaches the presented bearer token even when it failed full
// validation, so refreshToken can accept recently-expired tokens.
func WithRawToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, rawTokenKey, token)
}

// RawTokenFrom returns the presented bearer token, or "".
func RawTokenFrom(ctx context.Context) string {
	if p := PrincipalFrom(ctx); p != nil && p.RawToken != "" {
		return p.RawToken
	}
	if t, ok := ctx.Value(rawTokenKey).(string); ok {
		return t
	}
	return ""
}
