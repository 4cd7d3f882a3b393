// Package vaultclient is the Go client SDK for the MediaVault API. It wraps
// the GraphQL endpoint and manages the bearer token lifecycle: persistence,
// proactive refresh before expiry and logout on authentication failure.
package vaultclient

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AccessToken is a bearer token together with its absolute expiry.
type AccessToken struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the token is expired at the given time.
func (t *AccessToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// DecodeExpiry extracts the expiry claim from a JWT without verifying its
// signature. The client has no signing key; it only needs the expiry to
// schedule refreshes.
func DecodeExpiry(token string) (time.Time, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("token is not a JWT")
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("decoding token payload: %w", err)
	}

	var claims struct {
		Exp int64 `json:"exp"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return time.Time{}, fmt.Errorf("parsing token claims: %w", err)
	}
	if claims.Exp == 0 {
		return time.Time{}, fmt.Errorf("token has no expiry claim")
	}
	return time.Unix(claims.Exp, 0), nil
}
