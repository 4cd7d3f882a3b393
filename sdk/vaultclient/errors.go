package vaultclient

import (
	"errors"
	"net/http"

	"github.com/hasura/go-graphql-client"
)

// IsUnauthenticated reports whether err represents an authentication failure:
// an HTTP 401 response or a GraphQL error carrying the UNAUTHENTICATED code.
func IsUnauthenticated(err error) bool {
	if err == nil {
		return false
	}

	var statusErr interface{ StatusCode() int }
	if errors.As(err, &statusErr) && statusErr.StatusCode() == http.StatusUnauthorized {
		return true
	}

	var gqlErrs graphql.Errors
	if errors.As(err, &gqlErrs) {
		for _, e := range gqlErrs {
			if code, ok := e.Extensions["code"].(string); ok && code == "UNAUTHENTICATED" {
				return true
			}
		}
	}

	var gqlErr graphql.Error
	if errors.As(err, &gqlErr) {
		if code, ok := gqlErr.Extensions["code"].(string); ok && code == "UNAUTHENTICATED" {
			return true
		}
	}

	return false
}

// ErrorCode extracts the GraphQL error code from err, or "".
func ErrorCode(err error) string {
	var gqlErrs graphql.Errors
	if errors.As(err, &gqlErrs) && len(gqlErrs) > 0 {
		if code, ok := gqlErrs[0].Extensions["code"].(string); ok {
			return code
		}
	}
	var gqlErr graphql.Error
	if errors.As(err, &gqlErr) {
		if code, ok := gqlErr.Extensions["code"].(string); ok {
			return code
		}
	}
	return ""
}
