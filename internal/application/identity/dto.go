package identity

import (
	"github.com/mediavault/backend/internal/domain/identity"
	"github.com/mediavault/backend/internal/infrastructure/auth"
)

// IssueTokenInput contains credentials for token issuance
type IssueTokenInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// RegisterInput contains input for account registration
type RegisterInput struct {
	Name     string `validate:"required,max=200"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
}

// ChangePasswordInput contains input for a password change
type ChangePasswordInput struct {
	CurrentPassword string `validate:"required"`
	NewPassword     string `validate:"required,min=8,max=72"`
}

// UpdateProfileInput contains optional profile fields. Nil means unchanged.
type UpdateProfileInput struct {
	Name  *string
	Email *string
}

// TokenResult carries an issued token and the authenticated user
type TokenResult struct {
	Token *auth.IssuedToken
	User  *identity.User
}
