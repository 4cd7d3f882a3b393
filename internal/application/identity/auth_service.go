package identity

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mediavault/backend/internal/domain/identity"
	"github.com/mediavault/backend/internal/domain/shared"
	"github.com/mediavault/backend/internal/infrastructure/auth"
)

// AuthService handles registration, token issuance, refresh and password
// changes.
type AuthService struct {
	userRepo        identity.UserRepository
	jwtService      *auth.JWTService
	blacklist       auth.TokenBlacklist
	validate        *validator.Validate
	logger          *zap.Logger
	passwordChanged []PasswordChangedListener
}

// PasswordChangedListener receives the domain event raised by a successful
// password change.
type PasswordChangedListener func(ctx context.Context, event identity.PasswordChangedEvent)

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	logger *zap.Logger,
) *AuthService {
	s := &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		blacklist:  blacklist,
		validate:   validator.New(),
		logger:     logger,
	}
	if blacklist != nil {
		s.OnPasswordChanged(s.revokeOnPasswordChange)
	}
	return s
}

// OnPasswordChanged registers a listener for password change events.
func (s *AuthService) OnPasswordChanged(l PasswordChangedListener) {
	s.passwordChanged = append(s.passwordChanged, l)
}

// Register creates a new account and returns a token for it.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*TokenResult, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invalid registration input")
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		s.logger.Error("Failed to check email uniqueness", zap.Error(err))
		return nil, shared.ErrInternal
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "An account with this email already exists")
	}

	user, err := identity.NewUser(input.Name, input.Email, input.Password)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, shared.ErrInternal
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email))

	return s.issueFor(user)
}

// IssueToken authenticates a user by email and password and returns a fresh
// token. Unknown email and wrong password produce the same error so callers
// cannot probe which accounts exist.
func (s *AuthService) IssueToken(ctx context.Context, input IssueTokenInput) (*TokenResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Token request for unknown email", zap.String("email", input.Email))
			return nil, invalidCredentials()
		}
		s.logger.Error("Failed to look up user", zap.Error(err))
		return nil, shared.ErrInternal
	}

	if !user.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, invalidCredentials()
	}

	s.logger.Info("Token issued", zap.String("user_id", user.ID.String()))
	return s.issueFor(user)
}

// Refresh exchanges a valid or recently-expired token for a fresh one. Tokens
// revoked by a password change are rejected even inside the grace window.
func (s *AuthService) Refresh(ctx context.Context, tokenString string) (*TokenResult, error) {
	claims, err := s.jwtService.ValidateForRefresh(tokenString)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_REFRESH_TOKEN", "Token cannot be refreshed")
	}

	revoked, err := s.isRevoked(ctx, claims)
	if err != nil {
		s.logger.Error("Failed to check token revocation", zap.Error(err))
		return nil, shared.ErrInternal
	}
	if revoked {
		return nil, shared.NewDomainError("INVALID_REFRESH_TOKEN", "Token cannot be refreshed")
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, shared.NewDomainError("INVALID_REFRESH_TOKEN", "Token cannot be refreshed")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("INVALID_REFRESH_TOKEN", "Token cannot be refreshed")
		}
		s.logger.Error("Failed to look up user during refresh", zap.Error(err))
		return nil, shared.ErrInternal
	}

	s.logger.Info("Token refreshed", zap.String("user_id", user.ID.String()))
	return s.issueFor(user)
}

// ChangePassword verifies the current password, stores the new hash and
// publishes the password change event, which revokes every other session's
// token. The token that performed the change (presented, may be nil) is
// exempted so the caller's own session stays alive.
func (s *AuthService) ChangePassword(ctx context.Context, user *identity.User, presented *auth.Claims, input ChangePasswordInput) error {
	if err := s.validate.Struct(input); err != nil {
		return shared.NewDomainError("INVALID_INPUT", "Invalid password change input")
	}

	event, err := user.ChangePassword(input.CurrentPassword, input.NewPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to persist password change", zap.Error(err))
		return shared.ErrInternal
	}

	if s.blacklist != nil && presented != nil && presented.ID != "" {
		ttl := time.Until(presented.GetExpiresAtTime()) + time.Hour
		if err := s.blacklist.ExemptToken(ctx, presented.ID, ttl); err != nil {
			s.logger.Error("Failed to exempt current token",
				zap.String("user_id", user.ID.String()), zap.Error(err))
		}
	}

	for _, listener := range s.passwordChanged {
		listener(ctx, *event)
	}

	s.logger.Info("Password changed", zap.String("user_id", user.ID.String()))
	return nil
}

// revokeOnPasswordChange is the built-in password change listener. It records
// the revocation cutoff that invalidates tokens issued before the change.
func (s *AuthService) revokeOnPasswordChange(ctx context.Context, event identity.PasswordChangedEvent) {
	ttl := s.jwtService.Expiration() + time.Hour
	if err := s.blacklist.RevokeUserTokens(ctx, event.UserID.String(), ttl); err != nil {
		// The password is already changed; a failed revocation only
		// shortens nothing, so log and carry on.
		s.logger.Error("Failed to revoke tokens after password change",
			zap.String("user_id", event.UserID.String()), zap.Error(err))
	}
}

// Authenticate resolves a bearer token to its user, honoring revocations.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*identity.User, *auth.Claims, error) {
	claims, err := s.jwtService.Validate(tokenString)
	if err != nil {
		return nil, nil, shared.ErrUnauthenticated
	}

	revoked, err := s.isRevoked(ctx, claims)
	if err != nil {
		s.logger.Error("Failed to check token revocation", zap.Error(err))
		return nil, nil, shared.ErrInternal
	}
	if revoked {
		return nil, nil, shared.ErrUnauthenticated
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, nil, shared.ErrUnauthenticated
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, shared.ErrUnauthenticated
		}
		return nil, nil, shared.ErrInternal
	}
	return user, claims, nil
}

func (s *AuthService) isRevoked(ctx context.Context, claims *auth.Claims) (bool, error) {
	if s.blacklist == nil {
		return false, nil
	}
	if revoked, err := s.blacklist.IsTokenRevoked(ctx, claims.ID); err != nil || revoked {
		return revoked, err
	}
	revoked, err := s.blacklist.IsUserTokenRevoked(ctx, claims.UserID, claims.GetIssuedAtTime())
	if err != nil || !revoked {
		return revoked, err
	}
	// A user-level cutoff spares the token that triggered it.
	exempt, err := s.blacklist.IsTokenExempt(ctx, claims.ID)
	if err != nil {
		return false, err
	}
	return !exempt, nil
}

func (s *AuthService) issueFor(user *identity.User) (*TokenResult, error) {
	token, err := s.jwtService.Generate(auth.GenerateTokenInput{
		UserID: user.ID,
		Email:  user.Email,
	})
	if err != nil {
		s.logger.Error("Failed to generate token", zap.Error(err))
		return nil, shared.ErrInternal
	}
	return &TokenResult{Token: token, User: user}, nil
}

func invalidCredentials() *shared.DomainError {
	return shared.NewDomainError("INVALID_CREDENTIALS", "Invalid credentials")
}
