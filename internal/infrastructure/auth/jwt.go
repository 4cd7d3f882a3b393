package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mediavault/backend/internal/infrastructure/config"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingUserID    = errors.New("missing user_id in claims")
)

// Claims represents custom JWT claims
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// IssuedToken is a signed bearer token together with its declared lifetime.
type IssuedToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"` // Bearer
	ExpiresAt   time.Time `json:"expires_at"`
	ExpiresIn   int64     `json:"expires_in"` // seconds
}

// JWTService handles JWT token operations
type JWTService struct {
	secret       []byte
	expiration   time.Duration
	refreshGrace time.Duration
	issuer       string
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret:       []byte(cfg.Secret),
		expiration:   cfg.Expiration,
		refreshGrace: cfg.RefreshGrace,
		issuer:       cfg.Issuer,
	}
}

// GenerateTokenInput contains input for token generation
type GenerateTokenInput struct {
	UserID uuid.UUID
	Email  string
}

// Generate issues a signed token for a user.
func (s *JWTService) Generate(input GenerateTokenInput) (*IssuedToken, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   input.UserID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: input.UserID.String(),
		Email:  input.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	return &IssuedToken{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresAt:   now.Add(s.expiration),
		ExpiresIn:   int64(s.expiration / time.Second),
	}, nil
}

// Validate validates an access token and returns its claims.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	return s.parse(tokenString, 0)
}

// ValidateForRefresh validates a token presented for refresh. Tokens expired
// within the refresh grace window are still accepted; signature and claim
// structure must be intact.
func (s *JWTService) ValidateForRefresh(tokenString string) (*Claims, error) {
	return s.parse(tokenString, s.refreshGrace)
}

// parse validates a token, shifting the validation clock back by leeway so a
// recently-expired token can still pass for refresh.
func (s *JWTService) parse(tokenString string, leeway time.Duration) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return time.Now().Add(-leeway) }),
	)

	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}
	return claims, nil
}

// Refresh re-signs a fresh token from a valid (or recently-valid) one. It
// does not require the original password.
func (s *JWTService) Refresh(tokenString string) (*IssuedToken, *Claims, error) {
	claims, err := s.ValidateForRefresh(tokenString)
	if err != nil {
		return nil, nil, err
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, nil, ErrInvalidClaims
	}

	issued, err := s.Generate(GenerateTokenInput{UserID: userID, Email: claims.Email})
	if err != nil {
		return nil, nil, err
	}
	return issued, claims, nil
}

// GetUserUUID extracts and parses the user ID from claims
func (c *Claims) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// GetIssuedAtTime returns the token's issued-at time as time.Time
func (c *Claims) GetIssuedAtTime() time.Time {
	if c.IssuedAt != nil {
		return c.IssuedAt.Time
	}
	return time.Time{}
}

// GetExpiresAtTime returns the token's expiration time as time.Time
func (c *Claims) GetExpiresAtTime() time.Time {
	if c.ExpiresAt != nil {
		return c.ExpiresAt.Time
	}
	return time.Time{}
}

// Expiration returns the configured access token lifetime.
func (s *JWTService) Expiration() time.Duration {
	return s.expiration
}
