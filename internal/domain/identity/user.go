package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mediavault/backend/internal/domain/shared"
)

// Password cost for bcrypt
const bcryptCost = 12

// MinPasswordLength is the minimum accepted password length at registration
// and password change.
const MinPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// User represents a registered account. It is the aggregate root for
// profile and credential operations.
type User struct {
	shared.BaseEntity
	Name         string `gorm:"size:200;not null"`
	Email        string `gorm:"size:254;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:100;not null"`
	AvatarPath   string `gorm:"size:500"`

	PasswordChangedAt *time.Time
}

// TableName sets the database table name for GORM
func (User) TableName() string {
	return "users"
}

// NewUser creates a new user with a hashed password.
func NewUser(name, email, password string) (*User, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	now := time.Now()
	return &User{
		BaseEntity:        shared.NewBaseEntity(),
		Name:              name,
		Email:             email,
		PasswordHash:      hash,
		PasswordChangedAt: &now,
	}, nil
}

// NormalizeEmail lowercases and trims an email address, validating its shape.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return "", err
	}
	return email, nil
}

// Rename sets the user's display name.
func (u *User) Rename(name string) error {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return err
	}
	u.Name = name
	u.Touch()
	return nil
}

// SetEmail normalizes and replaces the user's email address.
func (u *User) SetEmail(email string) error {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	u.Email = normalized
	u.Touch()
	return nil
}

// SetAvatarPath records the storage path of the user's avatar.
func (u *User) SetAvatarPath(path string) {
	u.AvatarPath = path
	u.Touch()
}

// VerifyPassword checks a plaintext password against the stored hash.
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// ChangePassword verifies the current password and replaces the hash. On
// success it returns a PasswordChangedEvent for downstream listeners.
func (u *User) ChangePassword(currentPassword, newPassword string) (*PasswordChangedEvent, error) {
	if !u.VerifyPassword(currentPassword) {
		return nil, shared.NewDomainError("INCORRECT_PASSWORD", "Current password is incorrect")
	}
	if err := u.SetPassword(newPassword); err != nil {
		return nil, err
	}
	return &PasswordChangedEvent{UserID: u.ID, ChangedAt: *u.PasswordChangedAt}, nil
}

// SetPassword replaces the hash without verifying the old password.
func (u *User) SetPassword(newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	u.PasswordHash = hash
	now := time.Now()
	u.PasswordChangedAt = &now
	u.Touch()
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func validateName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Name is required")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Name cannot exceed 200 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return shared.NewDomainError("INVALID_EMAIL", "Email is required")
	}
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Email address is not valid")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		// bcrypt input limit
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	return nil
}

// PasswordChangedEvent is raised after a successful password change so that
// downstream listeners can invalidate other sessions.
type PasswordChangedEvent struct {
	UserID    uuid.UUID
	ChangedAt time.Time
}
