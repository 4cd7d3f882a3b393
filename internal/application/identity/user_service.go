package identity

import (
	"bytes"
	"context"
	"time"

	"go.uber.org/zap"

	appmedia "github.com/mediavault/backend/internal/application/media"
	"github.com/mediavault/backend/internal/domain/identity"
	"github.com/mediavault/backend/internal/domain/shared"
	"github.com/mediavault/backend/internal/infrastructure/storage"
)

// UserService handles profile updates and avatar management.
type UserService struct {
	userRepo       identity.UserRepository
	store          storage.FileStore
	maxAvatarBytes int64
	logger         *zap.Logger
}

// UserServiceOption configures a UserService
type UserServiceOption func(*UserService)

// WithMaxAvatarSize overrides the per-file size limit for avatar uploads.
func WithMaxAvatarSize(maxBytes int64) UserServiceOption {
	return func(s *UserService) {
		if maxBytes > 0 {
			s.maxAvatarBytes = maxBytes
		}
	}
}

// NewUserService creates a new UserService
func NewUserService(userRepo identity.UserRepository, store storage.FileStore, logger *zap.Logger, opts ...UserServiceOption) *UserService {
	s := &UserService{
		userRepo:       userRepo,
		store:          store,
		maxAvatarBytes: appmedia.MaxAvatarBytes,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpdateProfile applies a partial profile update. Nil fields stay unchanged.
func (s *UserService) UpdateProfile(ctx context.Context, user *identity.User, input UpdateProfileInput) (*identity.User, error) {
	if input.Name != nil {
		if err := user.Rename(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.Email != nil {
		normalized, err := identity.NormalizeEmail(*input.Email)
		if err != nil {
			return nil, err
		}
		if normalized != user.Email {
			exists, err := s.userRepo.ExistsByEmail(ctx, normalized)
			if err != nil {
				s.logger.Error("Failed to check email uniqueness", zap.Error(err))
				return nil, shared.ErrInternal
			}
			if exists {
				return nil, shared.NewDomainError("ALREADY_EXISTS", "An account with this email already exists")
			}
			if err := user.SetEmail(normalized); err != nil {
				return nil, err
			}
		}
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to persist profile update",
			zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil, shared.ErrInternal
	}

	s.logger.Info("Profile updated", zap.String("user_id", user.ID.String()))
	return user, nil
}

// SetAvatar validates and stores a new profile image, replacing and removing
// any previous one. Avatars use the same format checks as asset uploads but
// a tighter size limit.
func (s *UserService) SetAvatar(ctx context.Context, user *identity.User, file appmedia.UploadedFile) (*identity.User, error) {
	format, err := appmedia.ValidateImageUpload(file, s.maxAvatarBytes)
	if err != nil {
		return nil, err
	}

	key := "avatars/" + appmedia.StoredFileName(file.Name, format, time.Now())
	if err := s.store.Write(ctx, key, bytes.NewReader(file.Data)); err != nil {
		s.logger.Error("Failed to store avatar", zap.String("key", key), zap.Error(err))
		return nil, shared.NewDomainError("STORAGE_ERROR", "Avatar could not be stored")
	}

	previous := user.AvatarPath
	user.SetAvatarPath(key)
	if err := s.userRepo.Update(ctx, user); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Warn("Failed to remove orphaned avatar", zap.String("key", key), zap.Error(delErr))
		}
		s.logger.Error("Failed to persist avatar", zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil, shared.ErrInternal
	}

	if previous != "" && previous != key {
		if err := s.store.Delete(ctx, previous); err != nil {
			s.logger.Warn("Failed to delete previous avatar",
				zap.String("key", previous), zap.Error(err))
		}
	}

	s.logger.Info("Avatar updated",
		zap.String("user_id", user.ID.String()), zap.String("avatar", key))
	return user, nil
}
