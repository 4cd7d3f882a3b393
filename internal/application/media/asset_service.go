package media

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mediavault/backend/internal/domain/media"
	"github.com/mediavault/backend/internal/domain/shared"
	"github.com/mediavault/backend/internal/infrastructure/storage"
)

// AssetService handles listing, metadata updates and deletion of image
// assets. Every operation is scoped to the owning user.
type AssetService struct {
	assetRepo media.AssetRepository
	store     storage.FileStore
	perPage   int
	logger    *zap.Logger
}

// NewAssetService creates a new AssetService
func NewAssetService(assetRepo media.AssetRepository, store storage.FileStore, perPage int, logger *zap.Logger) *AssetService {
	return &AssetService{
		assetRepo: assetRepo,
		store:     store,
		perPage:   perPage,
		logger:    logger,
	}
}

// Get returns one of the user's assets by ID. Assets owned by other users
// are reported as not found rather than forbidden.
func (s *AssetService) Get(ctx context.Context, userID, assetID uuid.UUID) (*media.ImageAsset, error) {
	asset, err := s.assetRepo.FindByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if !asset.OwnedBy(userID) {
		return nil, shared.ErrNotFound
	}
	return asset, nil
}

// List returns one page of the user's assets, newest first.
func (s *AssetService) List(ctx context.Context, userID uuid.UUID, page int) (*AssetPage, error) {
	if page < 1 {
		page = 1
	}
	assets, total, err := s.assetRepo.FindPageByUser(ctx, userID, page, s.perPage)
	if err != nil {
		return nil, err
	}
	return &AssetPage{
		Assets:      assets,
		Total:       total,
		PerPage:     s.perPage,
		CurrentPage: page,
	}, nil
}

// SetDetails applies a partial metadata update to one of the user's assets.
// Fields left nil in the input stay untouched; provided tags are normalized.
func (s *AssetService) SetDetails(ctx context.Context, input SetDetailsInput) (*media.ImageAsset, error) {
	asset, err := s.Get(ctx, input.UserID, input.AssetID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, shared.NewDomainError("INVALID_INPUT", "Asset name cannot be empty")
		}
		asset.Name = *input.Name
	}
	asset.ApplyDetails(media.DetailsPatch{
		Description: input.Description,
		AltText:     input.AltText,
		Tags:        input.Tags,
	})

	if err := s.assetRepo.Update(ctx, asset); err != nil {
		s.logger.Error("Failed to update asset details",
			zap.String("asset_id", asset.ID.String()), zap.Error(err))
		return nil, shared.ErrInternal
	}
	return asset, nil
}

// Delete removes one of the user's assets along with its stored files. The
// database record goes first; file deletions are best-effort after that.
func (s *AssetService) Delete(ctx context.Context, userID, assetID uuid.UUID) error {
	asset, err := s.Get(ctx, userID, assetID)
	if err != nil {
		return err
	}

	if err := s.assetRepo.Delete(ctx, asset.ID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.ErrNotFound
		}
		s.logger.Error("Failed to delete asset record",
			zap.String("asset_id", asset.ID.String()), zap.Error(err))
		return shared.ErrInternal
	}

	s.removeFiles(ctx, asset)
	s.logger.Info("Asset deleted",
		zap.String("asset_id", asset.ID.String()),
		zap.String("user_id", userID.String()))
	return nil
}

// DeleteAllForUser removes every asset owned by a user, records first, then
// files. Used by the account cleanup CLI command. Returns the number of
// assets removed.
func (s *AssetService) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	assets, err := s.assetRepo.FindAllByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, asset := range assets {
		if err := s.assetRepo.Delete(ctx, asset.ID); err != nil {
			s.logger.Error("Failed to delete asset record during bulk cleanup",
				zap.String("asset_id", asset.ID.String()), zap.Error(err))
			continue
		}
		s.removeFiles(ctx, asset)
		removed++
	}

	s.logger.Info("User assets deleted",
		zap.String("user_id", userID.String()),
		zap.Int("count", removed))
	return removed, nil
}

func (s *AssetService) removeFiles(ctx context.Context, asset *media.ImageAsset) {
	if err := s.store.Delete(ctx, asset.FilePath); err != nil {
		s.logger.Warn("Failed to delete stored original",
			zap.String("key", asset.FilePath), zap.Error(err))
	}
	if asset.ThumbnailPath != "" {
		if err := s.store.Delete(ctx, asset.ThumbnailPath); err != nil {
			s.logger.Warn("Failed to delete stored thumbnail",
				zap.String("key", asset.ThumbnailPath), zap.Error(err))
		}
	}
}
