package media

import (
	"bytes"
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/mediavault/backend/internal/domain/media"
	"github.com/mediavault/backend/internal/domain/shared"
	"github.com/mediavault/backend/internal/infrastructure/imaging"
	"github.com/mediavault/backend/internal/infrastructure/storage"
)

// ThumbnailService renders and stores thumbnails for image assets. It is
// shared by the upload path and the backfill CLI command.
type ThumbnailService struct {
	assetRepo media.AssetRepository
	store     storage.FileStore
	logger    *zap.Logger
}

// NewThumbnailService creates a new ThumbnailService
func NewThumbnailService(assetRepo media.AssetRepository, store storage.FileStore, logger *zap.Logger) *ThumbnailService {
	return &ThumbnailService{assetRepo: assetRepo, store: store, logger: logger}
}

// RenderThumbnail decodes image data, resizes it to the fixed long-edge
// target and re-encodes it in the same format.
func RenderThumbnail(data []byte, format imaging.Format) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(data), format)
	if err != nil {
		return nil, err
	}
	thumb := imaging.Thumbnail(src, format)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GenerateFor renders and stores the thumbnail for one asset, reading the
// original from storage, and records the thumbnail path on the asset. With
// force false an asset that already has a thumbnail is skipped.
func (s *ThumbnailService) GenerateFor(ctx context.Context, asset *media.ImageAsset, force bool) (bool, error) {
	if asset.ThumbnailPath != "" && !force {
		return false, nil
	}

	format, err := imaging.FormatFromMIME(asset.MimeType)
	if err != nil {
		return false, err
	}

	data, err := os.ReadFile(s.store.AbsolutePath(asset.FilePath))
	if err != nil {
		return false, shared.NewDomainError("STORAGE_ERROR", "Stored image could not be read")
	}

	thumbData, err := RenderThumbnail(data, format)
	if err != nil {
		return false, shared.NewDomainError("THUMBNAIL_ERROR", "Thumbnail generation failed")
	}

	key := ThumbnailKey(asset.FilePath)
	if err := s.store.Write(ctx, key, bytes.NewReader(thumbData)); err != nil {
		return false, shared.NewDomainError("STORAGE_ERROR", "Thumbnail could not be stored")
	}

	asset.SetThumbnailPath(key)
	if err := s.assetRepo.Update(ctx, asset); err != nil {
		s.logger.Error("Failed to persist thumbnail path",
			zap.String("asset_id", asset.ID.String()), zap.Error(err))
		return false, shared.ErrInternal
	}

	s.logger.Info("Thumbnail generated",
		zap.String("asset_id", asset.ID.String()),
		zap.String("thumbnail", key))
	return true, nil
}

// BackfillResult summarizes a thumbnail backfill run.
type BackfillResult struct {
	Generated int
	Skipped   int
	Failed    int
}

// Backfill generates thumbnails for every asset that is missing one, or for
// all assets when force is set. Failures are logged and counted without
// aborting the run.
func (s *ThumbnailService) Backfill(ctx context.Context, force bool) (*BackfillResult, error) {
	filter := media.AssetFilter{MissingThumbnail: !force}
	assets, err := s.assetRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := &BackfillResult{}
	for _, asset := range assets {
		generated, err := s.GenerateFor(ctx, asset, force)
		switch {
		case err != nil:
			s.logger.Warn("Thumbnail backfill failed for asset",
				zap.String("asset_id", asset.ID.String()), zap.Error(err))
			result.Failed++
		case generated:
			result.Generated++
		default:
			result.Skipped++
		}
	}
	return result, nil
}
