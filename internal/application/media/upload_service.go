package media

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mediavault/backend/internal/domain/media"
	"github.com/mediavault/backend/internal/domain/shared"
	"github.com/mediavault/backend/internal/infrastructure/imaging"
	"github.com/mediavault/backend/internal/infrastructure/storage"
)

// UploadService orchestrates image uploads: validation, storing the original,
// thumbnail generation, probing the persisted file and creating the database
// record. Any failure after the first write cleans up every file written so
// far, so a failed upload leaves no trace.
type UploadService struct {
	assetRepo media.AssetRepository
	store     storage.FileStore
	logger    *zap.Logger
	maxBytes  int64
	now       func() time.Time
}

// UploadServiceOption configures an UploadService
type UploadServiceOption func(*UploadService)

// WithClock overrides the upload timestamp source, used by tests.
func WithClock(now func() time.Time) UploadServiceOption {
	return func(s *UploadService) {
		s.now = now
	}
}

// WithMaxUploadSize overrides the per-file size limit for image uploads.
func WithMaxUploadSize(maxBytes int64) UploadServiceOption {
	return func(s *UploadService) {
		if maxBytes > 0 {
			s.maxBytes = maxBytes
		}
	}
}

// NewUploadService creates a new UploadService
func NewUploadService(assetRepo media.AssetRepository, store storage.FileStore, logger *zap.Logger, opts ...UploadServiceOption) *UploadService {
	s := &UploadService{
		assetRepo: assetRepo,
		store:     store,
		logger:    logger,
		maxBytes:  MaxAssetBytes,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload runs the full upload pipeline and returns the created asset.
func (s *UploadService) Upload(ctx context.Context, input UploadImageInput) (*media.ImageAsset, error) {
	format, err := ValidateImageUpload(input.File, s.maxBytes)
	if err != nil {
		return nil, err
	}

	storedName := StoredFileName(input.File.Name, format, s.now())
	originalKey := OriginalKey(storedName)

	if err := s.store.Write(ctx, originalKey, bytes.NewReader(input.File.Data)); err != nil {
		s.logger.Error("Failed to store original", zap.String("key", originalKey), zap.Error(err))
		return nil, shared.NewDomainError("STORAGE_ERROR", "File could not be stored")
	}

	thumbData, err := RenderThumbnail(input.File.Data, format)
	if err != nil {
		s.rollback(ctx, originalKey)
		return nil, shared.NewDomainError("THUMBNAIL_ERROR", "Thumbnail generation failed")
	}

	thumbKey := ThumbnailKey(storedName)
	if err := s.store.Write(ctx, thumbKey, bytes.NewReader(thumbData)); err != nil {
		s.rollback(ctx, originalKey)
		s.logger.Error("Failed to store thumbnail", zap.String("key", thumbKey), zap.Error(err))
		return nil, shared.NewDomainError("STORAGE_ERROR", "Thumbnail could not be stored")
	}

	// The dimensions recorded on the asset come from the file as persisted,
	// not the request buffer.
	width, height, err := imaging.ProbeFile(s.store.AbsolutePath(originalKey), format)
	if err != nil {
		s.rollback(ctx, originalKey, thumbKey)
		return nil, shared.NewDomainError("UNREADABLE_IMAGE", "Stored image could not be read back")
	}

	asset := media.NewImageAsset(media.NewImageAssetInput{
		Name:          displayName(input.File.Name),
		FileName:      storedName,
		FilePath:      originalKey,
		ThumbnailPath: thumbKey,
		FileSize:      int64(len(input.File.Data)),
		MimeType:      format.MIME(),
		Width:         width,
		Height:        height,
		UserID:        input.UserID,
	})

	if err := s.assetRepo.Create(ctx, asset); err != nil {
		s.rollback(ctx, originalKey, thumbKey)
		s.logger.Error("Failed to create asset record", zap.Error(err))
		return nil, shared.ErrInternal
	}

	s.logger.Info("Image uploaded",
		zap.String("asset_id", asset.ID.String()),
		zap.String("user_id", input.UserID.String()),
		zap.String("file", originalKey),
		zap.Int64("size", asset.FileSize))
	return asset, nil
}

// rollback removes files written by a failed upload. Deletion errors are
// logged, not returned; the upload error is what the caller needs.
func (s *UploadService) rollback(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn("Rollback delete failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// displayName derives the initial asset name from the uploaded file name,
// dropping the extension.
func displayName(fileName string) string {
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	if base == "" {
		return "Untitled"
	}
	return base
}
