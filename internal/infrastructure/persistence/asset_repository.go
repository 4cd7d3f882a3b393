package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mediavault/backend/internal/domain/media"
	"github.com/mediavault/backend/internal/domain/shared"
)

// GormAssetRepository implements media.AssetRepository using GORM
type GormAssetRepository struct {
	db *gorm.DB
}

// NewGormAssetRepository creates a new GormAssetRepository
func NewGormAssetRepository(db *gorm.DB) *GormAssetRepository {
	return &GormAssetRepository{db: db}
}

// Create inserts a new image asset
func (r *GormAssetRepository) Create(ctx context.Context, asset *media.ImageAsset) error {
	return r.db.WithContext(ctx).Create(asset).Error
}

// Update persists changes to an existing asset
func (r *GormAssetRepository) Update(ctx context.Context, asset *media.ImageAsset) error {
	return r.db.WithContext(ctx).Save(asset).Error
}

// Delete removes an asset by ID
func (r *GormAssetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&media.ImageAsset{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds an asset by ID
func (r *GormAssetRepository) FindByID(ctx context.Context, id uuid.UUID) (*media.ImageAsset, error) {
	var asset media.ImageAsset
	if err := r.db.WithContext(ctx).First(&asset, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &asset, nil
}

// FindPageByUser returns one page of a user's assets, newest first, together
// with the total count for that user.
func (r *GormAssetRepository) FindPageByUser(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*media.ImageAsset, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&media.ImageAsset{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var assets []*media.ImageAsset
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&assets).Error; err != nil {
		return nil, 0, err
	}
	return assets, total, nil
}

// FindAllByUser returns every asset owned by a user
func (r *GormAssetRepository) FindAllByUser(ctx context.Context, userID uuid.UUID) ([]*media.ImageAsset, error) {
	var assets []*media.ImageAsset
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

// FindAll returns assets matching the filter across all users
func (r *GormAssetRepository) FindAll(ctx context.Context, filter media.AssetFilter) ([]*media.ImageAsset, error) {
	query := r.db.WithContext(ctx).Model(&media.ImageAsset{})
	if filter.MissingThumbnail {
		query = query.Where("thumbnail_path = ?", "")
	}

	var assets []*media.ImageAsset
	if err := query.Order("created_at ASC").Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

// Ensure GormAssetRepository implements AssetRepository
var _ media.AssetRepository = (*GormAssetRepository)(nil)
