package media

import (
	"context"

	"github.com/google/uuid"
)

// AssetFilter narrows asset listings.
type AssetFilter struct {
	// MissingThumbnail restricts results to assets without a thumbnail.
	MissingThumbnail bool
}

// AssetRepository defines persistence operations for the ImageAsset aggregate
type AssetRepository interface {
	Create(ctx context.Context, asset *ImageAsset) error
	Update(ctx context.Context, asset *ImageAsset) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*ImageAsset, error)

	// FindPageByUser returns one page of a user's assets ordered by creation
	// time descending, along with the total count for the user.
	FindPageByUser(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*ImageAsset, int64, error)

	// FindAllByUser returns every asset owned by a user.
	FindAllByUser(ctx context.Context, userID uuid.UUID) ([]*ImageAsset, error)

	// FindAll returns assets matching the filter, unscoped by user. Used by
	// administrative tooling such as thumbnail regeneration.
	FindAll(ctx context.Context, filter AssetFilter) ([]*ImageAsset, error)
}
