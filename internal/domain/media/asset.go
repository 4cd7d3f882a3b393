package media

import (
	"github.com/google/uuid"

	"github.com/mediavault/backend/internal/domain/shared"
)

// ImageAsset represents an uploaded image together with its stored files and
// user-editable metadata. It is the aggregate root for all asset operations.
//
// Width and Height are set only after the persisted file has been probed
// successfully. Tags are stored normalized (see NormalizeTags) in a JSON
// column that may be NULL; the user-facing value is never null, defaulting to
// an empty list.
type ImageAsset struct {
	shared.BaseEntity
	Name          string `gorm:"size:255;not null"`
	FileName      string `gorm:"size:255;not null"`
	FilePath      string `gorm:"size:500;not null"`
	ThumbnailPath string `gorm:"size:500"`
	FileSize      int64  `gorm:"not null"`
	MimeType      string `gorm:"size:100;not null"`
	Width         *int
	Height        *int
	Tags          []string `gorm:"serializer:json"`
	Description   *string  `gorm:"type:text"`
	AltText       *string  `gorm:"type:text"`
	UserID        uuid.UUID `gorm:"type:uuid;index;not null"`
}

// TableName sets the database table name for GORM
func (ImageAsset) TableName() string {
	return "image_assets"
}

// NewImageAssetInput carries the fields required to create an asset record.
type NewImageAssetInput struct {
	Name          string
	FileName      string
	FilePath      string
	ThumbnailPath string
	FileSize      int64
	MimeType      string
	Width         int
	Height        int
	UserID        uuid.UUID
}

// NewImageAsset creates an asset record for files that are already stored and
// probed. Dimensions are required here because records are only created after
// a successful probe.
func NewImageAsset(in NewImageAssetInput) *ImageAsset {
	width, height := in.Width, in.Height
	return &ImageAsset{
		BaseEntity:    shared.NewBaseEntity(),
		Name:          in.Name,
		FileName:      in.FileName,
		FilePath:      in.FilePath,
		ThumbnailPath: in.ThumbnailPath,
		FileSize:      in.FileSize,
		MimeType:      in.MimeType,
		Width:         &width,
		Height:        &height,
		Tags:          []string{},
		UserID:        in.UserID,
	}
}

// DetailsPatch is a partial update of user-editable metadata. A nil field is
// left unchanged; a provided field is replaced. Tags are normalized on write.
type DetailsPatch struct {
	Description *string
	AltText     *string
	Tags        []string
}

// ApplyDetails applies a partial metadata patch.
func (a *ImageAsset) ApplyDetails(patch DetailsPatch) {
	if patch.Description != nil {
		a.Description = patch.Description
	}
	if patch.AltText != nil {
		a.AltText = patch.AltText
	}
	if patch.Tags != nil {
		a.Tags = NormalizeTags(patch.Tags)
	}
	a.Touch()
}

// SetThumbnailPath records a generated thumbnail location.
func (a *ImageAsset) SetThumbnailPath(path string) {
	a.ThumbnailPath = path
	a.Touch()
}

// NormalizedTags returns the tag list, never nil.
func (a *ImageAsset) NormalizedTags() []string {
	if a.Tags == nil {
		return []string{}
	}
	return a.Tags
}

// OwnedBy reports whether the asset belongs to the given user.
func (a *ImageAsset) OwnedBy(userID uuid.UUID) bool {
	return a.UserID == userID
}
