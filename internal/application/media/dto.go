package media

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mediavault/backend/internal/domain/media"
	"github.com/mediavault/backend/internal/infrastructure/imaging"
)

// UploadedFile is one file received from a multipart upload, fully buffered.
type UploadedFile struct {
	Name string
	Size int64
	Data []byte
}

// UploadImageInput contains input for an image asset upload
type UploadImageInput struct {
	UserID uuid.UUID
	File   UploadedFile
}

// SetDetailsInput contains input for a metadata update. Nil pointers leave
// the corresponding field unchanged.
type SetDetailsInput struct {
	AssetID     uuid.UUID
	UserID      uuid.UUID
	Name        *string
	Description *string
	AltText     *string
	Tags        []string
}

// AssetPage is one page of a user's assets with pagination totals
type AssetPage struct {
	Assets      []*media.ImageAsset
	Total       int64
	PerPage     int
	CurrentPage int
}

// LastPage returns the index of the last page, at least 1.
func (p *AssetPage) LastPage() int {
	if p.Total == 0 {
		return 1
	}
	last := int((p.Total + int64(p.PerPage) - 1) / int64(p.PerPage))
	if last < 1 {
		last = 1
	}
	return last
}

// HasMorePages reports whether pages beyond the current one exist.
func (p *AssetPage) HasMorePages() bool {
	return p.CurrentPage < p.LastPage()
}

// StoredFileName builds the on-disk name for an upload: the sanitized base
// name, an upload timestamp and the canonical extension for the detected
// format. "My Photo.JPG" uploaded at t becomes "my-photo_<unix>.jpg".
func StoredFileName(originalName string, format imaging.Format, now time.Time) string {
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	base = sanitizeBaseName(base)
	if base == "" {
		base = "upload"
	}
	return fmt.Sprintf("%s_%d%s", base, now.Unix(), format.Extension())
}

// OriginalKey derives the original-image storage key from a stored file
// name. Originals live under the images/ prefix.
func OriginalKey(storedName string) string {
	return "images/" + storedName
}

// ThumbnailKey derives the thumbnail storage key from a stored file name.
func ThumbnailKey(storedName string) string {
	ext := filepath.Ext(storedName)
	base := strings.TrimSuffix(filepath.Base(storedName), ext)
	return "thumbnails/" + base + "_thumb" + ext
}

// sanitizeBaseName keeps letters, digits, dashes and underscores, folding
// everything else to dashes so keys stay safe for filesystems and URLs.
func sanitizeBaseName(name string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
