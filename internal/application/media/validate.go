package media

import (
	"fmt"

	"github.com/mediavault/backend/internal/domain/shared"
	"github.com/mediavault/backend/internal/infrastructure/imaging"
)

// Default upload size limits, overridable through the media config section.
const (
	MaxAssetBytes  = 10 << 20 // image asset uploads
	MaxAvatarBytes = 2 << 20  // profile avatar uploads
)

// ValidateImageUpload runs the upload acceptance checks in a fixed order:
// presence, content sniffing against the supported format set, then the size
// limit. It returns the detected format of an accepted file. No bytes are
// ever written to storage for a rejected file.
func ValidateImageUpload(file UploadedFile, maxBytes int64) (imaging.Format, error) {
	if len(file.Data) == 0 {
		return "", shared.NewDomainError("INVALID_UPLOAD", "No file was uploaded")
	}

	format, sniffed, err := imaging.DetectFormat(file.Data)
	if err != nil {
		return "", shared.NewDomainError("UNSUPPORTED_FORMAT",
			fmt.Sprintf("Unsupported image type %q. Only JPEG, PNG, GIF, and WebP images are allowed", sniffed))
	}

	if int64(len(file.Data)) > maxBytes {
		return "", shared.NewDomainError("FILE_TOO_LARGE",
			fmt.Sprintf("File exceeds the maximum allowed size of %d bytes", maxBytes))
	}

	return format, nil
}
