package media

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mediavault/backend/internal/domain/shared"
	"github.com/mediavault/backend/internal/infrastructure/imaging"
)

func fixedClock(unix int64) func() time.Time {
	return func() time.Time { return time.Unix(unix, 0) }
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	return de.Code
}

func TestUploadService_Upload(t *testing.T) {
	repo := newFakeAssetRepo()
	store := newFakeStore(t)
	svc := NewUploadService(repo, store, zap.NewNop(), WithClock(fixedClock(1700000000)))

	userID := uuid.New()
	data := encodeTestImage(t, 1000, 500, imaging.FormatPNG)

	asset, err := svc.Upload(context.Background(), UploadImageInput{
		UserID: userID,
		File:   UploadedFile{Name: "My Photo.png", Size: int64(len(data)), Data: data},
	})
	require.NoError(t, err)

	assert.Equal(t, "My Photo", asset.Name)
	assert.Equal(t, "my-photo_1700000000.png", asset.FileName)
	assert.Equal(t, "images/my-photo_1700000000.png", asset.FilePath)
	assert.Equal(t, "thumbnails/my-photo_1700000000_thumb.png", asset.ThumbnailPath)
	assert.Equal(t, "image/png", asset.MimeType)
	require.NotNil(t, asset.Width)
	require.NotNil(t, asset.Height)
	assert.Equal(t, 1000, *asset.Width)
	assert.Equal(t, 500, *asset.Height)
	assert.Equal(t, userID, asset.UserID)
	assert.Equal(t, []string{}, asset.Tags)

	// Both files exist and the record is persisted.
	exists, err := store.Exists(context.Background(), asset.FilePath)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = store.Exists(context.Background(), asset.ThumbnailPath)
	require.NoError(t, err)
	assert.True(t, exists)
	_, err = repo.FindByID(context.Background(), asset.ID)
	assert.NoError(t, err)

	// Thumbnail has the long edge at the fixed target.
	format, err := imaging.FormatFromMIME(asset.MimeType)
	require.NoError(t, err)
	w, h, err := imaging.ProbeFile(store.AbsolutePath(asset.ThumbnailPath), format)
	require.NoError(t, err)
	assert.Equal(t, 450, w)
	assert.Equal(t, 225, h)
}

func TestUploadService_Upload_EmptyFile(t *testing.T) {
	svc := NewUploadService(newFakeAssetRepo(), newFakeStore(t), zap.NewNop())

	_, err := svc.Upload(context.Background(), UploadImageInput{
		UserID: uuid.New(),
		File:   UploadedFile{Name: "empty.png"},
	})
	assert.Equal(t, "INVALID_UPLOAD", domainCode(t, err))
}

func TestUploadService_Upload_UnsupportedFormat(t *testing.T) {
	store := newFakeStore(t)
	svc := NewUploadService(newFakeAssetRepo(), store, zap.NewNop())

	_, err := svc.Upload(context.Background(), UploadImageInput{
		UserID: uuid.New(),
		File:   UploadedFile{Name: "notes.txt", Data: []byte("plain text, not an image")},
	})
	assert.Equal(t, "UNSUPPORTED_FORMAT", domainCode(t, err))
	assert.Empty(t, store.writes, "rejected files must never reach storage")
}

func TestUploadService_Upload_TooLarge(t *testing.T) {
	store := newFakeStore(t)
	svc := NewUploadService(newFakeAssetRepo(), store, zap.NewNop())

	// Valid PNG header followed by padding puts it over the limit while still
	// sniffing as a PNG.
	data := encodeTestImage(t, 8, 8, imaging.FormatPNG)
	data = append(data, make([]byte, MaxAssetBytes+1)...)

	_, err := svc.Upload(context.Background(), UploadImageInput{
		UserID: uuid.New(),
		File:   UploadedFile{Name: "big.png", Data: data},
	})
	assert.Equal(t, "FILE_TOO_LARGE", domainCode(t, err))
	assert.Empty(t, store.writes, "oversized files must never reach storage")
}

func TestUploadService_Upload_ThumbnailFailureRollsBackOriginal(t *testing.T) {
	repo := newFakeAssetRepo()
	store := newFakeStore(t)
	svc := NewUploadService(repo, store, zap.NewNop(), WithClock(fixedClock(1700000000)))

	// A PNG header with a truncated body sniffs as PNG but cannot decode.
	valid := encodeTestImage(t, 100, 100, imaging.FormatPNG)
	truncated := valid[:40]

	_, err := svc.Upload(context.Background(), UploadImageInput{
		UserID: uuid.New(),
		File:   UploadedFile{Name: "broken.png", Data: truncated},
	})
	assert.Equal(t, "THUMBNAIL_ERROR", domainCode(t, err))

	// Original was written, then rolled back.
	assert.Contains(t, store.writes, "images/broken_1700000000.png")
	assert.Contains(t, store.deletes, "images/broken_1700000000.png")
	exists, err := store.Exists(context.Background(), "images/broken_1700000000.png")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, repo.assets)
}

func TestUploadService_Upload_ProbeFailureRollsBackBoth(t *testing.T) {
	repo := newFakeAssetRepo()
	store := newFakeStore(t)
	store.discardWrites = true // persisted file missing, probe of stored file fails
	svc := NewUploadService(repo, store, zap.NewNop(), WithClock(fixedClock(1700000000)))

	data := encodeTestImage(t, 100, 100, imaging.FormatPNG)
	_, err := svc.Upload(context.Background(), UploadImageInput{
		UserID: uuid.New(),
		File:   UploadedFile{Name: "cat.png", Data: data},
	})
	assert.Equal(t, "UNREADABLE_IMAGE", domainCode(t, err))
	assert.Contains(t, store.deletes, "images/cat_1700000000.png")
	assert.Contains(t, store.deletes, "thumbnails/cat_1700000000_thumb.png")
	assert.Empty(t, repo.assets)
}

func TestUploadService_Upload_CreateFailureRollsBackFiles(t *testing.T) {
	repo := newFakeAssetRepo()
	repo.createErr = assert.AnError
	store := newFakeStore(t)
	svc := NewUploadService(repo, store, zap.NewNop(), WithClock(fixedClock(1700000000)))

	data := encodeTestImage(t, 100, 100, imaging.FormatJPEG)
	_, err := svc.Upload(context.Background(), UploadImageInput{
		UserID: uuid.New(),
		File:   UploadedFile{Name: "cat.jpg", Data: data},
	})
	require.Error(t, err)
	assert.Contains(t, store.deletes, "images/cat_1700000000.jpg")
	assert.Contains(t, store.deletes, "thumbnails/cat_1700000000_thumb.jpg")
}

func TestUploadService_Upload_ConfiguredSizeLimit(t *testing.T) {
	store := newFakeStore(t)
	svc := NewUploadService(newFakeAssetRepo(), store, zap.NewNop(), WithMaxUploadSize(64))

	data := encodeTestImage(t, 8, 8, imaging.FormatPNG)
	require.Greater(t, len(data), 64)

	_, err := svc.Upload(context.Background(), UploadImageInput{
		UserID: uuid.New(),
		File:   UploadedFile{Name: "small.png", Data: data},
	})
	assert.Equal(t, "FILE_TOO_LARGE", domainCode(t, err))
	assert.Empty(t, store.writes)
}

func TestStoredFileName(t *testing.T) {
	now := time.Unix(1700000000, 0)

	assert.Equal(t, "my-photo_1700000000.jpg",
		StoredFileName("My Photo.JPG", imaging.FormatJPEG, now))
	assert.Equal(t, "upload_1700000000.png",
		StoredFileName("....png", imaging.FormatPNG, now))
	// Extension follows the detected format, not the claimed one.
	assert.Equal(t, "fake_1700000000.png",
		StoredFileName("fake.jpg", imaging.FormatPNG, now))
}

func TestOriginalKey(t *testing.T) {
	assert.Equal(t, "images/cat_1700000000.jpg", OriginalKey("cat_1700000000.jpg"))
}

func TestThumbnailKey(t *testing.T) {
	assert.Equal(t, "thumbnails/cat_1700000000_thumb.jpg", ThumbnailKey("cat_1700000000.jpg"))
	assert.Equal(t, "thumbnails/a_thumb.webp", ThumbnailKey("a.webp"))
	// Accepts full storage paths, as recorded on persisted assets.
	assert.Equal(t, "thumbnails/cat_1700000000_thumb.jpg", ThumbnailKey("images/cat_1700000000.jpg"))
}
