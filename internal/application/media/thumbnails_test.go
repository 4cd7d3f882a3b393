package media

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mediavault/backend/internal/infrastructure/imaging"
)

func TestRenderThumbnail(t *testing.T) {
	data := encodeTestImage(t, 900, 300, imaging.FormatJPEG)

	thumb, err := RenderThumbnail(data, imaging.FormatJPEG)
	require.NoError(t, err)

	w, h, err := imaging.Probe(bytes.NewReader(thumb), imaging.FormatJPEG)
	require.NoError(t, err)
	assert.Equal(t, 450, w)
	assert.Equal(t, 150, h)
}

func TestThumbnailService_GenerateFor(t *testing.T) {
	repo := newFakeAssetRepo()
	store := newFakeStore(t)
	svc := NewThumbnailService(repo, store, zap.NewNop())

	owner := uuid.New()
	asset := seedAsset(repo, owner, "cat")
	asset.ThumbnailPath = ""
	require.NoError(t, store.Write(context.Background(), asset.FilePath,
		bytes.NewReader(encodeTestImage(t, 600, 400, imaging.FormatJPEG))))

	generated, err := svc.GenerateFor(context.Background(), asset, false)
	require.NoError(t, err)
	assert.True(t, generated)
	assert.Equal(t, "thumbnails/cat_1700000000_thumb.jpg", asset.ThumbnailPath)

	exists, err := store.Exists(context.Background(), asset.ThumbnailPath)
	require.NoError(t, err)
	assert.True(t, exists)

	// Without force an existing thumbnail is left alone.
	generated, err = svc.GenerateFor(context.Background(), asset, false)
	require.NoError(t, err)
	assert.False(t, generated)

	// Force regenerates.
	generated, err = svc.GenerateFor(context.Background(), asset, true)
	require.NoError(t, err)
	assert.True(t, generated)
}

func TestThumbnailService_Backfill(t *testing.T) {
	repo := newFakeAssetRepo()
	store := newFakeStore(t)
	svc := NewThumbnailService(repo, store, zap.NewNop())

	owner := uuid.New()

	missing := seedAsset(repo, owner, "missing")
	missing.ThumbnailPath = ""
	require.NoError(t, store.Write(context.Background(), missing.FilePath,
		bytesReaderOf(t, 300, 200)))

	present := seedAsset(repo, owner, "present")
	require.NoError(t, store.Write(context.Background(), present.FilePath,
		bytesReaderOf(t, 300, 200)))

	broken := seedAsset(repo, owner, "broken")
	broken.ThumbnailPath = "" // no stored file, generation fails

	result, err := svc.Backfill(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Generated)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Skipped, "assets with thumbnails are not selected at all")
	assert.NotEmpty(t, missing.ThumbnailPath)

	// With force every asset is reprocessed, including ones with thumbnails.
	result, err = svc.Backfill(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Generated)
	assert.Equal(t, 1, result.Failed)
}

func bytesReaderOf(t *testing.T, w, h int) *bytes.Reader {
	t.Helper()
	return bytes.NewReader(encodeTestImage(t, w, h, imaging.FormatJPEG))
}
