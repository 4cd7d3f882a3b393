package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mediavault/backend/internal/domain/media"
	"github.com/mediavault/backend/internal/domain/shared"
	"github.com/mediavault/backend/internal/infrastructure/imaging"
)

// fakeAssetRepo is an in-memory AssetRepository for service tests.
type fakeAssetRepo struct {
	assets    map[uuid.UUID]*media.ImageAsset
	createErr error
}

func newFakeAssetRepo() *fakeAssetRepo {
	return &fakeAssetRepo{assets: make(map[uuid.UUID]*media.ImageAsset)}
}

func (r *fakeAssetRepo) Create(_ context.Context, asset *media.ImageAsset) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.assets[asset.ID] = asset
	return nil
}

func (r *fakeAssetRepo) Update(_ context.Context, asset *media.ImageAsset) error {
	r.assets[asset.ID] = asset
	return nil
}

func (r *fakeAssetRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.assets[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.assets, id)
	return nil
}

func (r *fakeAssetRepo) FindByID(_ context.Context, id uuid.UUID) (*media.ImageAsset, error) {
	asset, ok := r.assets[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return asset, nil
}

func (r *fakeAssetRepo) FindPageByUser(_ context.Context, userID uuid.UUID, page, perPage int) ([]*media.ImageAsset, int64, error) {
	all := r.byUser(userID)
	total := int64(len(all))
	start := (page - 1) * perPage
	if start >= len(all) {
		return []*media.ImageAsset{}, total, nil
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *fakeAssetRepo) FindAllByUser(_ context.Context, userID uuid.UUID) ([]*media.ImageAsset, error) {
	return r.byUser(userID), nil
}

func (r *fakeAssetRepo) FindAll(_ context.Context, filter media.AssetFilter) ([]*media.ImageAsset, error) {
	var out []*media.ImageAsset
	for _, a := range r.assets {
		if filter.MissingThumbnail && a.ThumbnailPath != "" {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeAssetRepo) byUser(userID uuid.UUID) []*media.ImageAsset {
	var out []*media.ImageAsset
	for _, a := range r.assets {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

var _ media.AssetRepository = (*fakeAssetRepo)(nil)

// fakeStore writes files under a temp directory like the real local store,
// with switches to inject failures.
type fakeStore struct {
	root          string
	failKeyPrefix string // writes to keys with this prefix fail
	discardWrites bool   // writes succeed but leave no file on disk
	writes        []string
	deletes       []string
}

func newFakeStore(t *testing.T) *fakeStore {
	t.Helper()
	return &fakeStore{root: t.TempDir()}
}

func (s *fakeStore) Write(_ context.Context, key string, r io.Reader) error {
	if s.failKeyPrefix != "" && len(key) >= len(s.failKeyPrefix) && key[:len(s.failKeyPrefix)] == s.failKeyPrefix {
		return errors.New("injected write failure")
	}
	s.writes = append(s.writes, key)
	if s.discardWrites {
		_, err := io.Copy(io.Discard, r)
		return err
	}
	path := s.AbsolutePath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.deletes = append(s.deletes, key)
	err := os.Remove(s.AbsolutePath(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(s.AbsolutePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *fakeStore) AbsolutePath(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *fakeStore) URL(key string) string {
	return "/storage/" + key
}

// encodeTestImage renders a width x height image in the given format.
func encodeTestImage(t *testing.T, width, height int, format imaging.Format) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, format))
	return buf.Bytes()
}
