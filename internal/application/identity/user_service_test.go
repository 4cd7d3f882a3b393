package identity

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appmedia "github.com/mediavault/backend/internal/application/media"
	"github.com/mediavault/backend/internal/domain/identity"
	"github.com/mediavault/backend/internal/domain/shared"
)

func newTestUserService(t *testing.T) (*UserService, *fakeUserRepo, *fakeStore) {
	t.Helper()
	repo := newFakeUserRepo()
	store := newFakeStore(t)
	return NewUserService(repo, store, zap.NewNop()), repo, store
}

func seedUser(t *testing.T, repo *fakeUserRepo, name, email string) *identity.User {
	t.Helper()
	user, err := identity.NewUser(name, email, "some-password")
	require.NoError(t, err)
	repo.users[user.ID] = user
	return user
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 10, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUserService_UpdateProfile(t *testing.T) {
	svc, repo, _ := newTestUserService(t)
	user := seedUser(t, repo, "Jane", "jane@example.com")
	seedUser(t, repo, "Other", "other@example.com")

	t.Run("nil fields stay unchanged", func(t *testing.T) {
		name := "Jane D."
		updated, err := svc.UpdateProfile(context.Background(), user, UpdateProfileInput{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, "Jane D.", updated.Name)
		assert.Equal(t, "jane@example.com", updated.Email)
	})

	t.Run("email change is normalized", func(t *testing.T) {
		email := "  Jane.New@Example.COM "
		updated, err := svc.UpdateProfile(context.Background(), user, UpdateProfileInput{Email: &email})
		require.NoError(t, err)
		assert.Equal(t, "jane.new@example.com", updated.Email)
	})

	t.Run("taken email is rejected", func(t *testing.T) {
		email := "other@example.com"
		_, err := svc.UpdateProfile(context.Background(), user, UpdateProfileInput{Email: &email})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "ALREADY_EXISTS", de.Code)
	})

	t.Run("setting own email is a no-op", func(t *testing.T) {
		email := "jane.new@example.com"
		_, err := svc.UpdateProfile(context.Background(), user, UpdateProfileInput{Email: &email})
		assert.NoError(t, err)
	})
}

func TestUserService_SetAvatar(t *testing.T) {
	svc, repo, store := newTestUserService(t)
	user := seedUser(t, repo, "Jane", "jane@example.com")

	t.Run("stores avatar under avatars/", func(t *testing.T) {
		data := pngBytes(t, 64, 64)
		updated, err := svc.SetAvatar(context.Background(), user, appmedia.UploadedFile{
			Name: "me.png",
			Size: int64(len(data)),
			Data: data,
		})
		require.NoError(t, err)
		assert.Contains(t, updated.AvatarPath, "avatars/me_")
		assert.Contains(t, updated.AvatarPath, ".png")

		exists, err := store.Exists(context.Background(), updated.AvatarPath)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("replacing deletes the previous avatar", func(t *testing.T) {
		previous := user.AvatarPath
		require.NotEmpty(t, previous)

		data := pngBytes(t, 32, 32)
		updated, err := svc.SetAvatar(context.Background(), user, appmedia.UploadedFile{
			Name: "new-face.png",
			Size: int64(len(data)),
			Data: data,
		})
		require.NoError(t, err)
		assert.NotEqual(t, previous, updated.AvatarPath)
		assert.Contains(t, store.deletes, previous)
	})

	t.Run("avatar size limit is tighter than asset uploads", func(t *testing.T) {
		data := pngBytes(t, 8, 8)
		data = append(data, make([]byte, appmedia.MaxAvatarBytes+1)...)

		_, err := svc.SetAvatar(context.Background(), user, appmedia.UploadedFile{
			Name: "huge.png",
			Size: int64(len(data)),
			Data: data,
		})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "FILE_TOO_LARGE", de.Code)
	})

	t.Run("configured limit overrides the default", func(t *testing.T) {
		repo := newFakeUserRepo()
		tight := NewUserService(repo, newFakeStore(t), zap.NewNop(), WithMaxAvatarSize(64))
		seeded := seedUser(t, repo, "Min", "min@example.com")

		data := pngBytes(t, 8, 8)
		require.Greater(t, len(data), 64)

		_, err := tight.SetAvatar(context.Background(), seeded, appmedia.UploadedFile{
			Name: "tiny.png",
			Size: int64(len(data)),
			Data: data,
		})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "FILE_TOO_LARGE", de.Code)
	})

	t.Run("non-image is rejected", func(t *testing.T) {
		_, err := svc.SetAvatar(context.Background(), user, appmedia.UploadedFile{
			Name: "resume.pdf",
			Data: []byte("%PDF-1.7 not an image"),
		})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "UNSUPPORTED_FORMAT", de.Code)
	})
}
