package identity

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/mediavault/backend/internal/domain/identity"
	"github.com/mediavault/backend/internal/domain/shared"
)

type fakeUserRepo struct {
	users     map[uuid.UUID]*identity.User
	updateErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*identity.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *identity.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *identity.User) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*identity.User, error) {
	normalized, err := identity.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	for _, user := range r.users {
		if user.Email == normalized {
			return user, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	if err == shared.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

var _ identity.UserRepository = (*fakeUserRepo)(nil)

type fakeStore struct {
	root    string
	writes  []string
	deletes []string
}

func newFakeStore(t *testing.T) *fakeStore {
	t.Helper()
	return &fakeStore{root: t.TempDir()}
}

func (s *fakeStore) Write(_ context.Context, key string, r io.Reader) error {
	s.writes = append(s.writes, key)
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
	if _, err := os.Stat(s.AbsolutePath(key)); err != nil {
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
