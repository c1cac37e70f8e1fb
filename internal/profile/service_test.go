package profile

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sup-parking/internal/apperr"
	"github.com/iliyamo/sup-parking/internal/blob"
	"github.com/iliyamo/sup-parking/internal/docstore"
	"github.com/iliyamo/sup-parking/internal/model"
	"github.com/iliyamo/sup-parking/internal/repository"
)

func newService(t *testing.T) *Service {
	t.Helper()
	users := repository.NewUserRepo(docstore.NewMemory(nil))
	require.NoError(t, users.Create(context.Background(),
		model.User{ID: "u1", Email: "a@b.c", Name: "Ann", Created: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}, "h"))
	blobs, err := blob.NewLocal(t.TempDir(), "http://localhost/v1/blobs")
	require.NoError(t, err)
	users.Images = blobs
	return NewService(users, blobs)
}

// expiringBlobs signs URLs that stop working ttl after they were issued.
type expiringBlobs struct {
	now  time.Time
	ttl  time.Duration
	objs map[string]bool
}

func (b *expiringBlobs) Upload(_ context.Context, path string, _ []byte, _ string) error {
	b.objs[path] = true
	return nil
}

func (b *expiringBlobs) DownloadURL(_ context.Context, path string) (string, error) {
	if !b.objs[path] {
		return "", blob.ErrNotFound
	}
	return fmt.Sprintf("https://blobs.test/%s?expires=%d", path, b.now.Add(b.ttl).Unix()), nil
}

func (b *expiringBlobs) valid(url string) bool {
	_, exp, ok := strings.Cut(url, "?expires=")
	if !ok {
		return false
	}
	sec, err := strconv.ParseInt(exp, 10, 64)
	return err == nil && b.now.Before(time.Unix(sec, 0))
}

func TestUpdateName(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	u, err := s.UpdateName(ctx, "u1", "  Anna ")
	require.NoError(t, err)
	assert.Equal(t, "Anna", u.Name)

	_, err = s.UpdateName(ctx, "u1", " ")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = s.UpdateName(ctx, "ghost", "X")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUploadImage(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	_, err := s.ImageURL(ctx, "u1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	u, err := s.UploadImage(ctx, "u1", []byte{0x89, 'P', 'N', 'G'}, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost/v1/blobs/profileImages/u1", u.ProfileImageURL)

	url, err := s.ImageURL(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, u.ProfileImageURL, url)
}

func TestImageURLOutlivesSignatureTTL(t *testing.T) {
	store := docstore.NewMemory(nil)
	users := repository.NewUserRepo(store)
	ctx := context.Background()
	require.NoError(t, users.Create(ctx,
		model.User{ID: "u1", Email: "a@b.c", Name: "Ann", Created: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}, "h"))
	blobs := &expiringBlobs{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC), ttl: 15 * time.Minute, objs: map[string]bool{}}
	users.Images = blobs
	s := NewService(users, blobs)

	u, err := s.UploadImage(ctx, "u1", []byte{0x89, 'P', 'N', 'G'}, "image/png")
	require.NoError(t, err)
	require.True(t, blobs.valid(u.ProfileImageURL))

	d, err := store.Get(ctx, repository.UsersCollection, "u1")
	require.NoError(t, err)
	path, _ := d.Fields.String("profileImagePath")
	assert.Equal(t, "profileImages/u1", path)
	_, stored := d.Fields["profileImageUrl"]
	assert.False(t, stored)

	blobs.now = blobs.now.Add(time.Hour)
	assert.False(t, blobs.valid(u.ProfileImageURL))

	again, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, blobs.valid(again.ProfileImageURL))
}

func TestUploadImageValidation(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	_, err := s.UploadImage(ctx, "u1", nil, "image/png")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = s.UploadImage(ctx, "u1", []byte("x"), "text/plain")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = s.UploadImage(ctx, "u1", make([]byte, MaxImageBytes+1), "image/png")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = s.UploadImage(ctx, "ghost", []byte("x"), "image/png")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
