// Package profile edits the name and picture of the signed-in user.
package profile

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/sup-parking/internal/apperr"
	"github.com/iliyamo/sup-parking/internal/blob"
	"github.com/iliyamo/sup-parking/internal/docstore"
	"github.com/iliyamo/sup-parking/internal/model"
	"github.com/iliyamo/sup-parking/internal/repository"
)

// MaxImageBytes bounds profile image uploads.
const MaxImageBytes = 5 << 20

// Service edits profiles.  Images go to blobs; the user document keeps only
// the blob path and users.Images signs a URL for it on every read.
type Service struct {
	users *repository.UserRepo
	blobs blob.Store
}

// NewService returns a profile service over users and blobs.
func NewService(users *repository.UserRepo, blobs blob.Store) *Service {
	return &Service{users: users, blobs: blobs}
}

// Get returns the profile of userID.
func (s *Service) Get(ctx context.Context, userID string) (model.User, error) {
	if strings.TrimSpace(userID) == "" {
		return model.User{}, apperr.Validation("User not authenticated")
	}
	u, err := s.users.GetByID(ctx, userID)
	return u, mapUserErr(err)
}

// UpdateName sets the display name.
func (s *Service) UpdateName(ctx context.Context, userID, name string) (model.User, error) {
	if strings.TrimSpace(userID) == "" {
		return model.User{}, apperr.Validation("User not authenticated")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.User{}, apperr.Validation("Please enter a name")
	}
	if err := s.users.Update(ctx, userID, docstore.Fields{"name": name}); err != nil {
		return model.User{}, mapUserErr(err)
	}
	return s.Get(ctx, userID)
}

// UploadImage stores data as the profile image of userID and records its
// blob path on the user document.
func (s *Service) UploadImage(ctx context.Context, userID string, data []byte, contentType string) (model.User, error) {
	if strings.TrimSpace(userID) == "" {
		return model.User{}, apperr.Validation("User not authenticated")
	}
	if len(data) == 0 {
		return model.User{}, apperr.Validation("image is empty")
	}
	if len(data) > MaxImageBytes {
		return model.User{}, apperr.Validation("image is too large")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return model.User{}, apperr.Validation("only image uploads are accepted")
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return model.User{}, mapUserErr(err)
	}

	path := model.ProfileImagePath(userID)
	if err := s.blobs.Upload(ctx, path, data, contentType); err != nil {
		return model.User{}, apperr.Backend(err)
	}
	if err := s.users.Update(ctx, userID, docstore.Fields{"profileImagePath": path}); err != nil {
		return model.User{}, mapUserErr(err)
	}
	return s.Get(ctx, userID)
}

// ImageURL returns a fresh download URL of the profile image.
func (s *Service) ImageURL(ctx context.Context, userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", apperr.Validation("User not authenticated")
	}
	url, err := s.blobs.DownloadURL(ctx, model.ProfileImagePath(userID))
	if errors.Is(err, blob.ErrNotFound) {
		return "", apperr.NotFound("no profile image")
	}
	if err != nil {
		return "", apperr.Backend(err)
	}
	return url, nil
}

func mapUserErr(err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return apperr.NotFound("User not authenticated")
	}
	return apperr.Backend(err)
}
