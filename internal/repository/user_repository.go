package repository

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/iliyamo/sup-parking/internal/docstore"
	"github.com/iliyamo/sup-parking/internal/model"
)

// Collections owned by UserRepo.
const (
	UsersCollection       = "users"
	CredentialsCollection = "credentials"
)

// Credential mirrors a document of the credentials collection, keyed by
// the lower-cased email.
type Credential struct {
	Email        string
	UserID       string
	PasswordHash string
}

// URLSigner hands out download URLs for stored blobs.  blob.Store
// implementations satisfy it.
type URLSigner interface {
	DownloadURL(ctx context.Context, path string) (string, error)
}

// UserRepo reads and writes user documents.  When Images is set, users
// read through GetByID carry a freshly signed ProfileImageURL.
type UserRepo struct {
	Store  docstore.Store
	Images URLSigner
}

// NewUserRepo returns a repository over store without image URL signing.
func NewUserRepo(store docstore.Store) *UserRepo { return &UserRepo{Store: store} }

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// EncodeUser returns the document fields of u.
func EncodeUser(u model.User) docstore.Fields {
	f := docstore.Fields{
		"id":      u.ID,
		"email":   u.Email,
		"name":    u.Name,
		"created": u.Created.UTC(),
		"isAdmin": u.IsAdmin,
	}
	if u.ProfileImagePath != "" {
		f["profileImagePath"] = u.ProfileImagePath
	}
	return f
}

// DecodeUser parses a user document.
func DecodeUser(d docstore.Document) (model.User, bool) {
	u := model.User{ID: d.ID}
	var ok bool
	if u.Email, ok = d.Fields.String("email"); !ok {
		return model.User{}, false
	}
	if u.Name, ok = d.Fields.String("name"); !ok {
		return model.User{}, false
	}
	if u.Created, ok = d.Fields.Time("created"); !ok {
		return model.User{}, false
	}
	if u.IsAdmin, ok = d.Fields.Bool("isAdmin"); !ok {
		return model.User{}, false
	}
	u.ProfileImagePath, _ = d.Fields.String("profileImagePath")
	u.Created = u.Created.UTC()
	return u, true
}

// Create stores the credential and the user document in one transaction.
func (r *UserRepo) Create(ctx context.Context, u model.User, passwordHash string) error {
	u.Email = NormalizeEmail(u.Email)
	err := r.Store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		if err := tx.Create(CredentialsCollection, u.Email, docstore.Fields{
			"email":        u.Email,
			"userId":       u.ID,
			"passwordHash": passwordHash,
		}); err != nil {
			return err
		}
		return tx.Set(UsersCollection, u.ID, EncodeUser(u))
	})
	if errors.Is(err, docstore.ErrExists) {
		return ErrEmailExists
	}
	return err
}

// GetCredential fetches the credential of a normalized email.
func (r *UserRepo) GetCredential(ctx context.Context, email string) (Credential, error) {
	email = NormalizeEmail(email)
	d, err := r.Store.Get(ctx, CredentialsCollection, email)
	if errors.Is(err, docstore.ErrNotFound) {
		return Credential{}, ErrUserNotFound
	}
	if err != nil {
		return Credential{}, err
	}
	c := Credential{Email: email}
	c.UserID, _ = d.Fields.String("userId")
	c.PasswordHash, _ = d.Fields.String("passwordHash")
	if c.UserID == "" || c.PasswordHash == "" {
		return Credential{}, ErrUserNotFound
	}
	return c, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	d, err := r.Store.Get(ctx, UsersCollection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u, ok := DecodeUser(d)
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	r.signImage(ctx, &u)
	return u, nil
}

// signImage resolves the stored image path to a download URL.  Signed URLs
// may expire, so they are never persisted.  A signing failure leaves the
// URL empty rather than failing the read.
func (r *UserRepo) signImage(ctx context.Context, u *model.User) {
	if r.Images == nil || u.ProfileImagePath == "" {
		return
	}
	url, err := r.Images.DownloadURL(ctx, u.ProfileImagePath)
	if err != nil {
		slog.Warn("profile image url failed", "user_id", u.ID, "error", err)
		return
	}
	u.ProfileImageURL = url
}

// Update merges fields into the user document.
func (r *UserRepo) Update(ctx context.Context, id string, fields docstore.Fields) error {
	err := r.Store.Update(ctx, UsersCollection, id, fields)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
