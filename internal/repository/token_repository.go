package repository

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/sup-parking/internal/docstore"
)

// RefreshTokensCollection holds one document per refresh token keyed by
// the token hash.
const RefreshTokensCollection = "refreshTokens"

// TokenRepo persists and validates refresh tokens.
type TokenRepo struct {
	Store docstore.Store
	Now   func() time.Time
}

// NewTokenRepo returns a token repository over store using the wall clock.
func NewTokenRepo(store docstore.Store) *TokenRepo {
	return &TokenRepo{Store: store, Now: time.Now}
}

// StoreRefresh saves a refresh token hash.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error {
	return r.Store.Set(ctx, RefreshTokensCollection, tokenHash, docstore.Fields{
		"userId":    userID,
		"expiresAt": exp.UTC(),
	})
}

// ValidateRefresh returns the owner of a non-revoked, non-expired token.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (string, error) {
	d, err := r.Store.Get(ctx, RefreshTokensCollection, tokenHash)
	if errors.Is(err, docstore.ErrNotFound) {
		return "", ErrInvalidRefresh
	}
	if err != nil {
		return "", err
	}
	return r.check(d)
}

func (r *TokenRepo) check(d docstore.Document) (string, error) {
	userID, _ := d.Fields.String("userId")
	exp, ok := d.Fields.Time("expiresAt")
	if userID == "" || !ok {
		return "", ErrInvalidRefresh
	}
	if _, revoked := d.Fields.Time("revokedAt"); revoked {
		return "", ErrInvalidRefresh
	}
	if r.Now().UTC().After(exp) {
		return "", ErrInvalidRefresh
	}
	return userID, nil
}

// Rotate validates oldHash, revokes it and stores newHash in one
// transaction, so a refresh token can be exchanged at most once.
func (r *TokenRepo) Rotate(ctx context.Context, oldHash, newHash string, exp time.Time) (string, error) {
	var userID string
	err := r.Store.RunTransaction(ctx, func(_ context.Context, tx docstore.Tx) error {
		d, err := tx.Get(RefreshTokensCollection, oldHash)
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrInvalidRefresh
		}
		if err != nil {
			return err
		}
		if userID, err = r.check(d); err != nil {
			return err
		}
		if err := tx.Update(RefreshTokensCollection, oldHash, docstore.Fields{"revokedAt": r.Now().UTC()}); err != nil {
			return err
		}
		return tx.Set(RefreshTokensCollection, newHash, docstore.Fields{"userId": userID, "expiresAt": exp.UTC()})
	})
	if err != nil {
		return "", err
	}
	return userID, nil
}

// RevokeByHash marks a token as revoked.  Revoking an unknown token is
// ErrInvalidRefresh.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	err := r.Store.Update(ctx, RefreshTokensCollection, tokenHash, docstore.Fields{"revokedAt": r.Now().UTC()})
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrInvalidRefresh
	}
	return err
}

// RevokeAllForUser revokes every active token of userID.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	docs, err := r.Store.Query(ctx, docstore.Query{
		Collection: RefreshTokensCollection,
		Where:      &docstore.Filter{Field: "userId", Value: userID},
	})
	if err != nil {
		return err
	}
	now := r.Now().UTC()
	for _, d := range docs {
		if _, revoked := d.Fields.Time("revokedAt"); revoked {
			continue
		}
		if err := r.Store.Update(ctx, RefreshTokensCollection, d.ID, docstore.Fields{"revokedAt": now}); err != nil {
			return err
		}
	}
	return nil
}
