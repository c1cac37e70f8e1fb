package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/sup-parking/internal/apperr"
	"github.com/iliyamo/sup-parking/internal/docstore"
	"github.com/iliyamo/sup-parking/internal/model"
	"github.com/iliyamo/sup-parking/internal/repository"
	"github.com/iliyamo/sup-parking/internal/utils"
)

const secret = "test-secret"

func newService(t *testing.T) (*Service, docstore.Store) {
	t.Helper()
	store := docstore.NewMemory(nil)
	s := NewService(Settings{JWTSecret: secret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: bcrypt.MinCost},
		repository.NewUserRepo(store), repository.NewTokenRepo(store))
	return s, store
}

func TestSignUpSignIn(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	sess, err := s.SignUp(ctx, "Ann@Example.com", "pw", "Ann")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", sess.User.Email)
	assert.False(t, sess.User.IsAdmin)
	assert.NotEmpty(t, sess.Refresh.Raw)

	claims, err := utils.ParseAccessToken(secret, sess.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, claims.UserID)
	assert.Equal(t, model.RoleUser, claims.Role)

	in, err := s.SignIn(ctx, "ann@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, in.User.ID)

	_, err = s.SignIn(ctx, "ann@example.com", "wrong")
	assert.True(t, IsInvalidCredentials(err))
	_, err = s.SignIn(ctx, "bob@example.com", "pw")
	assert.True(t, IsInvalidCredentials(err))
}

func TestSignUpValidationAndDuplicates(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()

	_, err := s.SignUp(ctx, "a@b.c", "pw", "")
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "Please fill in all fields", err.Error())
	assert.False(t, IsInvalidCredentials(err))

	_, err = s.SignUp(ctx, "a@b.c", "pw", "A")
	require.NoError(t, err)
	_, err = s.SignUp(ctx, "A@B.C", "pw2", "B")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = s.SignIn(ctx, "", "pw")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAdminRoleClaim(t *testing.T) {
	s, store := newService(t)
	ctx := context.Background()
	sess, err := s.SignUp(ctx, "root@b.c", "pw", "Root")
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, repository.UsersCollection, sess.User.ID, docstore.Fields{"isAdmin": true}))

	in, err := s.SignIn(ctx, "root@b.c", "pw")
	require.NoError(t, err)
	claims, err := utils.ParseAccessToken(secret, in.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, claims.Role)
}

func TestAdminEmailsSignUpAsAdmin(t *testing.T) {
	store := docstore.NewMemory(nil)
	s := NewService(Settings{JWTSecret: secret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: bcrypt.MinCost,
		AdminEmails: []string{" Ops@Example.com "}},
		repository.NewUserRepo(store), repository.NewTokenRepo(store))
	ctx := context.Background()

	ops, err := s.SignUp(ctx, "ops@example.com", "pw", "Ops")
	require.NoError(t, err)
	assert.True(t, ops.User.IsAdmin)

	other, err := s.SignUp(ctx, "user@example.com", "pw", "User")
	require.NoError(t, err)
	assert.False(t, other.User.IsAdmin)
}

func TestRefreshRotates(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	sess, err := s.SignUp(ctx, "a@b.c", "pw", "A")
	require.NoError(t, err)

	next, err := s.Refresh(ctx, sess.Refresh.Raw)
	require.NoError(t, err)
	assert.NotEqual(t, sess.Refresh.Raw, next.Refresh.Raw)
	assert.Equal(t, sess.User.ID, next.User.ID)

	_, err = s.Refresh(ctx, sess.Refresh.Raw)
	assert.True(t, IsInvalidCredentials(err))
	_, err = s.Refresh(ctx, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSignOut(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	a, err := s.SignUp(ctx, "a@b.c", "pw", "A")
	require.NoError(t, err)
	b, err := s.SignIn(ctx, "a@b.c", "pw")
	require.NoError(t, err)

	require.NoError(t, s.SignOut(ctx, a.User.ID, a.Refresh.Raw))
	_, err = s.Refresh(ctx, a.Refresh.Raw)
	assert.True(t, IsInvalidCredentials(err))
	_, err = s.Refresh(ctx, b.Refresh.Raw)
	require.NoError(t, err)

	c, err := s.SignIn(ctx, "a@b.c", "pw")
	require.NoError(t, err)
	require.NoError(t, s.SignOut(ctx, a.User.ID, ""))
	_, err = s.Refresh(ctx, c.Refresh.Raw)
	assert.True(t, IsInvalidCredentials(err))

	assert.ErrorIs(t, s.SignOut(ctx, "", ""), apperr.ErrValidation)
}

func TestCurrentUser(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	sess, err := s.SignUp(ctx, "a@b.c", "pw", "A")
	require.NoError(t, err)

	u, err := s.CurrentUser(ctx, sess.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", u.Name)

	_, err = s.CurrentUser(ctx, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestWatchReportsStateChanges(t *testing.T) {
	s, _ := newService(t)
	ctx := context.Background()
	changes, stop := s.Watch(ctx)

	sess, err := s.SignUp(ctx, "a@b.c", "pw", "A")
	require.NoError(t, err)
	require.NoError(t, s.SignOut(ctx, sess.User.ID, ""))

	recv := func() StateChange {
		select {
		case ev := <-changes:
			return ev
		case <-time.After(time.Second):
			t.Fatal("no state change")
		}
		return StateChange{}
	}
	assert.Equal(t, StateChange{UserID: sess.User.ID, SignedIn: true}, recv())
	assert.Equal(t, StateChange{UserID: sess.User.ID, SignedIn: false}, recv())

	stop()
	stop()
	assert.Equal(t, 0, s.hub.count())
	_, ok := <-changes
	assert.False(t, ok)
}
