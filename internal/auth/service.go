// Package auth signs users up and in, and issues the tokens that the HTTP
// middleware checks.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/sup-parking/internal/apperr"
	"github.com/iliyamo/sup-parking/internal/model"
	"github.com/iliyamo/sup-parking/internal/repository"
	"github.com/iliyamo/sup-parking/internal/utils"
)

// Settings are the token and hashing parameters of a Service.
type Settings struct {
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
	// AdminEmails sign up as administrators.  Everyone else starts as a
	// regular user.
	AdminEmails []string
}

// Session is the result of a successful sign-in.
type Session struct {
	User    model.User
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// Service implements sign-up, sign-in, sign-out and token refresh.
type Service struct {
	cfg    Settings
	users  *repository.UserRepo
	tokens *repository.TokenRepo
	now    func() time.Time
	newID  func() string
	hub    *hub
}

// NewService returns an auth service over the given repositories.
func NewService(cfg Settings, users *repository.UserRepo, tokens *repository.TokenRepo) *Service {
	return &Service{
		cfg:    cfg,
		users:  users,
		tokens: tokens,
		now:    time.Now,
		newID:  uuid.NewString,
		hub:    newHub(),
	}
}

var errInvalidCredentials = apperr.Validation("invalid credentials")

// IsInvalidCredentials reports whether err is a failed sign-in or refresh,
// which the HTTP layer answers with 401 rather than 400.
func IsInvalidCredentials(err error) bool {
	var ae *apperr.Error
	return errors.As(err, &ae) && ae == errInvalidCredentials
}

// SignUp creates a user and signs it in.  Only addresses listed in
// Settings.AdminEmails become administrators.
func (s *Service) SignUp(ctx context.Context, email, password, name string) (Session, error) {
	email = repository.NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return Session{}, apperr.Validation("Please fill in all fields")
	}
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return Session{}, apperr.Backend(err)
	}
	u := model.User{
		ID:      s.newID(),
		Email:   email,
		Name:    name,
		Created: s.now().UTC(),
		IsAdmin: s.isAdminEmail(email),
	}
	if err := s.users.Create(ctx, u, hash); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return Session{}, apperr.Conflict("email already exists")
		}
		return Session{}, apperr.Backend(err)
	}
	return s.issue(ctx, u)
}

// SignIn checks the password of email and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = repository.NormalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, apperr.Validation("Please fill in all fields")
	}
	cred, err := s.users.GetCredential(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return Session{}, errInvalidCredentials
	}
	if err != nil {
		return Session{}, apperr.Backend(err)
	}
	if !utils.VerifyPassword(cred.PasswordHash, password) {
		return Session{}, errInvalidCredentials
	}
	u, err := s.loadUser(ctx, cred.UserID)
	if err != nil {
		return Session{}, err
	}
	return s.issue(ctx, u)
}

// Refresh exchanges a refresh token for a new session.  The old token is
// revoked.
func (s *Service) Refresh(ctx context.Context, raw string) (Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, apperr.Validation("refresh_token required")
	}
	next, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return Session{}, apperr.Backend(err)
	}
	userID, err := s.tokens.Rotate(ctx, utils.HashRefreshRaw(raw), utils.HashRefreshRaw(next.Raw), next.Exp)
	if errors.Is(err, repository.ErrInvalidRefresh) {
		return Session{}, errInvalidCredentials
	}
	if err != nil {
		return Session{}, apperr.Backend(err)
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, u.Role(), s.cfg.AccessTTLMin)
	if err != nil {
		return Session{}, apperr.Backend(err)
	}
	return Session{User: u, Access: access, Refresh: next}, nil
}

// SignOut revokes refreshToken, or every refresh token of userID when
// refreshToken is empty.  Access tokens stay valid until they expire.
func (s *Service) SignOut(ctx context.Context, userID, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	switch {
	case refreshToken != "":
		hash := utils.HashRefreshRaw(refreshToken)
		owner, err := s.tokens.ValidateRefresh(ctx, hash)
		if errors.Is(err, repository.ErrInvalidRefresh) {
			return errInvalidCredentials
		}
		if err != nil {
			return apperr.Backend(err)
		}
		if userID != "" && owner != userID {
			return errInvalidCredentials
		}
		if err := s.tokens.RevokeByHash(ctx, hash); err != nil {
			return apperr.Backend(err)
		}
		userID = owner
	case userID != "":
		if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
			return apperr.Backend(err)
		}
	default:
		return apperr.Validation("User not authenticated")
	}
	s.hub.broadcast(StateChange{UserID: userID, SignedIn: false})
	return nil
}

// CurrentUser returns the profile of userID.
func (s *Service) CurrentUser(ctx context.Context, userID string) (model.User, error) {
	if strings.TrimSpace(userID) == "" {
		return model.User{}, apperr.Validation("User not authenticated")
	}
	return s.loadUser(ctx, userID)
}

// Watch returns a stream of sign-in state changes.  The returned func
// stops the stream and must be called exactly once.
func (s *Service) Watch(ctx context.Context) (<-chan StateChange, func()) {
	return s.hub.watch(ctx)
}

func (s *Service) isAdminEmail(email string) bool {
	for _, a := range s.cfg.AdminEmails {
		if repository.NormalizeEmail(a) == email {
			return true
		}
	}
	return false
}

func (s *Service) loadUser(ctx context.Context, id string) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return model.User{}, apperr.NotFound("User not authenticated")
	}
	if err != nil {
		return model.User{}, apperr.Backend(err)
	}
	return u, nil
}

func (s *Service) issue(ctx context.Context, u model.User) (Session, error) {
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, u.Role(), s.cfg.AccessTTLMin)
	if err != nil {
		return Session{}, apperr.Backend(err)
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return Session{}, apperr.Backend(err)
	}
	if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return Session{}, apperr.Backend(err)
	}
	s.hub.broadcast(StateChange{UserID: u.ID, SignedIn: true})
	return Session{User: u, Access: access, Refresh: refresh}, nil
}
