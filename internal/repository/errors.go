// Package repository persists users, credentials and refresh tokens in the
// document store.  The sentinel errors below let the auth layer tell
// expected failures apart from store outages.
package repository

import "errors"

// ErrEmailExists is returned when signing up with an email that already
// has a credential.
var ErrEmailExists = errors.New("email already exists")

// ErrUserNotFound is returned when no user or credential matches.
var ErrUserNotFound = errors.New("user not found")

// ErrInvalidRefresh is returned for unknown, expired or revoked refresh
// tokens.
var ErrInvalidRefresh = errors.New("invalid refresh token")
