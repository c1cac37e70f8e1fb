package model

import "time"

// Role names carried in the "role" claim of access tokens.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// User represents an application user as stored in the `users`
// collection.  A user document is created at sign-up and mutated by
// profile edits; it is never deleted.
//
// Fields:
//  ID               – identifier issued at sign-up, also the document key.
//  Email            – lower-cased email address.
//  Name             – display name.
//  Created          – sign-up timestamp.
//  IsAdmin          – grants access to the spot management endpoints.
//  ProfileImagePath – blob path of the profile image, empty when unset.
//  ProfileImageURL  – download URL resolved from ProfileImagePath on read;
//                     never stored since signed URLs expire.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Created          time.Time `json:"created"`
	IsAdmin          bool      `json:"isAdmin"`
	ProfileImagePath string    `json:"-"`
	ProfileImageURL  string    `json:"profileImageUrl,omitempty"`
}

// Role returns the role claim for u.
func (u User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// ProfileImagePath returns the blob path of a user's profile image.
func ProfileImagePath(userID string) string { return "profileImages/" + userID }
