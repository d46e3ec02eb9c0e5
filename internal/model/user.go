// Package model defines the data structures used throughout the application.
package model

import (
	"net/url"
	"time"
)

// User is a registered account.
//
// PasswordHash holds a bcrypt hash and is never serialised. GitHubID is set
// only for accounts created or linked through GitHub sign-in; such accounts
// may have an empty PasswordHash, which makes password login impossible.
type User struct {
	ID           string    `json:"id"           db:"id"`
	Username     string    `json:"username"     db:"username"`
	Email        string    `json:"email"        db:"email"`
	PasswordHash string    `json:"-"            db:"password_hash"`
	GitHubID     *int64    `json:"githubId,omitempty" db:"github_id"`
	Avatar       string    `json:"avatar"       db:"avatar"`
	CreatedAt    time.Time `json:"createdAt"    db:"created_at"`
}

// PublicUser is the view of a user shown to other people: no email, no ids
// from third parties.
type PublicUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public strips private fields from u.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
	}
}

// DefaultAvatar returns the generated avatar URL assigned at registration.
func DefaultAvatar(username string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(username) + "&background=667eea&color=fff"
}
