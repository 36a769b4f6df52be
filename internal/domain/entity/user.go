// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

// User is the account record a resident registers with. Accounts are created
// from an email address alone; there is no password, only emailed action
// links carrying the profile token.
type User struct {
	ID        uuid.UUID // The unique identifier for the user.
	Email     string    // The user's contact email, used as the login identifier.
	FirstName string    // Optional given name.
	LastName  string    // Optional family name.
	IsActive  bool      // Whether the account has been confirmed and not deactivated.
	CreatedAt time.Time // Timestamp of when this user account was created.
}

// UserProfile extends User with a token for password-less login from email
// links, plus per-site presentation details. The token is rotated on every
// activation state transition, invalidating previously issued links.
type UserProfile struct {
	UserID    uuid.UUID // Foreign key linking this profile to its User.
	Token     string    // Opaque rotating secret embedded in action URLs.
	Language  string    // BCP 47 language tag for emails; defaults to "en".
	Nickname  string    // What the user prefers to be called.
	SiteName  string    // Hostname of the site where the account was created.
	UpdatedAt time.Time // Timestamp of the last modification to this profile.
}

// MakeToken generates a 256-bit random authentication token, URL-safe
// encoded for direct use in query strings.
func MakeToken() string {
	buf := make([]byte, 32)
	// rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(buf)

	return base64.URLEncoding.EncodeToString(buf)
}

// Addressal returns the name the user should be addressed by in emails.
func (p *UserProfile) Addressal(user *User) string {
	if p.Nickname != "" {
		return p.Nickname
	}

	return user.FirstName
}

// RotateToken replaces the profile token, invalidating old action links.
func (p *UserProfile) RotateToken() string {
	p.Token = MakeToken()
	p.UpdatedAt = time.Now()

	return p.Token
}
