package garage

import (
	"context"
	"strings"
	"time"

	"github.com/petruce/garage/oauth2"
)

// User is a staff account. Email is the login key and the key used to
// reconcile external identities.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	GoogleID     string    `json:"google_id,omitempty"`
	GitHubID     string    `json:"github_id,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProviderID returns the external id stored for provider, or "".
func (u *User) ProviderID(p oauth2.Provider) string {
	switch p {
	case oauth2.Google:
		return u.GoogleID
	case oauth2.GitHub:
		return u.GitHubID
	}
	return ""
}

// SetProviderID records the external id for provider.
func (u *User) SetProviderID(p oauth2.Provider, id string) {
	switch p {
	case oauth2.Google:
		u.GoogleID = id
	case oauth2.GitHub:
		u.GitHubID = id
	}
}

// UserStore persists users. Implementations must enforce email uniqueness
// atomically and report a violation as ErrEmailTaken.
type UserStore interface {
	// GetUserByID returns ErrUserNotFound when no user has id.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByEmail looks up a normalized email. Returns ErrUserNotFound
	// when absent.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// CreateUser inserts u, assigning ID and timestamps when unset.
	CreateUser(ctx context.Context, u *User) error

	// LinkProvider sets the provider id of user id only if it is empty,
	// and sets avatar only if the stored avatar is empty. It never
	// overwrites existing values and returns the stored user.
	LinkProvider(ctx context.Context, id string, p oauth2.Provider, externalID, avatar string) (*User, error)

	// UpdatePassword replaces the password hash of user id.
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
