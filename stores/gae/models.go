package gae

import (
	"time"

	"cloud.google.com/go/datastore"

	"github.com/petruce/garage"
)

// UserEntity is the Datastore entity for users
type UserEntity struct {
	Key          *datastore.Key `datastore:"__key__"`
	Name         string         `datastore:"name"`
	Email        string         `datastore:"email"`
	PasswordHash string         `datastore:"password_hash,noindex"`
	GoogleID     string         `datastore:"google_id"`
	GitHubID     string         `datastore:"github_id"`
	Avatar       string         `datastore:"avatar,noindex"`
	CreatedAt    time.Time      `datastore:"created_at"`
	UpdatedAt    time.Time      `datastore:"updated_at"`
}

func (e *UserEntity) ToUser() *garage.User {
	return &garage.User{
		ID:           e.Key.Name,
		Name:         e.Name,
		Email:        e.Email,
		PasswordHash: e.PasswordHash,
		GoogleID:     e.GoogleID,
		GitHubID:     e.GitHubID,
		Avatar:       e.Avatar,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func UserToEntity(u *garage.User, key *datastore.Key) *UserEntity {
	return &UserEntity{
		Key:          key,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		GoogleID:     u.GoogleID,
		GitHubID:     u.GitHubID,
		Avatar:       u.Avatar,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// EmailEntity reserves an email for a user.
// Key format: normalized email
type EmailEntity struct {
	Key       *datastore.Key `datastore:"__key__"`
	UserID    string         `datastore:"user_id"`
	CreatedAt time.Time      `datastore:"created_at"`
}
