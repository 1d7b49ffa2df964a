package gorm

import (
	"time"

	"github.com/petruce/garage"
)

// UserModel is the GORM model for users. Provider ids and avatar are
// nullable so that "not linked" is NULL in the database.
type UserModel struct {
	ID           string  `gorm:"primaryKey;size:36"`
	Name         string  `gorm:"size:255;not null"`
	Email        string  `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string  `gorm:"size:255;not null"`
	GoogleID     *string `gorm:"size:255;index"`
	GitHubID     *string `gorm:"column:github_id;size:255;index"`
	Avatar       *string `gorm:"size:2048"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToUser() *garage.User {
	return &garage.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		GoogleID:     deref(m.GoogleID),
		GitHubID:     deref(m.GitHubID),
		Avatar:       deref(m.Avatar),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func UserToModel(u *garage.User) *UserModel {
	return &UserModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		GoogleID:     nullable(u.GoogleID),
		GitHubID:     nullable(u.GitHubID),
		Avatar:       nullable(u.Avatar),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
