package stores

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/petruce/garage"
	"github.com/petruce/garage/oauth2"
)

// fsUser is the on-disk form of a user. It differs from garage.User in
// that the password hash is serialized.
type fsUser struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	GoogleID     string    `json:"google_id,omitempty"`
	GitHubID     string    `json:"github_id,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (f *fsUser) toUser() *garage.User {
	return &garage.User{
		ID:           f.ID,
		Name:         f.Name,
		Email:        f.Email,
		PasswordHash: f.PasswordHash,
		GoogleID:     f.GoogleID,
		GitHubID:     f.GitHubID,
		Avatar:       f.Avatar,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

func fromUser(u *garage.User) *fsUser {
	return &fsUser{
		ID:           u.ID,
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

// FSUserStore stores users as JSON files under StoragePath/users. Email
// uniqueness is enforced by an index file per email, created with a hard
// link that fails when the entry exists, so it also holds across
// processes sharing the directory.
type FSUserStore struct {
	StoragePath string
	mu          sync.Mutex
}

func NewFSUserStore(storagePath string) *FSUserStore {
	return &FSUserStore{StoragePath: storagePath}
}

func (s *FSUserStore) getUserPath(userId string) string {
	return filepath.Join(s.StoragePath, "users", userId+".json")
}

func (s *FSUserStore) getEmailPath(email string) string {
	sum := sha256.Sum256([]byte(email))
	return filepath.Join(s.StoragePath, "emails", hex.EncodeToString(sum[:]))
}

func (s *FSUserStore) GetUserByID(ctx context.Context, id string) (*garage.User, error) {
	rec, err := s.read(id)
	if err != nil {
		return nil, err
	}
	return rec.toUser(), nil
}

func (s *FSUserStore) read(id string) (*fsUser, error) {
	if id == "" || filepath.Base(id) != id {
		return nil, garage.ErrUserNotFound
	}
	data, err := os.ReadFile(s.getUserPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, garage.ErrUserNotFound
		}
		return nil, err
	}
	var rec fsUser
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", id, err)
	}
	return &rec, nil
}

func (s *FSUserStore) write(rec *fsUser) error {
	path := s.getUserPath(rec.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}

func (s *FSUserStore) GetUserByEmail(ctx context.Context, email string) (*garage.User, error) {
	data, err := os.ReadFile(s.getEmailPath(garage.NormalizeEmail(email)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, garage.ErrUserNotFound
		}
		return nil, err
	}
	return s.GetUserByID(ctx, string(data))
}

func (s *FSUserStore) CreateUser(ctx context.Context, u *garage.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = garage.NormalizeEmail(u.Email)
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	// The user file is written before the email is claimed so an email
	// lookup never finds an index entry without its user.
	if err := s.write(fromUser(u)); err != nil {
		return err
	}
	if err := s.claimEmail(u.Email, u.ID); err != nil {
		if rmErr := removeFile(s.getUserPath(u.ID)); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			slog.Error("orphaned user file after failed email claim", "user_id", u.ID, "err", rmErr)
			return errors.Join(err, rmErr)
		}
		return err
	}
	return nil
}

var removeFile = os.Remove

func (s *FSUserStore) claimEmail(email, userID string) error {
	indexPath := s.getEmailPath(email)
	if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(indexPath), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	_, werr := tmp.WriteString(userID)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return werr
	}
	// link fails if the target exists, so the entry appears complete and
	// exactly once
	if err := os.Link(tmp.Name(), indexPath); err != nil {
		if errors.Is(err, os.ErrExist) {
			return garage.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (s *FSUserStore) LinkProvider(ctx context.Context, id string, p oauth2.Provider, externalID, avatar string) (*garage.User, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %q", oauth2.ErrUnknownProvider, p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.read(id)
	if err != nil {
		return nil, err
	}
	u := rec.toUser()
	if u.ProviderID(p) != "" {
		return u, nil
	}
	u.SetProviderID(p, externalID)
	if u.Avatar == "" {
		u.Avatar = avatar
	}
	u.UpdatedAt = time.Now()
	if err := s.write(fromUser(u)); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *FSUserStore) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.read(id)
	if err != nil {
		return err
	}
	rec.PasswordHash = passwordHash
	rec.UpdatedAt = time.Now()
	return s.write(rec)
}

var _ garage.UserStore = (*FSUserStore)(nil)
