package gae

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/google/uuid"

	"github.com/petruce/garage"
	"github.com/petruce/garage/oauth2"
)

// Kind constants for Datastore entities
const (
	KindUser  = "User"
	KindEmail = "UserEmail"
)

// errEmailClaimed aborts a create transaction without being retried.
var errEmailClaimed = errors.New("gae: email already claimed")

// UserStore implements garage.UserStore using Google Cloud Datastore
type UserStore struct {
	client    *datastore.Client
	namespace string
}

// NewUserStore creates a new Datastore-backed UserStore
func NewUserStore(client *datastore.Client, namespace string) *UserStore {
	return &UserStore{
		client:    client,
		namespace: namespace,
	}
}

// Open connects to projectID and returns a store in namespace. Close
// releases the client.
func Open(ctx context.Context, projectID, namespace string) (*UserStore, error) {
	client, err := datastore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("datastore client: %w", err)
	}
	return NewUserStore(client, namespace), nil
}

func (s *UserStore) Close() error {
	return s.client.Close()
}

func (s *UserStore) namespacedKey(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = s.namespace
	return key
}

func (s *UserStore) GetUserByID(ctx context.Context, id string) (*garage.User, error) {
	if id == "" {
		return nil, garage.ErrUserNotFound
	}
	key := s.namespacedKey(KindUser, id)
	var entity UserEntity
	if err := s.client.Get(ctx, key, &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, garage.ErrUserNotFound
		}
		return nil, err
	}
	entity.Key = key
	return entity.ToUser(), nil
}

// GetUserByEmail resolves the email entity by key, which is strongly
// consistent unlike a query on the email property.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*garage.User, error) {
	email = garage.NormalizeEmail(email)
	if email == "" {
		return nil, garage.ErrUserNotFound
	}
	var idx EmailEntity
	if err := s.client.Get(ctx, s.namespacedKey(KindEmail, email), &idx); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, garage.ErrUserNotFound
		}
		return nil, err
	}
	return s.GetUserByID(ctx, idx.UserID)
}

func (s *UserStore) CreateUser(ctx context.Context, u *garage.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = garage.NormalizeEmail(u.Email)
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	emailKey := s.namespacedKey(KindEmail, u.Email)
	userKey := s.namespacedKey(KindUser, u.ID)
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing EmailEntity
		err := tx.Get(emailKey, &existing)
		if err == nil {
			return errEmailClaimed
		}
		if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		if _, err := tx.Put(emailKey, &EmailEntity{Key: emailKey, UserID: u.ID, CreatedAt: now}); err != nil {
			return err
		}
		_, err = tx.Put(userKey, UserToEntity(u, userKey))
		return err
	})
	if errors.Is(err, errEmailClaimed) {
		return garage.ErrEmailTaken
	}
	return err
}

func (s *UserStore) LinkProvider(ctx context.Context, id string, p oauth2.Provider, externalID, avatar string) (*garage.User, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %q", oauth2.ErrUnknownProvider, p)
	}
	var out *garage.User
	err := s.update(ctx, id, func(u *garage.User) bool {
		out = u
		if u.ProviderID(p) != "" {
			return false
		}
		u.SetProviderID(p, externalID)
		if u.Avatar == "" {
			u.Avatar = avatar
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *UserStore) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	return s.update(ctx, id, func(u *garage.User) bool {
		u.PasswordHash = passwordHash
		return true
	})
}

// update applies fn to user id inside a transaction and writes the
// entity back when fn reports a change.
func (s *UserStore) update(ctx context.Context, id string, fn func(u *garage.User) bool) error {
	if id == "" {
		return garage.ErrUserNotFound
	}
	key := s.namespacedKey(KindUser, id)
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var entity UserEntity
		if err := tx.Get(key, &entity); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return garage.ErrUserNotFound
			}
			return err
		}
		entity.Key = key
		u := entity.ToUser()
		if !fn(u) {
			return nil
		}
		u.UpdatedAt = time.Now()
		_, err := tx.Put(key, UserToEntity(u, key))
		return err
	})
	return err
}

var _ garage.UserStore = (*UserStore)(nil)
