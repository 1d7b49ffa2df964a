package kv

import (
	"context"
	"errors"
	"time"

	"github.com/alexedwards/scs/v2"
)

const sessionPrefix = "scs:session:"

// SessionStore adapts a Store to scs.CtxStore.
type SessionStore struct {
	kv     Store
	Prefix string
}

func NewSessionStore(store Store) *SessionStore {
	return &SessionStore{kv: store, Prefix: sessionPrefix}
}

func (s *SessionStore) FindCtx(ctx context.Context, token string) ([]byte, bool, error) {
	b, err := s.kv.Get(ctx, s.Prefix+token)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *SessionStore) CommitCtx(ctx context.Context, token string, b []byte, expiry time.Time) error {
	ttl := time.Until(expiry)
	if ttl <= 0 {
		return s.kv.Delete(ctx, s.Prefix+token)
	}
	return s.kv.Set(ctx, s.Prefix+token, b, ttl)
}

func (s *SessionStore) DeleteCtx(ctx context.Context, token string) error {
	return s.kv.Delete(ctx, s.Prefix+token)
}

func (s *SessionStore) Find(token string) ([]byte, bool, error) {
	return s.FindCtx(context.Background(), token)
}

func (s *SessionStore) Commit(token string, b []byte, expiry time.Time) error {
	return s.CommitCtx(context.Background(), token, b, expiry)
}

func (s *SessionStore) Delete(token string) error {
	return s.DeleteCtx(context.Background(), token)
}

var (
	_ scs.Store    = (*SessionStore)(nil)
	_ scs.CtxStore = (*SessionStore)(nil)
)
