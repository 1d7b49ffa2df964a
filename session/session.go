// Package session wraps an scs session manager with the operations the
// authentication flows need: login with token renewal, logout with full
// invalidation, flash messages, validation errors, old form input and a
// per-session CSRF token.
package session

import (
	"context"
	"encoding/gob"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"

	"github.com/petruce/garage/web"
)

const (
	keyUserID   = "loggedInUserId"
	keyUserName = "loggedInUserName"
	keyFlash    = "flash"
	keyErrors   = "errors"
	keyOld      = "old"
	keyCSRF     = "_token"
)

func init() {
	gob.Register(map[string]string{})
}

type Config struct {
	Store        scs.Store
	Lifetime     time.Duration
	CookieName   string
	SecureCookie bool
}

// Sessions is the session service injected into the handlers.
type Sessions struct {
	Manager *scs.SessionManager
}

func New(cfg Config) *Sessions {
	m := scs.New()
	if cfg.Store != nil {
		m.Store = cfg.Store
	} else {
		m.Store = memstore.New()
	}
	if cfg.Lifetime > 0 {
		m.Lifetime = cfg.Lifetime
	}
	if cfg.CookieName != "" {
		m.Cookie.Name = cfg.CookieName
	} else {
		m.Cookie.Name = "garage_session"
	}
	m.Cookie.HttpOnly = true
	m.Cookie.SameSite = http.SameSiteLaxMode
	m.Cookie.Secure = cfg.SecureCookie
	return &Sessions{Manager: m}
}

// LoadAndSave loads the session for each request and commits it afterwards.
func (s *Sessions) LoadAndSave(next http.Handler) http.Handler {
	return s.Manager.LoadAndSave(next)
}

// Login binds userID to a fresh session token. The previous token is
// deleted from the store, which prevents session fixation.
func (s *Sessions) Login(ctx context.Context, userID, userName string) error {
	if err := s.Manager.RenewToken(ctx); err != nil {
		return fmt.Errorf("renew session token: %w", err)
	}
	s.Manager.Put(ctx, keyUserID, userID)
	s.Manager.Put(ctx, keyUserName, userName)
	s.rotateCSRF(ctx)
	return nil
}

// CurrentUserID returns the authenticated user id or "".
func (s *Sessions) CurrentUserID(ctx context.Context) string {
	return s.Manager.GetString(ctx, keyUserID)
}

func (s *Sessions) CurrentUserName(ctx context.Context) string {
	return s.Manager.GetString(ctx, keyUserName)
}

// Logout destroys the session so its token can no longer be used and
// starts a new anonymous session with a fresh CSRF token.
func (s *Sessions) Logout(ctx context.Context) error {
	if err := s.Manager.Destroy(ctx); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	s.rotateCSRF(ctx)
	return nil
}

func (s *Sessions) Flash(ctx context.Context, msg string) {
	s.Manager.Put(ctx, keyFlash, msg)
}

// FlashErrors stores field errors and the safe subset of the submitted
// form for the next request.
func (s *Sessions) FlashErrors(ctx context.Context, errs map[string]string, old map[string]string) {
	if len(errs) > 0 {
		s.Manager.Put(ctx, keyErrors, errs)
	}
	if len(old) > 0 {
		s.Manager.Put(ctx, keyOld, old)
	}
}

func (s *Sessions) popMap(ctx context.Context, key string) map[string]string {
	m, _ := s.Manager.Pop(ctx, key).(map[string]string)
	if m == nil {
		m = map[string]string{}
	}
	return m
}

// Page builds the template data for the current request, consuming any
// flash message, errors and old input.
func (s *Sessions) Page(r *http.Request, title string, data any) web.Page {
	ctx := r.Context()
	return web.Page{
		Title:         title,
		UserName:      s.CurrentUserName(ctx),
		Authenticated: s.CurrentUserID(ctx) != "",
		CSRFToken:     s.CSRFToken(ctx),
		Flash:         s.Manager.PopString(ctx, keyFlash),
		Errors:        s.popMap(ctx, keyErrors),
		Old:           s.popMap(ctx, keyOld),
		Data:          data,
	}
}
