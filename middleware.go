package garage

import (
	"context"
	"net/http"

	"github.com/petruce/garage/session"
)

type userIDKey struct{}

// Middleware resolves the logged in user from the session.
type Middleware struct {
	Sessions *session.Sessions
	LoginURL string
}

func (m *Middleware) loginURL() string {
	if m.LoginURL == "" {
		return "/login"
	}
	return m.LoginURL
}

// ExtractUser makes the logged in user id available through
// LoggedInUserID without requiring one.
func (m *Middleware) ExtractUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, m.withUser(r))
	})
}

// EnsureUser redirects anonymous requests to the login page.
func (m *Middleware) EnsureUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Sessions.CurrentUserID(r.Context()) == "" {
			m.Sessions.Flash(r.Context(), MsgLoginRequired)
			http.Redirect(w, r, m.loginURL(), http.StatusFound)
			return
		}
		next.ServeHTTP(w, m.withUser(r))
	})
}

func (m *Middleware) withUser(r *http.Request) *http.Request {
	id := m.Sessions.CurrentUserID(r.Context())
	if id == "" {
		return r
	}
	return r.WithContext(context.WithValue(r.Context(), userIDKey{}, id))
}

// LoggedInUserID returns the id stored by ExtractUser or EnsureUser.
func LoggedInUserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}
