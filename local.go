package garage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/petruce/garage/session"
	"github.com/petruce/garage/web"
)

// LocalAuth serves email/password login, registration and password
// changes.
type LocalAuth struct {
	Users     UserStore
	Sessions  *session.Sessions
	Renderer  *web.Renderer
	Providers []web.ProviderLink

	LoginURL    string
	RegisterURL string
	HomeURL     string
}

// Authenticate returns the user whose email and password match. Unknown
// emails and wrong passwords both yield ErrInvalidCredentials.
func Authenticate(ctx context.Context, users UserStore, in LoginInput) (*User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	user, err := users.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, ErrUserNotFound) {
		burnPasswordCheck(in.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}
	if !CheckPassword(user.PasswordHash, in.Password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (a *LocalAuth) ShowLogin(w http.ResponseWriter, r *http.Request) {
	page := a.Sessions.Page(r, "Sign in", nil)
	page.Providers = a.Providers
	a.Renderer.Render(w, http.StatusOK, "login", page)
}

func (a *LocalAuth) HandleLogin(w http.ResponseWriter, r *http.Request) {
	in := LoginInputFromRequest(r)

	user, err := Authenticate(r.Context(), a.Users, in)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			a.back(w, r, a.loginURL(), verr.Fields, in.Old())
		case errors.Is(err, ErrInvalidCredentials):
			slog.Info("login failed", "email", in.Email)
			a.back(w, r, a.loginURL(), FieldErrors{"email": MsgInvalidCredentials}, in.Old())
		default:
			serverError(w, err)
		}
		return
	}

	if err := a.Sessions.Login(r.Context(), user.ID, user.Name); err != nil {
		serverError(w, err)
		return
	}
	slog.Info("user logged in", "user_id", user.ID, "method", "password")
	a.Sessions.Flash(r.Context(), MsgLoggedIn)
	http.Redirect(w, r, a.homeURL(), http.StatusFound)
}

func (a *LocalAuth) ShowSetPassword(w http.ResponseWriter, r *http.Request) {
	a.Renderer.Render(w, http.StatusOK, "password", a.Sessions.Page(r, "Set password", nil))
}

// HandleSetPassword replaces the password of the logged in user. This is
// how an account created through a provider gains a usable password.
func (a *LocalAuth) HandleSetPassword(w http.ResponseWriter, r *http.Request) {
	in := PasswordInputFromRequest(r)
	if err := in.Validate(); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			a.back(w, r, "/account/password", verr.Fields, nil)
			return
		}
		serverError(w, err)
		return
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		serverError(w, err)
		return
	}
	userID := LoggedInUserID(r.Context())
	if err := a.Users.UpdatePassword(r.Context(), userID, hash); err != nil {
		serverError(w, err)
		return
	}
	slog.Info("password updated", "user_id", userID)
	a.Sessions.Flash(r.Context(), MsgPasswordUpdated)
	http.Redirect(w, r, a.homeURL(), http.StatusFound)
}

// back redirects to url with field errors and old input for the next
// render of the form.
func (a *LocalAuth) back(w http.ResponseWriter, r *http.Request, url string, errs FieldErrors, old map[string]string) {
	a.Sessions.FlashErrors(r.Context(), errs, old)
	http.Redirect(w, r, url, http.StatusFound)
}

func (a *LocalAuth) loginURL() string {
	if a.LoginURL != "" {
		return a.LoginURL
	}
	return "/login"
}

func (a *LocalAuth) registerURL() string {
	if a.RegisterURL != "" {
		return a.RegisterURL
	}
	return "/register"
}

func (a *LocalAuth) homeURL() string {
	if a.HomeURL != "" {
		return a.HomeURL
	}
	return "/"
}

func serverError(w http.ResponseWriter, err error) {
	slog.Error("request failed", "err", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
