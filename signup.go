package garage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// Register validates in and creates the account. A duplicate email is
// reported as a ValidationError on the email field; no record is written
// in that case.
func Register(ctx context.Context, users UserStore, in RegistrationInput) (*User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	_, err := users.GetUserByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, NewValidationError("email", MsgEmailTaken)
	case !errors.Is(err, ErrUserNotFound):
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := newUserFromRegistration(in, hash)
	if err := users.CreateUser(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, ErrEmailTaken) {
			return nil, NewValidationError("email", MsgEmailTaken)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (a *LocalAuth) ShowRegister(w http.ResponseWriter, r *http.Request) {
	page := a.Sessions.Page(r, "Register", nil)
	page.Providers = a.Providers
	a.Renderer.Render(w, http.StatusOK, "register", page)
}

// HandleSignup registers the account and logs it in.
func (a *LocalAuth) HandleSignup(w http.ResponseWriter, r *http.Request) {
	in := RegistrationInputFromRequest(r)

	user, err := Register(r.Context(), a.Users, in)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			a.back(w, r, a.registerURL(), verr.Fields, in.Old())
			return
		}
		serverError(w, err)
		return
	}
	slog.Info("user registered", "user_id", user.ID)

	if err := a.Sessions.Login(r.Context(), user.ID, user.Name); err != nil {
		serverError(w, err)
		return
	}
	a.Sessions.Flash(r.Context(), MsgRegistered)
	http.Redirect(w, r, a.homeURL(), http.StatusFound)
}
