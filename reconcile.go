package garage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/petruce/garage/oauth2"
)

// Reconcile maps a provider profile onto a local user, keyed by email.
//
// An unknown email creates a user with an unusable password. A known
// email gets the provider id backfilled if it has none, and the avatar
// only if it has none. Accounts from different providers sharing an email
// are merged into one user.
func Reconcile(ctx context.Context, users UserStore, p *oauth2.Profile) (*User, error) {
	if p == nil || p.Email == "" {
		return nil, fmt.Errorf("%w: profile has no email", ErrProviderFailure)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%w: profile has no id", ErrProviderFailure)
	}
	email := NormalizeEmail(p.Email)

	user, err := users.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		user, err = createFromProfile(ctx, users, p)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		// a concurrent callback created it first
		slog.Info("user created concurrently, linking", "email", email, "provider", p.Provider)
		user, err = users.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user by email: %w", err)
	}

	if user.ProviderID(p.Provider) != "" {
		return user, nil
	}
	linked, err := users.LinkProvider(ctx, user.ID, p.Provider, p.ID, p.AvatarURL)
	if err != nil {
		return nil, fmt.Errorf("link %s to user %s: %w", p.Provider, user.ID, err)
	}
	slog.Info("linked provider", "user_id", user.ID, "provider", p.Provider)
	return linked, nil
}

func createFromProfile(ctx context.Context, users UserStore, p *oauth2.Profile) (*User, error) {
	hash, err := UnusablePasswordHash()
	if err != nil {
		return nil, err
	}
	user := newUserFromProfile(p, hash)
	if err := users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	slog.Info("user created from provider", "user_id", user.ID, "provider", p.Provider)
	return user, nil
}
