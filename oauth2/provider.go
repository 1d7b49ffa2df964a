package oauth2

import (
	"context"
	"errors"
	"fmt"
)

// Provider identifies an external identity provider. The set is closed:
// only values returned by ParseProvider are valid.
type Provider string

const (
	Google Provider = "google"
	GitHub Provider = "github"
)

// Providers lists every supported provider in display order.
var Providers = []Provider{Google, GitHub}

var (
	ErrUnknownProvider  = errors.New("oauth2: unknown provider")
	ErrStateMismatch    = errors.New("oauth2: state mismatch")
	ErrAccessDenied     = errors.New("oauth2: authorization denied by provider")
	ErrMissingEmail     = errors.New("oauth2: provider returned no email")
	ErrUnverifiedEmail  = errors.New("oauth2: provider email is not verified")
	ErrMissingID        = errors.New("oauth2: provider returned no account id")
	ErrMissingAuthzCode = errors.New("oauth2: missing authorization code")
)

// ParseProvider maps a route segment onto a Provider.
func ParseProvider(s string) (Provider, error) {
	for _, p := range Providers {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

func (p Provider) String() string { return string(p) }

// Valid reports whether p is one of Providers.
func (p Provider) Valid() bool {
	_, err := ParseProvider(string(p))
	return err == nil
}

// DisplayName is the human facing provider name used in messages.
func (p Provider) DisplayName() string {
	switch p {
	case Google:
		return "Google"
	case GitHub:
		return "GitHub"
	}
	return string(p)
}

// Profile is the normalized identity returned by a provider after a
// successful code exchange.
type Profile struct {
	Provider  Provider
	ID        string
	Name      string
	Nickname  string
	Email     string
	AvatarURL string
}

// DisplayName returns the name, falling back to the nickname.
func (p *Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Nickname
}

// Client is implemented by each configured provider.
type Client interface {
	Provider() Provider

	// AuthCodeURL returns the provider consent URL carrying state.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for the user's profile.
	Exchange(ctx context.Context, code string) (*Profile, error)
}
