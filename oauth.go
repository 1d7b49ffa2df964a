package garage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/petruce/garage/oauth2"
	"github.com/petruce/garage/session"
	"github.com/petruce/garage/web"
)

const DefaultProviderTimeout = 10 * time.Second

// OAuthFlow serves the provider redirect and callback routes.
type OAuthFlow struct {
	Users         UserStore
	Sessions      *session.Sessions
	Clients       map[oauth2.Provider]oauth2.Client
	State         *oauth2.StateSigner
	Timeout       time.Duration
	SecureCookies bool
	NotFound      http.Handler

	LoginURL string
	HomeURL  string
}

// Links returns a button for every configured provider.
func (o *OAuthFlow) Links() []web.ProviderLink {
	var out []web.ProviderLink
	for _, p := range oauth2.Providers {
		if _, ok := o.Clients[p]; ok {
			out = append(out, web.ProviderLink{Name: p.DisplayName(), URL: "/login/" + p.String()})
		}
	}
	return out
}

// client resolves the {provider} route variable. Unknown and unconfigured
// providers are rejected before any outbound request.
func (o *OAuthFlow) client(r *http.Request) (oauth2.Client, bool) {
	p, err := oauth2.ParseProvider(mux.Vars(r)["provider"])
	if err != nil {
		return nil, false
	}
	c, ok := o.Clients[p]
	return c, ok
}

func (o *OAuthFlow) notFound(w http.ResponseWriter, r *http.Request) {
	if o.NotFound != nil {
		o.NotFound.ServeHTTP(w, r)
		return
	}
	http.NotFound(w, r)
}

func (o *OAuthFlow) Redirect(w http.ResponseWriter, r *http.Request) {
	c, ok := o.client(r)
	if !ok {
		o.notFound(w, r)
		return
	}
	oauth2.OauthRedirector(c, o.State, o.SecureCookies)(w, r)
}

func (o *OAuthFlow) Callback(w http.ResponseWriter, r *http.Request) {
	c, ok := o.client(r)
	if !ok {
		o.notFound(w, r)
		return
	}
	provider := c.Provider()

	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	profile, err := oauth2.CompleteCallback(ctx, w, r, c, o.State)
	cancel()
	if err != nil {
		slog.Warn("oauth callback failed", "provider", provider, "err", err)
		o.fail(w, r, provider)
		return
	}

	user, err := Reconcile(r.Context(), o.Users, profile)
	if errors.Is(err, ErrProviderFailure) {
		slog.Warn("oauth profile rejected", "provider", provider, "err", err)
		o.fail(w, r, provider)
		return
	}
	if err != nil {
		serverError(w, err)
		return
	}

	if err := o.Sessions.Login(r.Context(), user.ID, user.Name); err != nil {
		serverError(w, err)
		return
	}
	slog.Info("user logged in", "user_id", user.ID, "method", provider)
	o.Sessions.Flash(r.Context(), fmt.Sprintf(MsgWelcome, user.Name))
	http.Redirect(w, r, o.homeURL(), http.StatusFound)
}

func (o *OAuthFlow) fail(w http.ResponseWriter, r *http.Request, p oauth2.Provider) {
	o.Sessions.FlashErrors(r.Context(), FieldErrors{"email": fmt.Sprintf(MsgProviderFailure, p.DisplayName())}, nil)
	http.Redirect(w, r, o.loginURL(), http.StatusFound)
}

func (o *OAuthFlow) loginURL() string {
	if o.LoginURL != "" {
		return o.LoginURL
	}
	return "/login"
}

func (o *OAuthFlow) homeURL() string {
	if o.HomeURL != "" {
		return o.HomeURL
	}
	return "/"
}
