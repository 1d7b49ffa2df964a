package oauth2

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// BaseOAuth2 holds the authorization-code configuration shared by the
// concrete providers.
type BaseOAuth2 struct {
	ClientId     string
	ClientSecret string
	CallbackURL  string

	provider    Provider
	oauthConfig oauth2.Config
	httpClient  *http.Client
}

func NewBaseOAuth2(provider Provider, clientId, clientSecret, callbackUrl string, endpoint oauth2.Endpoint, scopes ...string) *BaseOAuth2 {
	return &BaseOAuth2{
		ClientId:     clientId,
		ClientSecret: clientSecret,
		CallbackURL:  callbackUrl,
		provider:     provider,
		oauthConfig: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
	}
}

func (b *BaseOAuth2) Provider() Provider { return b.provider }

func (b *BaseOAuth2) AuthCodeURL(state string) string {
	return b.oauthConfig.AuthCodeURL(state)
}

// SetOAuthEndpoint overrides the authorization and token endpoints.
func (b *BaseOAuth2) SetOAuthEndpoint(endpoint oauth2.Endpoint) {
	b.oauthConfig.Endpoint = endpoint
}

// SetHTTPClient sets the client used for the token exchange and profile
// requests.
func (b *BaseOAuth2) SetHTTPClient(client *http.Client) {
	b.httpClient = client
}

func (b *BaseOAuth2) exchangeContext(ctx context.Context) context.Context {
	if b.httpClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
	}
	return ctx
}

func (b *BaseOAuth2) exchangeToken(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, ErrMissingAuthzCode
	}
	token, err := b.oauthConfig.Exchange(b.exchangeContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%s code exchange: %w", b.provider, err)
	}
	return token, nil
}

// client returns an http.Client that authenticates with token.
func (b *BaseOAuth2) client(ctx context.Context, token *oauth2.Token) *http.Client {
	return b.oauthConfig.Client(b.exchangeContext(ctx), token)
}
