package oauth2

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2/google"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

type GoogleOAuth2 struct {
	*BaseOAuth2

	// UserInfoEndpoint overrides the base URL of the userinfo API.
	UserInfoEndpoint string
}

func NewGoogleOAuth2(clientId, clientSecret, callbackUrl string) *GoogleOAuth2 {
	return &GoogleOAuth2{
		BaseOAuth2: NewBaseOAuth2(Google, clientId, clientSecret, callbackUrl, google.Endpoint,
			goauth2.UserinfoEmailScope,
			goauth2.UserinfoProfileScope,
		),
	}
}

func (g *GoogleOAuth2) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := g.exchangeToken(ctx, code)
	if err != nil {
		return nil, err
	}

	opts := []option.ClientOption{option.WithHTTPClient(g.client(ctx, token))}
	if g.UserInfoEndpoint != "" {
		opts = append(opts, option.WithEndpoint(g.UserInfoEndpoint))
	}
	svc, err := goauth2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("google userinfo: %w", err)
	}
	if info.Email == "" {
		return nil, ErrMissingEmail
	}
	if info.VerifiedEmail != nil && !*info.VerifiedEmail {
		slog.Warn("google account email not verified", "google_id", info.Id)
		return nil, ErrUnverifiedEmail
	}

	return &Profile{
		Provider:  Google,
		ID:        info.Id,
		Name:      info.Name,
		Nickname:  info.GivenName,
		Email:     info.Email,
		AvatarURL: info.Picture,
	}, nil
}
