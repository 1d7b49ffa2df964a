package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2/github"
)

type GithubOAuth2 struct {
	*BaseOAuth2

	// UserInfoURL and EmailsURL default to GitHub's API and can be
	// overridden for testing.
	UserInfoURL string
	EmailsURL   string
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func NewGithubOAuth2(clientId, clientSecret, callbackUrl string) *GithubOAuth2 {
	return &GithubOAuth2{
		BaseOAuth2:  NewBaseOAuth2(GitHub, clientId, clientSecret, callbackUrl, github.Endpoint, "read:user", "user:email"),
		UserInfoURL: "https://api.github.com/user",
		EmailsURL:   "https://api.github.com/user/emails",
	}
}

func (g *GithubOAuth2) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := g.exchangeToken(ctx, code)
	if err != nil {
		return nil, err
	}
	client := g.client(ctx, token)

	var user githubUser
	if err := getJSON(ctx, client, g.UserInfoURL, &user); err != nil {
		return nil, fmt.Errorf("github user: %w", err)
	}

	// The public profile email may be empty or unverified, so the
	// verified primary address wins.
	var emails []githubEmail
	if err := getJSON(ctx, client, g.EmailsURL, &emails); err != nil {
		return nil, fmt.Errorf("github emails: %w", err)
	}
	email := ""
	for _, e := range emails {
		if e.Primary && e.Verified {
			email = e.Email
			break
		}
	}
	if email == "" {
		if user.Email == "" {
			return nil, ErrMissingEmail
		}
		return nil, ErrUnverifiedEmail
	}

	return &Profile{
		Provider:  GitHub,
		ID:        strconv.FormatInt(user.ID, 10),
		Name:      user.Name,
		Nickname:  user.Login,
		Email:     email,
		AvatarURL: user.AvatarURL,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
