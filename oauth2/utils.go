package oauth2

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	StateCookieName = "oauthstate"
	DefaultStateTTL = 10 * time.Minute
)

// StateClaims is the signed OAuth state parameter. The nonce is echoed in
// the oauthstate cookie so a state can only be completed by the browser
// that started it.
type StateClaims struct {
	Provider Provider `json:"provider"`
	Nonce    string   `json:"nonce"`
	jwt.RegisteredClaims
}

// StateSigner issues and validates HMAC signed state tokens.
type StateSigner struct {
	secret []byte
	TTL    time.Duration
	Issuer string
}

func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{secret: []byte(secret), TTL: DefaultStateTTL, Issuer: "garage"}
}

// Issue returns a signed state for provider and the nonce bound into it.
func (s *StateSigner) Issue(provider Provider) (state string, nonce string, err error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce = base64.RawURLEncoding.EncodeToString(b)

	now := time.Now()
	claims := StateClaims{
		Provider: provider,
		Nonce:    nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
		},
	}
	state, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign state: %w", err)
	}
	return state, nonce, nil
}

// Validate checks the signature, expiry, provider and nonce of a state.
func (s *StateSigner) Validate(state string, provider Provider, nonce string) (*StateClaims, error) {
	parsed, err := jwt.ParseWithClaims(state, &StateClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.Issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStateMismatch, err)
	}

	claims, ok := parsed.Claims.(*StateClaims)
	if !ok || !parsed.Valid {
		return nil, ErrStateMismatch
	}
	if claims.Provider != provider || nonce == "" || claims.Nonce != nonce {
		return nil, ErrStateMismatch
	}
	return claims, nil
}

// OauthRedirector starts the authorization code flow for client. No server
// side state is written; the nonce travels in a short lived cookie.
func OauthRedirector(client Client, signer *StateSigner, secureCookies bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, nonce, err := signer.Issue(client.Provider())
		if err != nil {
			slog.Error("could not issue oauth state", "provider", client.Provider(), "err", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     StateCookieName,
			Value:    nonce,
			Path:     "/",
			MaxAge:   int(signer.TTL.Seconds()),
			HttpOnly: true,
			Secure:   secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, client.AuthCodeURL(state), http.StatusFound)
	}
}

// CompleteCallback validates the callback request and exchanges its code.
// The state cookie is always cleared.
func CompleteCallback(ctx context.Context, w http.ResponseWriter, r *http.Request, client Client, signer *StateSigner) (*Profile, error) {
	ClearStateCookie(w)

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		return nil, fmt.Errorf("%w: %s", ErrAccessDenied, e)
	}

	cookie, err := r.Cookie(StateCookieName)
	if err != nil || cookie.Value == "" {
		return nil, fmt.Errorf("%w: missing state cookie", ErrStateMismatch)
	}
	if _, err := signer.Validate(q.Get("state"), client.Provider(), cookie.Value); err != nil {
		return nil, err
	}

	profile, err := client.Exchange(ctx, q.Get("code"))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			slog.Warn("oauth exchange timed out", "provider", client.Provider())
		}
		return nil, err
	}
	if profile.Email == "" {
		return nil, ErrMissingEmail
	}
	if profile.ID == "" {
		return nil, ErrMissingID
	}
	profile.Provider = client.Provider()
	return profile, nil
}

func ClearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:    StateCookieName,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	})
}
