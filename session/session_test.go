package session_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petruce/garage/session"
)

// newServer exposes the session operations as tiny handlers.
func newServer(t *testing.T, s *session.Sessions) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, s.Login(r.Context(), "user-1", "Alice"))
		s.Flash(r.Context(), "hello")
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, s.Logout(r.Context()))
	})
	mux.HandleFunc("/whoami", func(w http.ResponseWriter, r *http.Request) {
		page := s.Page(r, "Who", nil)
		w.Write([]byte(s.CurrentUserID(r.Context()) + "|" + page.UserName + "|" + page.Flash + "|" + page.CSRFToken))
	})
	mux.HandleFunc("/fail", func(w http.ResponseWriter, r *http.Request) {
		s.FlashErrors(r.Context(), map[string]string{"email": "bad"}, map[string]string{"email": "a@b.c"})
	})
	mux.HandleFunc("/form", func(w http.ResponseWriter, r *http.Request) {
		page := s.Page(r, "Form", nil)
		w.Write([]byte(page.Error("email") + "|" + page.Value("email")))
	})
	mux.HandleFunc("/submit", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("accepted"))
	})
	srv := httptest.NewServer(s.LoadAndSave(s.VerifyCSRF(mux)))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path, cookie string) (*http.Response, string) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "garage_session", Value: cookie})
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}

func sessionCookie(resp *http.Response) string {
	for _, c := range resp.Cookies() {
		if c.Name == "garage_session" {
			return c.Value
		}
	}
	return ""
}

func TestLoginRenewsTokenAndLogoutDestroys(t *testing.T) {
	s := session.New(session.Config{})
	srv := newServer(t, s)

	resp, body := get(t, srv, "/whoami", "")
	anon := sessionCookie(resp)
	require.NotEmpty(t, anon, "rendering a page creates a CSRF token")
	assert.True(t, strings.HasPrefix(body, "||"))

	resp, _ = get(t, srv, "/login", anon)
	authed := sessionCookie(resp)
	require.NotEmpty(t, authed)
	assert.NotEqual(t, anon, authed)

	_, body = get(t, srv, "/whoami", authed)
	parts := strings.Split(body, "|")
	require.Len(t, parts, 4)
	assert.Equal(t, "user-1", parts[0])
	assert.Equal(t, "Alice", parts[1])
	assert.Equal(t, "hello", parts[2])

	// The pre-login token does not carry the login.
	_, body = get(t, srv, "/whoami", anon)
	assert.True(t, strings.HasPrefix(body, "||"))

	resp, _ = get(t, srv, "/logout", authed)
	fresh := sessionCookie(resp)
	assert.NotEqual(t, authed, fresh)

	_, body = get(t, srv, "/whoami", authed)
	assert.True(t, strings.HasPrefix(body, "||"), "destroyed session must be anonymous")
}

func TestFlashErrorsAreConsumedOnce(t *testing.T) {
	s := session.New(session.Config{})
	srv := newServer(t, s)

	resp, _ := get(t, srv, "/fail", "")
	cookie := sessionCookie(resp)
	require.NotEmpty(t, cookie)

	_, body := get(t, srv, "/form", cookie)
	assert.Equal(t, "bad|a@b.c", body)
	_, body = get(t, srv, "/form", cookie)
	assert.Equal(t, "|", body)
}

func TestVerifyCSRF(t *testing.T) {
	s := session.New(session.Config{})
	srv := newServer(t, s)

	resp, body := get(t, srv, "/whoami", "")
	cookie := sessionCookie(resp)
	parts := strings.Split(body, "|")
	require.Len(t, parts, 4)
	token := parts[3]
	require.Len(t, token, 64)

	post := func(form url.Values, header string) int {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/submit", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(&http.Cookie{Name: "garage_session", Value: cookie})
		if header != "" {
			req.Header.Set(session.CSRFHeaderName, header)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusForbidden, post(url.Values{}, ""))
	assert.Equal(t, http.StatusForbidden, post(url.Values{session.CSRFFormField: {"nope"}}, ""))
	assert.Equal(t, http.StatusOK, post(url.Values{session.CSRFFormField: {token}}, ""))
	assert.Equal(t, http.StatusOK, post(url.Values{}, token))
}
