package garage_test

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/petruce/garage"
	"github.com/petruce/garage/oauth2"
	"github.com/petruce/garage/session"
	"github.com/petruce/garage/stores"
	gormstore "github.com/petruce/garage/stores/gorm"
	"github.com/petruce/garage/web"
)

const testStateSecret = "test-state-secret-0123456789abcdef"

// fakeProvider stands in for a real identity provider.
type fakeProvider struct {
	provider oauth2.Provider

	mu      sync.Mutex
	profile *oauth2.Profile
	err     error
	calls   int
}

func (f *fakeProvider) Provider() oauth2.Provider { return f.provider }

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.test/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeProvider) Exchange(ctx context.Context, code string) (*oauth2.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p := *f.profile
	return &p, nil
}

func (f *fakeProvider) setProfile(p *oauth2.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile = p
	f.err = nil
}

func (f *fakeProvider) exchanges() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type testEnv struct {
	Users  garage.UserStore
	Google *fakeProvider
	GitHub *fakeProvider
	Server *httptest.Server
}

// setupTestApp starts the full handler stack over a file based user
// store and a SQLite workshop database in t.TempDir().
func setupTestApp(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	db, err := gormstore.Open("sqlite", filepath.Join(dir, "garage.db")+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gormstore.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	renderer, err := web.NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}

	env := &testEnv{
		Users:  stores.NewFSUserStore(filepath.Join(dir, "users")),
		Google: &fakeProvider{provider: oauth2.Google},
		GitHub: &fakeProvider{provider: oauth2.GitHub},
	}
	app := &garage.App{
		Users:    env.Users,
		Workshop: gormstore.NewWorkshopStore(db),
		Sessions: session.New(session.Config{}),
		Renderer: renderer,
		Clients: map[oauth2.Provider]oauth2.Client{
			oauth2.Google: env.Google,
			oauth2.GitHub: env.GitHub,
		},
		State: oauth2.NewStateSigner(testStateSecret),
	}
	env.Server = httptest.NewServer(app.Handler())
	t.Cleanup(func() {
		env.Server.Close()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return env
}

// browser keeps cookies between requests and does not follow redirects.
type browser struct {
	t      *testing.T
	base   *url.URL
	client *http.Client
}

func (e *testEnv) newBrowser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	base, _ := url.Parse(e.Server.URL)
	return &browser{
		t:    t,
		base: base,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type response struct {
	Status   int
	Location string
	Body     string
}

func (b *browser) do(req *http.Request) response {
	b.t.Helper()
	resp, err := b.client.Do(req)
	if err != nil {
		b.t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return response{Status: resp.StatusCode, Location: resp.Header.Get("Location"), Body: string(body)}
}

func (b *browser) get(path string) response {
	b.t.Helper()
	req, _ := http.NewRequest(http.MethodGet, b.base.String()+path, nil)
	return b.do(req)
}

// post submits form with the session's CSRF token.
func (b *browser) post(path string, form url.Values) response {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if form.Get(session.CSRFFormField) == "" {
		form.Set(session.CSRFFormField, b.csrfToken())
	}
	return b.postRaw(path, form)
}

func (b *browser) postRaw(path string, form url.Values) response {
	b.t.Helper()
	req, _ := http.NewRequest(http.MethodPost, b.base.String()+path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

var csrfMeta = regexp.MustCompile(`<meta name="csrf-token" content="([0-9a-f]+)">`)

func (b *browser) csrfToken() string {
	b.t.Helper()
	resp := b.get("/login")
	m := csrfMeta.FindStringSubmatch(resp.Body)
	if m == nil {
		b.t.Fatalf("no csrf token in page: %s", resp.Body)
	}
	return m[1]
}

func (b *browser) sessionCookie() string {
	for _, c := range b.client.Jar.Cookies(b.base) {
		if c.Name == "garage_session" {
			return c.Value
		}
	}
	return ""
}

func (b *browser) cookie(name string) string {
	for _, c := range b.client.Jar.Cookies(b.base) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// register creates an account through the form and leaves the browser
// logged in.
func (b *browser) register(name, email, password string) response {
	b.t.Helper()
	return b.post("/register", url.Values{
		"name":                  {name},
		"email":                 {email},
		"password":              {password},
		"password_confirmation": {password},
	})
}

func (b *browser) login(email, password string) response {
	b.t.Helper()
	return b.post("/login", url.Values{"email": {email}, "password": {password}})
}

func (b *browser) logout() response {
	b.t.Helper()
	return b.post("/logout", nil)
}

// oauthLogin runs the redirect and callback legs against provider.
func (b *browser) oauthLogin(provider oauth2.Provider) response {
	b.t.Helper()
	start := b.get("/login/" + provider.String())
	if start.Status != http.StatusFound {
		b.t.Fatalf("expected redirect to provider, got %d", start.Status)
	}
	u, err := url.Parse(start.Location)
	if err != nil {
		b.t.Fatalf("bad provider url %q: %v", start.Location, err)
	}
	state := u.Query().Get("state")
	return b.get("/login/" + provider.String() + "/callback?code=test-code&state=" + url.QueryEscape(state))
}

func mustUser(t *testing.T, users garage.UserStore, email string) *garage.User {
	t.Helper()
	u, err := users.GetUserByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("user %s: %v", email, err)
	}
	return u
}
