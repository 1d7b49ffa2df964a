package garage

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/petruce/garage/oauth2"
	"github.com/petruce/garage/session"
	"github.com/petruce/garage/web"
	"github.com/petruce/garage/workshop"
)

// App wires the authentication flows and the workshop resources into one
// http.Handler.
type App struct {
	Users    UserStore
	Workshop workshop.Store
	Sessions *session.Sessions
	Renderer *web.Renderer

	// Clients holds the configured providers. Providers without a
	// client answer 404.
	Clients         map[oauth2.Provider]oauth2.Client
	State           *oauth2.StateSigner
	ProviderTimeout time.Duration
	SecureCookies   bool

	// Now is used for date defaults on workshop forms.
	Now func() time.Time

	router *mux.Router
}

func (a *App) Handler() http.Handler {
	if a.router == nil {
		a.router = a.setupRoutes()
	}
	var h http.Handler = a.router
	h = a.Sessions.VerifyCSRF(h)
	// Override wraps VerifyCSRF so the form is parsed while the request
	// is still a POST.
	h = handlers.HTTPMethodOverrideHandler(h)
	h = a.Sessions.LoadAndSave(h)
	return handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{}))(h)
}

func (a *App) setupRoutes() *mux.Router {
	mw := &Middleware{Sessions: a.Sessions}
	shop := &workshop.Handlers{
		Store:    a.Workshop,
		Sessions: a.Sessions,
		Renderer: a.Renderer,
		Now:      a.Now,
	}
	flow := &OAuthFlow{
		Users:         a.Users,
		Sessions:      a.Sessions,
		Clients:       a.Clients,
		State:         a.State,
		Timeout:       a.ProviderTimeout,
		SecureCookies: a.SecureCookies,
		NotFound:      http.HandlerFunc(shop.NotFound),
	}
	local := &LocalAuth{
		Users:     a.Users,
		Sessions:  a.Sessions,
		Renderer:  a.Renderer,
		Providers: flow.Links(),
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)
	r.Handle("/", mw.ExtractUser(http.HandlerFunc(shop.Home))).Methods(http.MethodGet)

	r.HandleFunc("/login", local.ShowLogin).Methods(http.MethodGet)
	r.HandleFunc("/login", local.HandleLogin).Methods(http.MethodPost)
	r.HandleFunc("/register", local.ShowRegister).Methods(http.MethodGet)
	r.HandleFunc("/register", local.HandleSignup).Methods(http.MethodPost)
	r.Handle("/logout", mw.EnsureUser(http.HandlerFunc(a.onLogout))).Methods(http.MethodPost)

	r.HandleFunc("/login/{provider}", flow.Redirect).Methods(http.MethodGet)
	r.HandleFunc("/login/{provider}/callback", flow.Callback).Methods(http.MethodGet)

	r.Handle("/account/password", mw.EnsureUser(http.HandlerFunc(local.ShowSetPassword))).Methods(http.MethodGet)
	r.Handle("/account/password", mw.EnsureUser(http.HandlerFunc(local.HandleSetPassword))).Methods(http.MethodPost)

	shop.Register(r, mw.EnsureUser)
	r.NotFoundHandler = http.HandlerFunc(shop.NotFound)
	return r
}

func (a *App) onLogout(w http.ResponseWriter, r *http.Request) {
	userID := LoggedInUserID(r.Context())
	if err := a.Sessions.Logout(r.Context()); err != nil {
		serverError(w, err)
		return
	}
	slog.Info("user logged out", "user_id", userID)
	a.Sessions.Flash(r.Context(), MsgLoggedOut)
	http.Redirect(w, r, "/", http.StatusFound)
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// recoveryLogger sends recovered panics to slog.
type recoveryLogger struct{}

func (recoveryLogger) Println(v ...any) {
	slog.Error("panic recovered", "panic", v)
}
