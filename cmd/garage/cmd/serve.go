package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/handlers"
	"github.com/spf13/cobra"

	"github.com/petruce/garage"
	"github.com/petruce/garage/config"
	"github.com/petruce/garage/kv"
	"github.com/petruce/garage/oauth2"
	"github.com/petruce/garage/session"
	gormstore "github.com/petruce/garage/stores/gorm"
	"github.com/petruce/garage/web"
)

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(loadConfig())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", true, "apply database migrations before serving")
}

func serve(cfg *config.Config) error {
	cfg.Print(log.Printf)

	db, err := gormstore.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	if autoMigrate {
		if err := gormstore.AutoMigrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	users, closeUsers, err := openUserStore(context.Background(), cfg, db)
	if err != nil {
		return err
	}
	defer closeUsers()

	var sessionStore scs.Store
	if cfg.SessionStore == "redis" {
		rs, err := kv.NewRedisStore(kv.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		defer rs.Close()
		sessionStore = kv.NewSessionStore(rs)
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		return err
	}

	app := &garage.App{
		Users:    users,
		Workshop: gormstore.NewWorkshopStore(db),
		Sessions: session.New(session.Config{
			Store:        sessionStore,
			Lifetime:     cfg.SessionLifetime,
			SecureCookie: cfg.SecureCookies(),
		}),
		Renderer:        renderer,
		Clients:         providerClients(cfg),
		State:           oauth2.NewStateSigner(cfg.AppSecret),
		ProviderTimeout: cfg.OAuthTimeout,
		SecureCookies:   cfg.SecureCookies(),
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.CombinedLoggingHandler(os.Stdout, app.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		slog.Info("garage listening", "addr", srv.Addr, "base_url", cfg.BaseURL)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// providerClients builds a client for every provider with credentials.
func providerClients(cfg *config.Config) map[oauth2.Provider]oauth2.Client {
	clients := map[oauth2.Provider]oauth2.Client{}
	if cfg.GoogleClientID != "" {
		clients[oauth2.Google] = oauth2.NewGoogleOAuth2(cfg.GoogleClientID, cfg.GoogleSecret, cfg.CallbackURL(oauth2.Google.String()))
	}
	if cfg.GitHubClientID != "" {
		clients[oauth2.GitHub] = oauth2.NewGithubOAuth2(cfg.GitHubClientID, cfg.GitHubSecret, cfg.CallbackURL(oauth2.GitHub.String()))
	}
	return clients
}
