// Package config loads garage settings from GARAGE_* environment
// variables, with a .env file honoured outside production.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const prefix = "garage"

type Config struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	BaseURL         string        `envconfig:"BASE_URL" required:"true"`
	AppSecret       string        `envconfig:"APP_SECRET" required:"true"`
	Environment     string        `envconfig:"ENVIRONMENT" default:"development"`
	DBDriver        string        `envconfig:"DB_DRIVER" default:"sqlite"`
	DBDSN           string        `envconfig:"DB_DSN" default:"garage.db?_pragma=foreign_keys(1)"`
	UserStore       string        `envconfig:"USER_STORE" default:"gorm"`
	DatastoreProj   string        `envconfig:"DATASTORE_PROJECT"`
	DatastoreNS     string        `envconfig:"DATASTORE_NAMESPACE"`
	SessionStore    string        `envconfig:"SESSION_STORE" default:"memory"`
	RedisAddr       string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword   string        `envconfig:"REDIS_PASSWORD"`
	RedisDB         int           `envconfig:"REDIS_DB" default:"0"`
	SessionLifetime time.Duration `envconfig:"SESSION_LIFETIME" default:"24h"`
	CookieSecure    bool          `envconfig:"COOKIE_SECURE"`
	GoogleClientID  string        `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleSecret    string        `envconfig:"GOOGLE_CLIENT_SECRET"`
	GitHubClientID  string        `envconfig:"GITHUB_CLIENT_ID"`
	GitHubSecret    string        `envconfig:"GITHUB_CLIENT_SECRET"`
	OAuthTimeout    time.Duration `envconfig:"OAUTH_TIMEOUT" default:"10s"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads a .env file unless GARAGE_ENVIRONMENT is production, then
// processes and validates the environment.
func Load() (*Config, error) {
	if os.Getenv("GARAGE_ENVIRONMENT") != "production" {
		if err := godotenv.Load(); err != nil {
			slog.Debug("no .env file loaded", "err", err)
		} else {
			slog.Info("loaded .env file")
		}
	}
	return Process()
}

// Process reads GARAGE_* variables and validates them.
func Process() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if len(c.AppSecret) < 32 {
		problems = append(problems, "GARAGE_APP_SECRET must be at least 32 characters")
	}
	if u, err := url.ParseRequestURI(c.BaseURL); err != nil || u.Host == "" {
		problems = append(problems, "GARAGE_BASE_URL must be a valid absolute URL")
	}
	if (c.GoogleClientID == "") != (c.GoogleSecret == "") {
		problems = append(problems, "Both GARAGE_GOOGLE_CLIENT_ID and GARAGE_GOOGLE_CLIENT_SECRET must be set together")
	}
	if (c.GitHubClientID == "") != (c.GitHubSecret == "") {
		problems = append(problems, "Both GARAGE_GITHUB_CLIENT_ID and GARAGE_GITHUB_CLIENT_SECRET must be set together")
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("GARAGE_DB_DRIVER %q must be postgres or sqlite", c.DBDriver))
	}
	switch c.UserStore {
	case "gorm":
	case "datastore":
		if c.DatastoreProj == "" {
			problems = append(problems, "GARAGE_DATASTORE_PROJECT is required when GARAGE_USER_STORE is datastore")
		}
	default:
		problems = append(problems, fmt.Sprintf("GARAGE_USER_STORE %q must be gorm or datastore", c.UserStore))
	}
	switch c.SessionStore {
	case "memory", "redis":
	default:
		problems = append(problems, fmt.Sprintf("GARAGE_SESSION_STORE %q must be memory or redis", c.SessionStore))
	}
	if c.SessionLifetime <= 0 {
		problems = append(problems, "GARAGE_SESSION_LIFETIME must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		problems = append(problems, fmt.Sprintf("GARAGE_LOG_LEVEL %q is not a valid level", c.LogLevel))
	}

	if len(problems) > 0 {
		return fmt.Errorf("environment validation failed:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// SlogLevel parses LogLevel (debug, info, warn, error).
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(c.LogLevel))
	return lvl, err
}

// CallbackURL is the redirect URI registered with provider.
func (c *Config) CallbackURL(provider string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/login/" + provider + "/callback"
}

// SecureCookies reports whether cookies need the Secure flag, either
// forced by configuration or implied by an https base URL.
func (c *Config) SecureCookies() bool {
	return c.CookieSecure || strings.HasPrefix(c.BaseURL, "https://")
}

func MaskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

func (c *Config) Print(fmtr func(string, ...any)) {
	fmtr("Configuration:\n")
	fmtr("  Environment: %s\n", c.Environment)
	fmtr("  Port: %s\n", c.Port)
	fmtr("  Base URL: %s\n", c.BaseURL)
	fmtr("  App Secret: %s\n", MaskSecret(c.AppSecret))
	fmtr("  Database: %s\n", c.DBDriver)
	if c.UserStore == "datastore" {
		fmtr("  Users: datastore (project %s, namespace %q)\n", c.DatastoreProj, c.DatastoreNS)
	} else {
		fmtr("  Users: %s\n", c.UserStore)
	}
	fmtr("  Sessions: %s (lifetime %s)\n", c.SessionStore, c.SessionLifetime)
	if c.SessionStore == "redis" {
		fmtr("    Redis: %s db=%d password=%s\n", c.RedisAddr, c.RedisDB, MaskSecret(c.RedisPassword))
	}
	printProvider(fmtr, "Google", c.GoogleClientID, c.GoogleSecret)
	printProvider(fmtr, "GitHub", c.GitHubClientID, c.GitHubSecret)
}

func printProvider(fmtr func(string, ...any), name, id, secret string) {
	if id == "" {
		fmtr("  %s OAuth: disabled\n", name)
		return
	}
	fmtr("  %s OAuth: enabled\n", name)
	fmtr("    Client ID: %s\n", MaskSecret(id))
	fmtr("    Client Secret: %s\n", MaskSecret(secret))
}
