// Package config loads the server configuration from the environment.
//
// ENVCONFIG:
// Each field of Config names its environment variable in a struct tag and
// carries a default. envconfig.Process walks the struct, parses every value
// into the field's type (int, bool, time.Duration, []string) and fails on
// malformed input. One struct, one call, no hand-written os.Getenv ladders.
//
// .ENV FILES:
// For local development a .env file in the working directory is loaded first
// (joho/godotenv). Variables already set in the real environment win.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Port        int    `envconfig:"PORT" default:"8080"`
	TemplateDir string `envconfig:"TEMPLATE_DIR" default:"web/templates"`
	StaticDir   string `envconfig:"STATIC_DIR" default:"web/static"`

	Database Database
	Session  Session
	GitHub   GitHub

	QueueConcurrency int           `envconfig:"QUEUE_CONCURRENCY" default:"10"`
	CacheSize        int           `envconfig:"CACHE_SIZE" default:"100"`
	CacheTTL         time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`
	// TopicsAllowedOrg restricts search-based topic assignment to one org.
	// Empty means any org.
	TopicsAllowedOrg string `envconfig:"TOPICS_ALLOWED_ORG"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

type Database struct {
	Driver     string `envconfig:"DATABASE_DRIVER" default:"postgres"`
	URL        string `envconfig:"DATABASE_URL"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"data/access-git.db"`
}

type Session struct {
	// Secret signs the session token (HS256). At least 32 characters.
	Secret string `envconfig:"SESSION_SECRET"`
	// EncryptionKey encrypts the cookie (AES). 16, 24 or 32 bytes.
	EncryptionKey string        `envconfig:"SESSION_ENCRYPTION_KEY"`
	TTL           time.Duration `envconfig:"SESSION_TTL" default:"168h"`
	CookieSecure  bool          `envconfig:"COOKIE_SECURE" default:"false"`
}

type GitHub struct {
	// APIURL overrides https://api.github.com/ (GitHub Enterprise).
	APIURL       string `envconfig:"GITHUB_API_URL"`
	ClientID     string `envconfig:"GITHUB_CLIENT_ID"`
	ClientSecret string `envconfig:"GITHUB_CLIENT_SECRET"`
	CallbackURL  string `envconfig:"GITHUB_CALLBACK_URL"`
}

// OAuthEnabled reports whether GitHub sign-in is configured.
func (g GitHub) OAuthEnabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// Load reads .env (if present) and the environment, then validates.
func Load() (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv processes the environment without touching .env.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the cross-field rules envconfig cannot express.
func (c Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when DATABASE_DRIVER=postgres"))
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH must not be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite, got %q", c.Database.Driver))
	}

	if len(c.Session.Secret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 characters"))
	}
	switch len(c.Session.EncryptionKey) {
	case 16, 24, 32:
	default:
		errs = append(errs, errors.New("SESSION_ENCRYPTION_KEY must be 16, 24 or 32 bytes"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}

	if c.QueueConcurrency < 1 {
		errs = append(errs, errors.New("QUEUE_CONCURRENCY must be at least 1"))
	}
	if c.CacheSize < 1 {
		errs = append(errs, errors.New("CACHE_SIZE must be at least 1"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL must be positive"))
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// ParseLevel maps LOG_LEVEL onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", s)
	}
	return level, nil
}
