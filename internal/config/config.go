// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New(ctx) builds a Config with defaults.
// - Load(ctx) layers defaults, an optional YAML file and SPECIESDEX_ env vars.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"time"
)

// Data backends.
const (
	BackendREST   = "rest"
	BackendSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// CSVLocation is a file path or http(s) URL of the animal speed CSV.
	CSVLocation string `koanf:"csv_location"`
	// WatchCSV reloads the dataset when a local CSV file changes.
	WatchCSV bool `koanf:"watch_csv"`

	// DataBackend selects the species store: rest or sqlite.
	DataBackend string `koanf:"data_backend"`
	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `koanf:"sqlite_path"`
	// DataURL is the base URL of the hosted data/auth service.
	DataURL string `koanf:"data_url"`
	// DataAnonKey is the public API key of the hosted service.
	DataAnonKey string `koanf:"data_anon_key"`
	// DataRateLimitRPS caps outgoing data service calls; 0 disables the limiter.
	DataRateLimitRPS float64 `koanf:"data_rate_limit_rps"`
	// RequestTimeoutMS bounds each outgoing call.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// AuthProvider is the OAuth provider used by /auth/login.
	AuthProvider string `koanf:"auth_provider"`
	// SiteURL is the public origin used to build the auth callback URL.
	SiteURL string `koanf:"site_url"`
	// CookieSecure marks session cookies Secure.
	CookieSecure bool `koanf:"cookie_secure"`
	// DevUserID signs every request in as this user when no data_url is
	// configured. Only meaningful with the sqlite backend.
	DevUserID string `koanf:"dev_user_id"`
}

// AuthEnabled reports whether a hosted auth service is configured.
func (c *Config) AuthEnabled() bool { return c.DataURL != "" }

// New creates a Config populated with defaults. Context is accepted first to
// follow the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		CSVLocation:      "static/sample_animals.csv",
		WatchCSV:         true,
		DataBackend:      BackendREST,
		SQLitePath:       "speciesdex.db",
		DataRateLimitRPS: 10,
		RequestTimeoutMS: 10_000,
		AuthProvider:     "github",
		SiteURL:          "http://localhost:9080",
	}
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}
