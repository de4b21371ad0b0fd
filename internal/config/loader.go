package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "SPECIESDEX_"
	envConfig  = "SPECIESDEX_CONFIG"
	keyDivider = "."
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if SPECIESDEX_CONFIG is set
//  3. env (prefix SPECIESDEX_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)
	k := koanf.New(keyDivider)

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// SPECIESDEX_DATA_URL -> data_url. Underscores are kept to match the koanf tags.
	envProvider := env.Provider(envPrefix, keyDivider, func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.CSVLocation) == "" {
		return fmt.Errorf("%w: csv_location must not be empty", ErrInvalidConfig)
	}
	if c.RequestTimeoutMS <= 0 {
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	}
	if c.DataRateLimitRPS < 0 {
		return fmt.Errorf("%w: data_rate_limit_rps must not be negative", ErrInvalidConfig)
	}

	switch c.DataBackend {
	case BackendREST:
		// The hosted service holds both the species table and the auth endpoints.
		if strings.TrimSpace(c.DataURL) == "" || strings.TrimSpace(c.DataAnonKey) == "" {
			return fmt.Errorf("%w: data_url and data_anon_key are required", ErrInvalidConfig)
		}
		u, err := url.Parse(c.DataURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: data_url must be an absolute URL", ErrInvalidConfig)
		}
	case BackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: sqlite_path must not be empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown data_backend %q", ErrInvalidConfig, c.DataBackend)
	}
	return nil
}
