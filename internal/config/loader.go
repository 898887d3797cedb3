package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads a YAML config file and expands environment variables.
// An empty path yields an empty config so that env-only setups work.
func Load(path string) (*Config, error) {
	var cfg Config
	if path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config, applies environment overrides and then
// default values.
func LoadWithDefaults(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

// applyEnv overrides file values with well-known environment variables.
func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("KALSHI_API_BASE", &c.Providers.Kalshi.BaseURL)
	str("KALSHI_FALLBACK_API_BASE", &c.Providers.Kalshi.FallbackURL)
	str("KALSHI_API_KEY", &c.Providers.Kalshi.APIKey)
	str("KALSHI_API_KEY_ID", &c.Providers.Kalshi.APIKeyID)
	str("KALSHI_PRIVATE_KEY_PATH", &c.Providers.Kalshi.PrivateKeyPath)
	str("POLYMARKET_GAMMA_URL", &c.Providers.Polymarket.GammaURL)
	str("POLYMARKET_DATA_URL", &c.Providers.Polymarket.DataURL)
	str("SUPABASE_URL", &c.Store.PostgREST.URL)
	str("SUPABASE_SERVICE_ROLE_KEY", &c.Store.PostgREST.ServiceKey)
	str("DATABASE_URL", &c.Store.Postgres.URL)
	str("STORE_DRIVER", &c.Store.Driver)
	str("LOG_LEVEL", &c.Logging.Level)
	str("PUSHGATEWAY_URL", &c.Metrics.PushURL)

	ints := []struct {
		key string
		dst *int
	}{
		{"BATCH_SIZE", &c.Writer.BatchSize},
		{"TOP_N", &c.Rank.TopN},
		{"AGGREGATE_CONCURRENCY", &c.Aggregate.Concurrency},
	}
	for _, iv := range ints {
		v, ok := lookup(iv.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("env %s: %q is not an integer", iv.key, v)
		}
		*iv.dst = n
	}
	return nil
}
