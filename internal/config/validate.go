package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
)

var rankMetrics = []string{"auto", "dollar_volume", "contract_volume", "volume"}

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	k, p := c.Providers.Kalshi, c.Providers.Polymarket
	if !k.IsEnabled() && !p.IsEnabled() {
		return errors.New("providers: at least one provider must be enabled")
	}
	if k.IsEnabled() {
		if err := validateURL("providers.kalshi.base_url", k.BaseURL); err != nil {
			return err
		}
		if k.FallbackURL != "" {
			if err := validateURL("providers.kalshi.fallback_url", k.FallbackURL); err != nil {
				return err
			}
		}
		if (k.APIKeyID == "") != (k.PrivateKeyPath == "") {
			return errors.New("providers.kalshi.api_key_id and private_key_path must be set together")
		}
		if k.PageSize < 1 {
			return errors.New("providers.kalshi.page_size must be >= 1")
		}
		if k.RateLimit < 0 {
			return errors.New("providers.kalshi.rate_limit must be >= 0")
		}
	}
	if p.IsEnabled() {
		if err := validateURL("providers.polymarket.gamma_url", p.GammaURL); err != nil {
			return err
		}
		if err := validateURL("providers.polymarket.data_url", p.DataURL); err != nil {
			return err
		}
		if p.PageSize < 1 {
			return errors.New("providers.polymarket.page_size must be >= 1")
		}
		if p.RateLimit < 0 {
			return errors.New("providers.polymarket.rate_limit must be >= 0")
		}
	}

	switch c.Store.Driver {
	case DriverPostgres:
		if err := c.Store.Postgres.validate("store.postgres"); err != nil {
			return err
		}
	case DriverPostgREST:
		if err := validateURL("store.postgrest.url", c.Store.PostgREST.URL); err != nil {
			return err
		}
		if c.Store.PostgREST.ServiceKey == "" {
			return errors.New("store.postgrest.service_key is required")
		}
	default:
		return fmt.Errorf("store.driver must be %q or %q, got %q", DriverPostgres, DriverPostgREST, c.Store.Driver)
	}

	if c.Writer.BatchSize < 1 {
		return errors.New("writer.batch_size must be >= 1")
	}

	if c.Rank.TopN < 1 {
		return errors.New("rank.top_n must be >= 1")
	}
	if !slices.Contains(rankMetrics, c.Rank.Metric) {
		return fmt.Errorf("rank.metric must be one of %s, got %q", strings.Join(rankMetrics, ", "), c.Rank.Metric)
	}

	if c.Aggregate.Concurrency < 1 {
		return errors.New("aggregate.concurrency must be >= 1")
	}
	if c.Aggregate.Timeout <= 0 {
		return errors.New("aggregate.timeout must be > 0")
	}
	if c.Aggregate.MaxMarkets < 1 {
		return errors.New("aggregate.max_markets must be >= 1")
	}

	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be > 0")
	}
	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries must be >= 0")
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return fmt.Errorf("logging.level %q is invalid", c.Logging.Level)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Metrics.PushURL != "" {
		if err := validateURL("metrics.push_url", c.Metrics.PushURL); err != nil {
			return err
		}
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.URL != "" {
		if _, err := url.Parse(db.URL); err != nil {
			return fmt.Errorf("%s.url is invalid: %w", prefix, err)
		}
		return nil
	}
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func validateURL(field, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", field, raw)
	}
	return nil
}
