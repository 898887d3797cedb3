package config

import "time"

// Config is the root configuration for one ingestion run.
type Config struct {
	Providers ProvidersConfig `yaml:"providers"`
	Store     StoreConfig     `yaml:"store"`
	Writer    WriterConfig    `yaml:"writer"`
	Rank      RankConfig      `yaml:"rank"`
	Aggregate AggregateConfig `yaml:"aggregate"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ProvidersConfig holds per-upstream settings.
type ProvidersConfig struct {
	Kalshi     KalshiConfig     `yaml:"kalshi"`
	Polymarket PolymarketConfig `yaml:"polymarket"`
}

// KalshiConfig holds Kalshi REST settings.
type KalshiConfig struct {
	Enabled        *bool   `yaml:"enabled"`
	BaseURL        string  `yaml:"base_url"`
	FallbackURL    string  `yaml:"fallback_url"`     // Tried once when the primary fails
	APIKey         string  `yaml:"api_key"`          // Bearer token, optional
	APIKeyID       string  `yaml:"api_key_id"`       // KALSHI-ACCESS-KEY for signed requests
	PrivateKeyPath string  `yaml:"private_key_path"` // RSA private key PEM file
	RateLimit      float64 `yaml:"rate_limit"`       // Requests per second, 0 = unlimited
	PageSize       int     `yaml:"page_size"`
}

// IsEnabled reports whether the provider should be ingested. Defaults to true.
func (k KalshiConfig) IsEnabled() bool {
	return k.Enabled == nil || *k.Enabled
}

// PolymarketConfig holds Polymarket Gamma and Data API settings.
type PolymarketConfig struct {
	Enabled   *bool   `yaml:"enabled"`
	GammaURL  string  `yaml:"gamma_url"`
	DataURL   string  `yaml:"data_url"`
	RateLimit float64 `yaml:"rate_limit"`
	PageSize  int     `yaml:"page_size"`
}

// IsEnabled reports whether the provider should be ingested. Defaults to true.
func (p PolymarketConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Store drivers.
const (
	DriverPostgres  = "postgres"
	DriverPostgREST = "postgrest"
)

// StoreConfig selects and configures the persistence sink.
type StoreConfig struct {
	Driver    string          `yaml:"driver"`
	Postgres  DBConfig        `yaml:"postgres"`
	PostgREST PostgRESTConfig `yaml:"postgrest"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	URL      string `yaml:"url"` // Full DSN, takes precedence over the discrete fields
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// PostgRESTConfig holds the Supabase-style REST endpoint.
type PostgRESTConfig struct {
	URL        string        `yaml:"url"`
	ServiceKey string        `yaml:"service_key"`
	Timeout    time.Duration `yaml:"timeout"`
}

// WriterConfig holds batch writer settings.
type WriterConfig struct {
	BatchSize   int   `yaml:"batch_size"`
	WritePrices *bool `yaml:"write_prices"`
}

// PricesEnabled reports whether market_prices rows are written. Defaults to true.
func (w WriterConfig) PricesEnabled() bool {
	return w.WritePrices == nil || *w.WritePrices
}

// RankConfig holds top-N selection settings.
type RankConfig struct {
	TopN     int    `yaml:"top_n"`
	Metric   string `yaml:"metric"` // auto, dollar_volume, contract_volume, volume
	LiveOnly bool   `yaml:"live_only"`
}

// AggregateConfig holds trade tape aggregation settings.
type AggregateConfig struct {
	Concurrency     int           `yaml:"concurrency"`
	Timeout         time.Duration `yaml:"timeout"` // Per-market budget
	EstimateMissing bool          `yaml:"estimate_missing"`
	MaxMarkets      int           `yaml:"max_markets"` // Per source, highest volume first
}

// APIConfig holds HTTP client settings shared by all upstreams.
type APIConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // text, json
	File       string `yaml:"file"`   // Rotated log file, empty = stderr only
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// MetricsConfig holds Prometheus Pushgateway settings.
type MetricsConfig struct {
	PushURL string `yaml:"push_url"` // Empty disables pushing
	Job     string `yaml:"job"`
}
