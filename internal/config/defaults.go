package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultKalshiURL          = "https://api.elections.kalshi.com/trade-api/v2"
	DefaultKalshiFallbackURL  = "https://trading-api.kalshi.com/trade-api/v2"
	DefaultKalshiPageSize     = 200
	DefaultGammaURL           = "https://gamma-api.polymarket.com"
	DefaultDataURL            = "https://data-api.polymarket.com"
	DefaultPolymarketPageSize = 500
	DefaultDriver             = DriverPostgREST
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultPostgRESTTimeout   = 30 * time.Second
	DefaultBatchSize          = 500
	DefaultTopN               = 200
	DefaultRankMetric         = "auto"
	DefaultConcurrency        = 8
	DefaultAggregateTimeout   = 20 * time.Second
	DefaultMaxAggregated      = 1000
	DefaultAPITimeout         = 30 * time.Second
	DefaultMaxRetries         = 3
	DefaultRetryBackoff       = 1 * time.Second
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
	DefaultLogMaxSizeMB       = 100
	DefaultLogMaxBackups      = 3
	DefaultLogMaxAgeDays      = 28
	DefaultMetricsJob         = "market_pulse"
)

func (c *Config) applyDefaults() {
	// Provider defaults
	k := &c.Providers.Kalshi
	if k.BaseURL == "" {
		k.BaseURL = DefaultKalshiURL
	}
	if k.FallbackURL == "" && k.BaseURL == DefaultKalshiURL {
		k.FallbackURL = DefaultKalshiFallbackURL
	}
	if k.PageSize == 0 {
		k.PageSize = DefaultKalshiPageSize
	}

	p := &c.Providers.Polymarket
	if p.GammaURL == "" {
		p.GammaURL = DefaultGammaURL
	}
	if p.DataURL == "" {
		p.DataURL = DefaultDataURL
	}
	if p.PageSize == 0 {
		p.PageSize = DefaultPolymarketPageSize
	}

	// Store defaults
	if c.Store.Driver == "" {
		c.Store.Driver = DefaultDriver
		if c.Store.Postgres.URL != "" && c.Store.PostgREST.URL == "" {
			c.Store.Driver = DriverPostgres
		}
	}
	applyDBDefaults(&c.Store.Postgres)
	if c.Store.PostgREST.Timeout == 0 {
		c.Store.PostgREST.Timeout = DefaultPostgRESTTimeout
	}

	if c.Writer.BatchSize == 0 {
		c.Writer.BatchSize = DefaultBatchSize
	}

	if c.Rank.TopN == 0 {
		c.Rank.TopN = DefaultTopN
	}
	if c.Rank.Metric == "" {
		c.Rank.Metric = DefaultRankMetric
	}

	if c.Aggregate.Concurrency == 0 {
		c.Aggregate.Concurrency = DefaultConcurrency
	}
	if c.Aggregate.Timeout == 0 {
		c.Aggregate.Timeout = DefaultAggregateTimeout
	}
	if c.Aggregate.MaxMarkets == 0 {
		c.Aggregate.MaxMarkets = DefaultMaxAggregated
	}

	// API defaults
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.RetryBackoff == 0 {
		c.API.RetryBackoff = DefaultRetryBackoff
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = DefaultLogMaxAgeDays
	}

	if c.Metrics.Job == "" {
		c.Metrics.Job = DefaultMetricsJob
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
