// Package providers builds source adapters from configuration.
package providers

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/rickgao/market-pulse/internal/api"
	"github.com/rickgao/market-pulse/internal/auth"
	"github.com/rickgao/market-pulse/internal/config"
	"github.com/rickgao/market-pulse/internal/source"
	"github.com/rickgao/market-pulse/internal/source/kalshi"
	"github.com/rickgao/market-pulse/internal/source/polymarket"
)

// Build returns an adapter for every enabled provider, Kalshi first.
func Build(cfg *config.Config, logger *slog.Logger) ([]source.Adapter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var adapters []source.Adapter
	if k := cfg.Providers.Kalshi; k.IsEnabled() {
		client, err := KalshiClient(k, cfg.API, logger)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, kalshi.New(client, kalshi.Options{
			PageSize: k.PageSize,
			Logger:   logger,
		}))
	}
	if p := cfg.Providers.Polymarket; p.IsEnabled() {
		gamma, data := PolymarketClients(p, cfg.API, logger)
		adapters = append(adapters, polymarket.New(gamma, data, polymarket.Options{
			PageSize: p.PageSize,
			Logger:   logger,
		}))
	}
	return adapters, nil
}

// KalshiClient builds the Kalshi REST client, signing requests when an
// access key is configured.
func KalshiClient(k config.KalshiConfig, apiCfg config.APIConfig, logger *slog.Logger) (*api.Client, error) {
	opts := common(apiCfg, k.RateLimit, logger)
	if k.FallbackURL != "" {
		opts = append(opts, api.WithFallbackURL(k.FallbackURL))
	}
	if k.APIKeyID != "" {
		signer, err := auth.LoadSigner(k.APIKeyID, k.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("kalshi signer: %w", err)
		}
		opts = append(opts, api.WithSigner(signer))
	}
	return api.NewClient("kalshi", k.BaseURL, k.APIKey, opts...), nil
}

// PolymarketClients builds the Gamma and Data API clients. They share one
// rate budget setting but limit independently.
func PolymarketClients(p config.PolymarketConfig, apiCfg config.APIConfig, logger *slog.Logger) (gamma, data *api.Client) {
	gamma = api.NewClient("polymarket-gamma", p.GammaURL, "", common(apiCfg, p.RateLimit, logger)...)
	data = api.NewClient("polymarket-data", p.DataURL, "", common(apiCfg, p.RateLimit, logger)...)
	return gamma, data
}

func common(apiCfg config.APIConfig, rps float64, logger *slog.Logger) []api.ClientOption {
	opts := []api.ClientOption{
		api.WithTimeout(apiCfg.Timeout),
		api.WithRetries(apiCfg.MaxRetries, apiCfg.RetryBackoff),
		api.WithRateLimit(rps, int(math.Ceil(rps))),
	}
	if logger != nil {
		opts = append(opts, api.WithLogger(logger))
	}
	return opts
}
