package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/rickgao/market-pulse/internal/config"
	"github.com/rickgao/market-pulse/internal/providers"
	"github.com/rickgao/market-pulse/internal/source"
)

const sample = 5

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("load env: %v", err)
	}
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Raw event listings, one page each
	if cfg.Providers.Kalshi.IsEnabled() {
		client, err := providers.KalshiClient(cfg.Providers.Kalshi, cfg.API, nil)
		if err != nil {
			log.Fatalf("kalshi client: %v", err)
		}
		fmt.Println("=== Testing Kalshi GET /events ===")
		var resp struct {
			Events []map[string]any `json:"events"`
			Cursor string           `json:"cursor"`
		}
		if err := client.Get(ctx, "/events", url.Values{"limit": {fmt.Sprint(sample)}}, &resp); err != nil {
			log.Fatalf("kalshi events failed: %v", err)
		}
		fmt.Printf("Fetched %d events (cursor: %q)\n", len(resp.Events), resp.Cursor)
	}
	if cfg.Providers.Polymarket.IsEnabled() {
		gamma, _ := providers.PolymarketClients(cfg.Providers.Polymarket, cfg.API, nil)
		fmt.Println("\n=== Testing Polymarket Gamma GET /events ===")
		var events []map[string]any
		if err := gamma.Get(ctx, "/events", url.Values{"limit": {fmt.Sprint(sample)}, "active": {"true"}}, &events); err != nil {
			log.Fatalf("gamma events failed: %v", err)
		}
		fmt.Printf("Fetched %d events\n", len(events))
	}

	adapters, err := providers.Build(cfg, nil)
	if err != nil {
		log.Fatalf("build providers: %v", err)
	}

	for _, a := range adapters {
		fmt.Printf("\n=== Testing %s markets ===\n", a.Source())
		var stats source.PageStats
		var first source.RawMarket
		n := 0
		for m := range a.ListMarkets(ctx, &stats) {
			if first == nil {
				first = m
			}
			pf := m.Prices()
			fmt.Printf("  %d. %s - %s (yes_bid: %s, no_bid: %s, last: %s)\n",
				n+1, m.ID(), m.Name(), show(pf.YesBid), show(pf.NoBid), show(pf.Last))
			n++
			if n >= sample {
				break
			}
		}
		if stats.Truncated {
			log.Fatalf("%s markets failed: %v", a.Source(), stats.Err)
		}

		if first == nil {
			continue
		}
		fmt.Printf("\n=== Testing %s trade tape (%s) ===\n", a.Source(), first.ID())
		tape, err := a.FetchTradeTape(ctx, first.ID(), time.Now().Add(-24*time.Hour))
		if err != nil {
			fmt.Printf("Trade tape unavailable: %v\n", err)
			continue
		}
		fmt.Printf("Fetched %d trades in the last 24h\n", len(tape))
	}

	fmt.Println("\n=== All API tests passed! ===")
}

func show(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}
