package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/market-pulse/internal/api"
	"github.com/rickgao/market-pulse/internal/config"
	"github.com/rickgao/market-pulse/internal/database"
	"github.com/rickgao/market-pulse/internal/logging"
	"github.com/rickgao/market-pulse/internal/metrics"
	"github.com/rickgao/market-pulse/internal/pipeline"
	"github.com/rickgao/market-pulse/internal/providers"
	"github.com/rickgao/market-pulse/internal/version"
	"github.com/rickgao/market-pulse/internal/writer"
	"github.com/rickgao/market-pulse/internal/writer/postgrest"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional, env-only when empty)")
	envFile := flag.String("env", ".env", "dotenv file loaded before the config")
	once := flag.Bool("once", true, "run a single pass and exit")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if !*once {
		fmt.Fprintln(os.Stderr, "only -once is supported; schedule the ingester externally")
		os.Exit(2)
	}

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "load env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, closer, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()
	slog.SetDefault(logger)

	logger.Info("starting ingester",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"store", cfg.Store.Driver,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("ingester failed", "error", err)
		closer.Close()
		os.Exit(1)
	}
}

// run builds the components and executes one pipeline pass. Only bootstrap
// failures are returned; a completed run with partial writes is not an error.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	adapters, err := providers.Build(cfg, logger)
	if err != nil {
		return fmt.Errorf("build providers: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	recorder := metrics.New()
	p := pipeline.New(adapters, store, pipeline.FromConfig(cfg),
		pipeline.WithLogger(logger),
		pipeline.WithRecorder(recorder),
	)

	summary := p.Run(ctx)
	summary.Log(logger)

	if cfg.Metrics.PushURL != "" {
		pushCtx, pushCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer pushCancel()
		if err := recorder.Push(pushCtx, cfg.Metrics.PushURL, cfg.Metrics.Job, nil); err != nil {
			logger.Warn("metrics push failed", "error", err)
		}
	}
	return nil
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (writer.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		logger.Info("connecting to database",
			"host", cfg.Postgres.Host,
			"database", cfg.Postgres.Name,
			"url_set", cfg.Postgres.URL != "",
		)
		pool, err := database.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		logger.Info("database connected")
		return database.NewStore(pool, logger), pool.Close, nil

	case config.DriverPostgREST:
		client := postgrest.NewClient(cfg.PostgREST, api.WithLogger(logger))
		return postgrest.New(client, logger), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
