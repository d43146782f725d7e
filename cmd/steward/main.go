// Command steward is the main entry point for the steward command
// orchestration server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/campushq/steward/internal/action"
	"github.com/campushq/steward/internal/action/mock"
	"github.com/campushq/steward/internal/config"
	"github.com/campushq/steward/internal/engine"
	"github.com/campushq/steward/internal/gateway"
	"github.com/campushq/steward/internal/health"
	"github.com/campushq/steward/internal/mcpserver"
	"github.com/campushq/steward/internal/observe"
	"github.com/campushq/steward/internal/repository"
	"github.com/campushq/steward/internal/server"
	"github.com/campushq/steward/internal/store"
)

const version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "steward.yaml", "path to the YAML configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "steward: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "steward: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("steward starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"providers", len(cfg.Providers),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── LLM providers and gateway ─────────────────────────────────────────────
	var gw *gateway.Gateway
	var providerNames []string
	if !cfg.Gateway.Disabled {
		providers, err := config.DefaultRegistry().CreateProviders(cfg.Providers)
		if err != nil {
			slog.Error("failed to build providers", "err", err)
			return 1
		}
		for _, p := range providers {
			providerNames = append(providerNames, p.Name())
			slog.Info("provider created", "name", p.Name())
		}
		if len(providers) > 0 {
			gw = gateway.New(gateway.Config{
				CallTimeout:  cfg.Gateway.CallTimeout,
				ProbeTimeout: cfg.Gateway.ProbeTimeout,
				Temperature:  cfg.Gateway.Temperature,
				MaxTokens:    cfg.Gateway.MaxTokens,
			}, logger, providers...)
		}
	}
	if gw == nil {
		slog.Warn("language model gateway disabled; commands take the deterministic path")
	}

	// ── Record store ──────────────────────────────────────────────────────────
	recorder, pinger, closeStore, err := buildStore(ctx, cfg.Store)
	if err != nil {
		slog.Error("failed to initialise record store", "err", err)
		return 1
	}
	defer closeStore()
	slog.Info("record store ready", "backend", storeBackend(cfg.Store))

	// ── Entity repository ─────────────────────────────────────────────────────
	repo := repository.NewMemRepo()
	if cfg.Repository.FixturePath != "" {
		ff, err := repository.LoadFixtureFile(cfg.Repository.FixturePath)
		if err != nil {
			slog.Error("failed to load entity fixture", "path", cfg.Repository.FixturePath, "err", err)
			return 1
		}
		n, err := repository.ImportFixture(repo, ff)
		if err != nil {
			slog.Error("failed to import entity fixture", "err", err)
			return 1
		}
		slog.Info("entity fixture loaded", "path", cfg.Repository.FixturePath, "entities", n)
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	registry, err := action.NewRegistry(action.Defaults()...)
	if err != nil {
		slog.Error("invalid action catalog", "err", err)
		return 1
	}

	eng := engine.New(recorder, repo, registry, mock.NewReference(), engine.Options{
		Gateway: gw,
		Metrics: metrics,
		Logger:  logger,
	})

	// ── HTTP server ───────────────────────────────────────────────────────────
	h := health.New(
		health.StoreChecker(pinger),
		health.ProviderChecker(providerNames),
	)
	srv := server.New(eng, recorder, h, logger)

	addr := cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Router(metrics),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // websocket conversations stay open
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server listening", "addr", addr)
		var err error
		if cfg.Server.TLS != nil {
			err = httpServer.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// ── MCP tool surface (optional) ───────────────────────────────────────────
	if cfg.MCP.Enabled {
		g.Go(func() error {
			err := mcpserver.New(eng, logger).Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		slog.Info("mcp tools serving on stdio")
	}

	slog.Info("server ready, press Ctrl+C to shut down")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildStore constructs the configured record store. pinger is nil for the
// in-memory backend; closeStore is always safe to call.
func buildStore(ctx context.Context, cfg config.StoreConfig) (store.Recorder, health.Pinger, func(), error) {
	switch cfg.Backend {
	case config.StorePostgres:
		pg, err := store.NewPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return pg, pg, pg.Close, nil
	case config.StoreSQLite:
		sq, err := store.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return sq, sq, func() {
			if err := sq.Close(); err != nil {
				slog.Warn("sqlite close error", "err", err)
			}
		}, nil
	default:
		return store.NewMemStore(), nil, func() {}, nil
	}
}

func storeBackend(cfg config.StoreConfig) config.StoreBackend {
	if cfg.Backend == "" {
		return config.StoreMemory
	}
	return cfg.Backend
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
