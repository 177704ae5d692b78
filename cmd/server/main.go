// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

// Package main is the entry point for the Resonata server.
//
// The server wires the recommendation core behind an HTTP API:
//
//  1. Configuration: layered via Koanf v2 (defaults, YAML file,
//     RESONATA_-prefixed environment variables)
//  2. Storage: memory, BadgerDB, or DuckDB weight persistence
//  3. Catalog: in-memory song catalog behind a circuit breaker
//  4. Core: registry and facade (context memory, trajectory, rewards,
//     weight adapter, bandit, scoring engine, cold start)
//  5. HTTP API: chi router with JWT or header identity
//  6. Supervision: suture tree running the HTTP server and the
//     session evictor
//
// The server shuts down gracefully on SIGINT and SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/resonata/resonata/internal/api"
	"github.com/resonata/resonata/internal/catalog"
	"github.com/resonata/resonata/internal/config"
	"github.com/resonata/resonata/internal/facade"
	"github.com/resonata/resonata/internal/logging"
	"github.com/resonata/resonata/internal/recommend"
	"github.com/resonata/resonata/internal/session"
	"github.com/resonata/resonata/internal/storage"
	"github.com/resonata/resonata/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Init(cfg.Logging)
	logger := logging.Logger()
	logger.Info().
		Str("storage_driver", cfg.Storage.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting Resonata")

	store, err := openWeightStore(cfg)
	if err != nil {
		return fmt.Errorf("open weight store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("Weight store close failed")
		}
	}()

	cat, err := buildCatalog(cfg, logger)
	if err != nil {
		return fmt.Errorf("build catalog: %w", err)
	}

	reg := facade.NewRegistry(&cfg.Recommend, cat, store, logger)
	core := facade.New(reg)

	var jwtManager *api.JWTManager
	if cfg.Auth.Enabled {
		jwtManager, err = api.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		if err != nil {
			return fmt.Errorf("jwt setup: %w", err)
		}
	}
	router := api.NewRouter(api.RouterConfig{
		Handler:           api.NewHandler(core, logger),
		JWT:               jwtManager,
		RequestsPerMinute: cfg.Server.RequestsPerMinute,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	evictor := session.NewEvictor(
		reg.Sessions,
		reg.Rewards,
		cfg.Recommend.Context.IdleTTL,
		cfg.Recommend.Context.EvictionInterval,
		logger,
	)

	tree := supervisor.NewTree(slog.Default(), supervisor.DefaultConfig())
	tree.Add(supervisor.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	tree.Add(evictor)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("addr", server.Addr).Msg("Listening")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}
	logger.Info().Msg("Shutdown complete")
	return nil
}

// openWeightStore builds the persistence seam selected by
// storage.driver.
func openWeightStore(cfg *config.Config) (recommend.WeightStore, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return storage.NewMemoryWeightStore(), nil
	case "badger":
		return storage.OpenBadgerWeightStore(cfg.Storage.Path)
	case "duckdb":
		return storage.OpenDuckDBWeightStore(cfg.Storage.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// buildCatalog loads the optional seed file and wraps the catalog in
// a circuit breaker.
func buildCatalog(cfg *config.Config, logger zerolog.Logger) (recommend.CatalogProvider, error) {
	var songs []recommend.Song
	if cfg.Catalog.SeedFile != "" {
		raw, err := os.ReadFile(cfg.Catalog.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("read seed file: %w", err)
		}
		if err := json.Unmarshal(raw, &songs); err != nil {
			return nil, fmt.Errorf("parse seed file: %w", err)
		}
	}
	base := catalog.NewMemoryCatalog(songs, cfg.Recommend.Seed)
	return catalog.NewResilientCatalog(base, catalog.BreakerConfig{
		Name:              "catalog",
		FailureThreshold:  uint32(cfg.Catalog.FailureThreshold),
		OpenTimeout:       cfg.Catalog.OpenTimeout,
		RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
	}, logger), nil
}
