// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/resonata/resonata/internal/recommend"
)

// BreakerConfig tunes the resilient provider wrapper.
type BreakerConfig struct {
	// Name identifies the breaker in logs.
	Name string

	// FailureThreshold is the consecutive-failure count that opens the
	// breaker. Default: 5.
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open before probing.
	// Default: 30s.
	OpenTimeout time.Duration

	// RequestsPerSecond rate-limits upstream fetches; zero disables
	// limiting.
	RequestsPerSecond float64

	// Burst is the limiter burst size. Default: 1 when limiting.
	Burst int
}

// DefaultBreakerConfig returns the default wrapper settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "catalog",
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// ResilientCatalog wraps a CatalogProvider with a circuit breaker and
// an optional rate limiter, so a failing upstream degrades to fast
// errors instead of piling up requests.
type ResilientCatalog struct {
	inner   recommend.CatalogProvider
	breaker *gobreaker.CircuitBreaker[[]recommend.Song]
	limiter *rate.Limiter
	logger  zerolog.Logger
}

var _ recommend.CatalogProvider = (*ResilientCatalog)(nil)

// NewResilientCatalog wraps inner with the given breaker settings.
func NewResilientCatalog(inner recommend.CatalogProvider, cfg BreakerConfig, logger zerolog.Logger) *ResilientCatalog {
	if cfg.Name == "" {
		cfg.Name = "catalog"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	log := logger.With().Str("component", "catalog_breaker").Logger()

	settings := gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Catalog breaker state changed")
		},
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &ResilientCatalog{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[[]recommend.Song](settings),
		limiter: limiter,
		logger:  log,
	}
}

// FetchCandidates implements recommend.CatalogProvider. The limiter
// wait respects the request deadline; an open breaker fails fast.
func (c *ResilientCatalog) FetchCandidates(ctx context.Context, targetMood string, approxLimit int) ([]recommend.Song, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("catalog rate limit: %w", err)
		}
	}

	songs, err := c.breaker.Execute(func() ([]recommend.Song, error) {
		return c.inner.FetchCandidates(ctx, targetMood, approxLimit)
	})
	if err != nil {
		return nil, fmt.Errorf("catalog fetch: %w", err)
	}
	return songs, nil
}

// State returns the breaker state for health reporting.
func (c *ResilientCatalog) State() gobreaker.State {
	return c.breaker.State()
}
