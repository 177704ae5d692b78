// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

package recommend

import (
	"fmt"
	"time"
)

// Config contains all tunables for the recommendation core.
type Config struct {
	// Weights contains the weight-adapter hyperparameters.
	Weights WeightsConfig `json:"weights" koanf:"weights"`

	// ColdStart contains cold-start and transition thresholds.
	ColdStart ColdStartConfig `json:"cold_start" koanf:"cold_start"`

	// Context contains conversation-memory parameters.
	Context ContextConfig `json:"context" koanf:"context"`

	// Limits contains operational limits.
	Limits LimitsConfig `json:"limits" koanf:"limits"`

	// Seed is the random seed for deterministic behavior.
	// If zero, a fixed default seed is used.
	Seed int64 `json:"seed" koanf:"seed"`
}

// WeightsConfig contains the weight-adapter hyperparameters.
type WeightsConfig struct {
	// LearningRate is the gradient step size.
	// Default: 0.05.
	LearningRate float64 `json:"learning_rate" koanf:"learning_rate"`

	// Regularization is the L2 pull toward the neutral weight 1.0.
	// Default: 0.01.
	Regularization float64 `json:"regularization" koanf:"regularization"`

	// Min is the lower weight clamp. Default: 0.1.
	Min float64 `json:"min" koanf:"min"`

	// Max is the upper weight clamp. Default: 2.0.
	Max float64 `json:"max" koanf:"max"`
}

// ColdStartConfig contains cold-start thresholds and blending parameters.
type ColdStartConfig struct {
	// Threshold is the feedback count below which a user is cold.
	// Default: 10.
	Threshold int `json:"threshold" koanf:"threshold"`

	// TransitionCompleteAt is the feedback count at which personalization
	// reaches 1.0. Default: 30.
	TransitionCompleteAt int `json:"transition_complete_at" koanf:"transition_complete_at"`

	// DiversityFactor balances score against artist novelty during
	// mood-cluster sampling. Default: 0.3.
	DiversityFactor float64 `json:"diversity_factor" koanf:"diversity_factor"`
}

// ContextConfig contains conversation-memory parameters.
type ContextConfig struct {
	// WindowSize is the number of turns retained per session. Default: 10.
	WindowSize int `json:"window_size" koanf:"window_size"`

	// IdleTTL is how long a session may sit idle before eviction.
	// Default: 1h.
	IdleTTL time.Duration `json:"idle_ttl" koanf:"idle_ttl"`

	// EvictionInterval is how often the eviction scan runs. Default: 1m.
	EvictionInterval time.Duration `json:"eviction_interval" koanf:"eviction_interval"`
}

// LimitsConfig contains operational limits.
type LimitsConfig struct {
	// DefaultLimit is the default number of recommendations. Default: 10.
	DefaultLimit int `json:"default_limit" koanf:"default_limit"`

	// MaxLimit is the maximum allowed limit. Default: 50.
	MaxLimit int `json:"max_limit" koanf:"max_limit"`

	// CandidateMultiplier scales the limit into a catalog fetch size.
	// Default: 3.
	CandidateMultiplier int `json:"candidate_multiplier" koanf:"candidate_multiplier"`

	// CatalogTimeout bounds a single catalog fetch. Default: 5s.
	CatalogTimeout time.Duration `json:"catalog_timeout" koanf:"catalog_timeout"`
}

// DefaultConfig returns a Config with the contractual defaults.
func DefaultConfig() *Config {
	return &Config{
		Weights: WeightsConfig{
			LearningRate:   0.05,
			Regularization: 0.01,
			Min:            0.1,
			Max:            2.0,
		},
		ColdStart: ColdStartConfig{
			Threshold:            10,
			TransitionCompleteAt: 30,
			DiversityFactor:      0.3,
		},
		Context: ContextConfig{
			WindowSize:       10,
			IdleTTL:          time.Hour,
			EvictionInterval: time.Minute,
		},
		Limits: LimitsConfig{
			DefaultLimit:        10,
			MaxLimit:            50,
			CandidateMultiplier: 3,
			CatalogTimeout:      5 * time.Second,
		},
		Seed: 42, // Default seed for determinism
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Weights.LearningRate <= 0 {
		return fmt.Errorf("weights.learning_rate must be positive, got %f", c.Weights.LearningRate)
	}
	if c.Weights.Regularization < 0 {
		return fmt.Errorf("weights.regularization must be non-negative, got %f", c.Weights.Regularization)
	}
	if c.Weights.Min <= 0 || c.Weights.Max <= c.Weights.Min {
		return fmt.Errorf("weights bounds must satisfy 0 < min < max, got [%f, %f]", c.Weights.Min, c.Weights.Max)
	}

	if c.ColdStart.Threshold < 0 {
		return fmt.Errorf("cold_start.threshold must be non-negative, got %d", c.ColdStart.Threshold)
	}
	if c.ColdStart.TransitionCompleteAt < c.ColdStart.Threshold {
		return fmt.Errorf("cold_start.transition_complete_at must be >= threshold, got %d < %d",
			c.ColdStart.TransitionCompleteAt, c.ColdStart.Threshold)
	}
	if c.ColdStart.DiversityFactor < 0 || c.ColdStart.DiversityFactor > 1 {
		return fmt.Errorf("cold_start.diversity_factor must be in [0, 1], got %f", c.ColdStart.DiversityFactor)
	}

	if c.Context.WindowSize < 1 {
		return fmt.Errorf("context.window_size must be positive, got %d", c.Context.WindowSize)
	}
	if c.Context.IdleTTL <= 0 {
		return fmt.Errorf("context.idle_ttl must be positive, got %v", c.Context.IdleTTL)
	}
	if c.Context.EvictionInterval <= 0 {
		return fmt.Errorf("context.eviction_interval must be positive, got %v", c.Context.EvictionInterval)
	}

	if c.Limits.DefaultLimit < 1 {
		return fmt.Errorf("limits.default_limit must be positive, got %d", c.Limits.DefaultLimit)
	}
	if c.Limits.MaxLimit < c.Limits.DefaultLimit {
		return fmt.Errorf("limits.max_limit must be >= limits.default_limit, got %d < %d",
			c.Limits.MaxLimit, c.Limits.DefaultLimit)
	}
	if c.Limits.CandidateMultiplier < 1 {
		return fmt.Errorf("limits.candidate_multiplier must be positive, got %d", c.Limits.CandidateMultiplier)
	}
	if c.Limits.CatalogTimeout <= 0 {
		return fmt.Errorf("limits.catalog_timeout must be positive, got %v", c.Limits.CatalogTimeout)
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	// Direct field copy - all nested structs contain only value types
	return &Config{
		Weights:   c.Weights,
		ColdStart: c.ColdStart,
		Context:   c.Context,
		Limits:    c.Limits,
		Seed:      c.Seed,
	}
}
