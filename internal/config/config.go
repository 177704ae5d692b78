// Resonata - Conversational Music Recommendation Service
// Copyright 2026 Resonata Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonata/resonata

// Package config provides layered application configuration:
// built-in defaults, an optional YAML file, and RESONATA_-prefixed
// environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/resonata/resonata/internal/logging"
	"github.com/resonata/resonata/internal/recommend"
)

// DefaultConfigPaths lists the paths where config files are searched
// in order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/resonata/config.yaml",
	"/etc/resonata/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix namespaces all Resonata environment variables.
const envPrefix = "RESONATA_"

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig     `koanf:"server"`
	Storage   StorageConfig    `koanf:"storage"`
	Catalog   CatalogConfig    `koanf:"catalog"`
	Auth      AuthConfig       `koanf:"auth"`
	Logging   logging.Config   `koanf:"logging"`
	Recommend recommend.Config `koanf:"recommend"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// RequestsPerMinute rate-limits each client IP. 0 disables
	// rate limiting.
	RequestsPerMinute int `koanf:"requests_per_minute"`
}

// StorageConfig selects and configures the weight persistence backend.
type StorageConfig struct {
	// Driver is one of: memory, badger, duckdb.
	Driver string `koanf:"driver"`
	// Path is the on-disk location for badger (a directory) or
	// duckdb (a database file). Empty with duckdb means in-memory.
	Path string `koanf:"path"`
}

// CatalogConfig configures the song catalog client.
type CatalogConfig struct {
	// SeedFile is an optional JSON file of songs loaded into the
	// in-memory catalog at startup.
	SeedFile string `koanf:"seed_file"`
	// FailureThreshold trips the catalog circuit breaker after this
	// many consecutive failures.
	FailureThreshold int `koanf:"failure_threshold"`
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration `koanf:"open_timeout"`
	// RequestsPerSecond rate-limits catalog fetches. 0 disables.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// AuthConfig holds JWT authentication settings.
type AuthConfig struct {
	// Enabled turns on JWT bearer-token identity checks. When
	// disabled, callers assert identity via the X-User-ID header
	// (development mode only).
	Enabled bool `koanf:"enabled"`
	// JWTSecret signs and verifies HS256 tokens.
	JWTSecret string `koanf:"jwt_secret"`
	// TokenTTL bounds token lifetime at issue.
	TokenTTL time.Duration `koanf:"token_ttl"`
}

// defaultConfig returns a Config with all defaults applied.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RequestsPerMinute: 300,
		},
		Storage: StorageConfig{
			Driver: "memory",
			Path:   "",
		},
		Catalog: CatalogConfig{
			SeedFile:          "",
			FailureThreshold:  5,
			OpenTimeout:       30 * time.Second,
			RequestsPerSecond: 0,
		},
		Auth: AuthConfig{
			Enabled:   false,
			JWTSecret: "",
			TokenTTL:  24 * time.Hour,
		},
		Logging:   logging.DefaultConfig(),
		Recommend: *recommend.DefaultConfig(),
	}
}

// Load loads configuration using layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. RESONATA_-prefixed environment variables (highest priority)
//
// Environment variable names map to koanf paths by stripping the
// prefix, lower-casing, and converting double underscores to dots:
// RESONATA_SERVER__PORT -> server.port.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile searches CONFIG_PATH and then the default paths.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Validate checks the configuration for invalid or inconsistent
// values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Storage.Driver {
	case "memory", "duckdb":
	case "badger":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the badger driver")
		}
	default:
		return fmt.Errorf("storage.driver must be one of memory, badger, duckdb, got %q", c.Storage.Driver)
	}
	if c.Catalog.FailureThreshold < 1 {
		return fmt.Errorf("catalog.failure_threshold must be at least 1, got %d", c.Catalog.FailureThreshold)
	}
	if c.Auth.Enabled && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters when auth is enabled")
	}
	if err := c.Recommend.Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	return nil
}
