// Package config provides configuration loading for choosethere.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then CHOOSETHERE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fyrsmithlabs/choosethere/internal/logging"
	"github.com/fyrsmithlabs/choosethere/internal/telemetry"
)

// Config holds the complete choosethere configuration.
type Config struct {
	Server    ServerConfig     `koanf:"server"`
	Storage   StorageConfig    `koanf:"storage"`
	Roulette  RouletteConfig   `koanf:"roulette"`
	Nearby    NearbyConfig     `koanf:"nearby"`
	Events    EventsConfig     `koanf:"events"`
	Catalog   CatalogConfig    `koanf:"catalog"`
	Logging   logging.Config   `koanf:"logging"`
	Telemetry telemetry.Config `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// StorageConfig locates the restaurant/visit database and the learned
// preference store.
type StorageConfig struct {
	SQLitePath string `koanf:"sqlite_path"`
	PrefsPath  string `koanf:"prefs_path"`
}

// RouletteConfig controls draws and learning.
type RouletteConfig struct {
	LearningEnabled   bool `koanf:"learning_enabled"`
	AvoidRepeatsLimit int  `koanf:"avoid_repeats_limit"`
}

// NearbyConfig controls the external place search used by nearby draws.
type NearbyConfig struct {
	Enabled         bool     `koanf:"enabled"`
	ProviderURL     string   `koanf:"provider_url"`
	APIKey          Secret   `koanf:"api_key"`
	Timeout         Duration `koanf:"timeout"`
	DefaultRadiusKm int      `koanf:"default_radius_km"`
	MaxRadiusKm     int      `koanf:"max_radius_km"`
	CacheTTL        Duration `koanf:"cache_ttl"`
	CacheSize       int      `koanf:"cache_size"`
	RateLimit       float64  `koanf:"rate_limit"`
	Burst           int      `koanf:"burst"`
	BreakerFailures uint32   `koanf:"breaker_failures"`
}

// EventsConfig selects how visit learning is dispatched. An empty URL
// keeps learning in-process.
type EventsConfig struct {
	NATSURL Secret `koanf:"nats_url"`
	Subject string `koanf:"subject"`
}

// CatalogConfig points at an optional TOML restaurant seed file.
type CatalogConfig struct {
	SeedPath string `koanf:"seed_path"`
	Watch    bool   `koanf:"watch"`
}

const (
	// MaxAvoidRepeatsLimit bounds how much visit history a draw excludes.
	MaxAvoidRepeatsLimit = 50
	// HardMaxRadiusKm bounds nearby searches regardless of configuration.
	HardMaxRadiusKm = 10
)

// Default returns a Config populated with built-in defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Storage: StorageConfig{
			SQLitePath: "~/.config/choosethere/choosethere.db",
			PrefsPath:  "~/.config/choosethere/prefs",
		},
		Roulette: RouletteConfig{
			LearningEnabled:   true,
			AvoidRepeatsLimit: 10,
		},
		Nearby: NearbyConfig{
			Timeout:         Duration(5 * time.Second),
			DefaultRadiusKm: 3,
			MaxRadiusKm:     HardMaxRadiusKm,
			CacheTTL:        Duration(30 * time.Minute),
			CacheSize:       128,
			RateLimit:       5,
			Burst:           2,
			BreakerFailures: 3,
		},
		Events: EventsConfig{
			Subject: "choosethere.visits",
		},
		Logging:   *logging.NewDefaultConfig(),
		Telemetry: *telemetry.NewDefaultConfig(),
	}
}

// Validate checks the configuration for values the services cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.http_port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Storage.SQLitePath == "" {
		errs = append(errs, errors.New("storage.sqlite_path is required"))
	}
	if c.Roulette.AvoidRepeatsLimit < 0 || c.Roulette.AvoidRepeatsLimit > MaxAvoidRepeatsLimit {
		errs = append(errs, fmt.Errorf("roulette.avoid_repeats_limit must be 0-%d, got %d",
			MaxAvoidRepeatsLimit, c.Roulette.AvoidRepeatsLimit))
	}

	n := c.Nearby
	if n.MaxRadiusKm < 1 || n.MaxRadiusKm > HardMaxRadiusKm {
		errs = append(errs, fmt.Errorf("nearby.max_radius_km must be 1-%d, got %d", HardMaxRadiusKm, n.MaxRadiusKm))
	}
	if n.DefaultRadiusKm < 1 || n.DefaultRadiusKm > n.MaxRadiusKm {
		errs = append(errs, fmt.Errorf("nearby.default_radius_km must be 1-%d, got %d", n.MaxRadiusKm, n.DefaultRadiusKm))
	}
	if n.Enabled && n.ProviderURL == "" {
		errs = append(errs, errors.New("nearby.provider_url is required when nearby is enabled"))
	}
	if n.CacheSize <= 0 {
		errs = append(errs, errors.New("nearby.cache_size must be > 0"))
	}
	if n.RateLimit <= 0 || n.Burst <= 0 {
		errs = append(errs, errors.New("nearby.rate_limit and nearby.burst must be > 0"))
	}
	if n.BreakerFailures == 0 {
		errs = append(errs, errors.New("nearby.breaker_failures must be > 0"))
	}

	if c.Events.NATSURL.IsSet() && c.Events.Subject == "" {
		errs = append(errs, errors.New("events.subject is required when events.nats_url is set"))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}
	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}

	return errors.Join(errs...)
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
