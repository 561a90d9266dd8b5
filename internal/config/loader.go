package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix scopes environment overrides.
	EnvPrefix = "CHOOSETHERE_"
)

// LoadWithFile loads configuration from a YAML file, then overrides it with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (CHOOSETHERE_SERVER_HTTP_PORT, ...)
//  2. YAML config file (~/.config/choosethere/config.yaml)
//  3. Built-in defaults (see Default)
//
// A missing file is not an error. An existing file must live under
// ~/.config/choosethere/ or /etc/choosethere/, be 0600 or 0400, and be
// at most 1MB.
//
// Environment variables drop the prefix and split on the first underscore:
//
//	CHOOSETHERE_SERVER_HTTP_PORT            -> server.http_port
//	CHOOSETHERE_ROULETTE_AVOID_REPEATS_LIMIT -> roulette.avoid_repeats_limit
//	CHOOSETHERE_NEARBY_CACHE_TTL            -> nearby.cache_ttl
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		configPath = filepath.Join(dir, "config.yaml")
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		// Validate through the open descriptor to avoid a TOCTOU race.
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
		if err := validateConfigFileProperties(info); err != nil {
			return nil, fmt.Errorf("config file validation failed: %w", err)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envKey maps CHOOSETHERE_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// ConfigDir returns ~/.config/choosethere.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "choosethere"), nil
}

// EnsureConfigDir creates the config directory with 0700 permissions.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}
	return nil
}

// validateConfigPath checks the path is in an allowed directory, even if
// the file does not exist yet.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolvedPath = absPath
	}

	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	for _, allowed := range []string{dir, "/etc/choosethere"} {
		if resolvedPath == allowed || strings.HasPrefix(resolvedPath, allowed+string(filepath.Separator)) {
			return nil
		}
	}
	return fmt.Errorf("config file must be in ~/.config/choosethere/ or /etc/choosethere/")
}

// validateConfigFileProperties checks permissions and size on an open file.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

// applyDefaults fills zeroed fields and clamps values that have a safe
// nearest setting.
func applyDefaults(cfg *Config) {
	def := Default()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if cfg.Storage.PrefsPath == "" {
		cfg.Storage.PrefsPath = def.Storage.PrefsPath
	}

	if cfg.Roulette.AvoidRepeatsLimit < 0 {
		cfg.Roulette.AvoidRepeatsLimit = 0
	}
	if cfg.Roulette.AvoidRepeatsLimit > MaxAvoidRepeatsLimit {
		cfg.Roulette.AvoidRepeatsLimit = MaxAvoidRepeatsLimit
	}

	if cfg.Nearby.MaxRadiusKm > HardMaxRadiusKm {
		cfg.Nearby.MaxRadiusKm = HardMaxRadiusKm
	}
	if cfg.Nearby.Timeout == 0 {
		cfg.Nearby.Timeout = def.Nearby.Timeout
	}
	if cfg.Nearby.CacheTTL == 0 {
		cfg.Nearby.CacheTTL = def.Nearby.CacheTTL
	}
	if cfg.Events.Subject == "" {
		cfg.Events.Subject = def.Events.Subject
	}
}
