package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// Load reads and parses the JSON config file at path, applies defaults for
// any unset keys, validates the result, and returns it.
func Load(path string, logger *slog.Logger) (*Config, error) {
	logger.Debug("loading config file", "path", path)

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads the JSON config file if it exists, otherwise returns
// a Config populated with defaults. This supports zero-config first runs:
// a share link and local folder can still be supplied via environment
// overrides or the HTTP config endpoint before start() is called.
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug("config file not found, using defaults", "path", path)

		return DefaultConfig(), nil
	}

	return Load(path, logger)
}

// Resolve loads configuration and applies the environment override layer,
// returning the fully resolved config. The overrides are not validated
// here; the start-time checks in ValidateForStart cover the fields they set.
func Resolve(env EnvOverrides, logger *slog.Logger) (*Config, error) {
	cfgPath := ResolveConfigPath(env)

	cfg, err := LoadOrDefault(cfgPath, logger)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	env.Apply(cfg)

	return cfg, nil
}
