package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/multierr"
)

const minMaxWorkers = 1

// Validate checks configuration values that must hold regardless of
// whether start() has been called yet. share_link and local_folder are
// NOT required here — they are required by the lifecycle manager's
// start() (§4.9), since a config file may legitimately exist before the
// user has pointed the engine at anything.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.PollInterval < 1 {
		errs = append(errs, fmt.Errorf("poll_interval: must be >= 1, got %d", cfg.PollInterval))
	}

	if cfg.MaxWorkers < minMaxWorkers {
		errs = append(errs, fmt.Errorf("max_workers: must be >= %d, got %d", minMaxWorkers, cfg.MaxWorkers))
	}

	if cfg.WebhookEnabled && cfg.WebhookURL == "" {
		errs = append(errs, errors.New("webhook_url: required when webhook_enabled is true"))
	}

	return multierr.Combine(errs...)
}

// ValidateForStart checks the additional constraints required to call
// start() (§4.9): a share link and an absolute local folder.
func ValidateForStart(cfg *Config) error {
	var errs []error

	errs = append(errs, Validate(cfg))

	if cfg.ShareLink == "" {
		errs = append(errs, errors.New("share_link: required to start"))
	}

	if cfg.LocalFolder == "" {
		errs = append(errs, errors.New("local_folder: required to start"))
	} else if !filepath.IsAbs(cfg.LocalFolder) {
		errs = append(errs, fmt.Errorf("local_folder: must be an absolute path, got %q", cfg.LocalFolder))
	}

	return multierr.Combine(errs...)
}
