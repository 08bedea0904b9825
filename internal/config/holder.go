package config

import (
	"log/slog"
	"sync"
)

// Holder provides thread-safe access to a mutable *Config and its backing
// file path. The lifecycle manager and the HTTP config endpoint both read
// and write through one shared Holder, so a config update is visible to
// the engine without a restart.
type Holder struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

// NewHolder creates a Holder wrapping the given config and path.
func NewHolder(cfg *Config, path string) *Holder {
	return &Holder{cfg: cfg, path: path}
}

// Config returns the current config snapshot.
func (h *Holder) Config() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cp := *h.cfg

	return &cp
}

// Path returns the config file path.
func (h *Holder) Path() string {
	return h.path
}

// Update validates and replaces the held config, then persists it to disk.
func (h *Holder) Update(cfg *Config) error {
	if err := Validate(cfg); err != nil {
		return err
	}

	h.mu.Lock()
	h.cfg = cfg
	h.mu.Unlock()

	return Save(h.path, cfg)
}

// Reload re-reads the config file from disk and swaps it in, without
// writing anything back. Used to pick up manual edits to the config
// file on SIGHUP, the conventional daemon reload signal.
func (h *Holder) Reload(logger *slog.Logger) error {
	cfg, err := Load(h.path, logger)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.cfg = cfg
	h.mu.Unlock()

	return nil
}
