package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := LoadOrDefault(path, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultMaxWorkers, cfg.MaxWorkers)
	assert.False(t, cfg.ShareLinkSet())
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.ShareLink = "https://example.com/share/abc"
	cfg.LocalFolder = "/home/user/Sync"
	cfg.MaxWorkers = 8

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, cfg.ShareLink, loaded.ShareLink)
	assert.Equal(t, cfg.LocalFolder, loaded.LocalFolder)
	assert.Equal(t, 8, loaded.MaxWorkers)
	assert.True(t, loaded.ShareLinkSet())
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PollInterval = 0
	assert.Error(t, Validate(cfg))

	cfg2 := DefaultConfig()
	cfg2.MaxWorkers = 0
	assert.Error(t, Validate(cfg2))

	cfg3 := DefaultConfig()
	cfg3.WebhookEnabled = true
	cfg3.WebhookURL = ""
	assert.Error(t, Validate(cfg3))
}

func TestValidateForStartRequiresShareLinkAndFolder(t *testing.T) {
	cfg := DefaultConfig()
	err := ValidateForStart(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "share_link")
	assert.Contains(t, err.Error(), "local_folder")

	cfg.ShareLink = "https://example.com/s"
	cfg.LocalFolder = "/tmp/sync"
	assert.NoError(t, ValidateForStart(cfg))
}

func TestEnvOverridesApply(t *testing.T) {
	cfg := DefaultConfig()
	env := EnvOverrides{ShareLink: "https://example.com/env", LocalFolder: "/env/folder"}
	env.Apply(cfg)

	assert.Equal(t, "https://example.com/env", cfg.ShareLink)
	assert.Equal(t, "/env/folder", cfg.LocalFolder)
}

func TestHolderUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	h := NewHolder(DefaultConfig(), path)

	updated := DefaultConfig()
	updated.ShareLink = "https://example.com/new"
	updated.LocalFolder = "/new/folder"

	require.NoError(t, h.Update(updated))
	assert.Equal(t, "https://example.com/new", h.Config().ShareLink)

	reloaded, err := Load(path, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/new", reloaded.ShareLink)
}

func TestHolderUpdateRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	h := NewHolder(DefaultConfig(), path)

	bad := DefaultConfig()
	bad.PollInterval = -1

	assert.Error(t, h.Update(bad))
	assert.Equal(t, DefaultPollInterval, h.Config().PollInterval)
}
