package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// appName is the per-platform application directory name.
const appName = "foldersync"

const configFileName = "config.json"
const stateFileName = "sync_state.json"
const historyFileName = "history.jsonl"

// DefaultConfigDir returns the platform-specific directory for the
// configuration file. Linux respects XDG_CONFIG_HOME; macOS follows Apple's
// Application Support convention.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return linuxDir(home, "XDG_CONFIG_HOME", ".config")
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".config", appName)
	}
}

// DefaultDataDir returns the platform-specific directory for the sync
// state database and history log.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return linuxDir(home, "XDG_DATA_HOME", filepath.Join(".local", "share"))
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".local", "share", appName)
	}
}

func linuxDir(home, envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return filepath.Join(v, appName)
	}

	return filepath.Join(home, fallback, appName)
}

// DefaultConfigPath returns the full path to the default config file.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, configFileName)
}

// DefaultStatePath returns the full path to the default sync state file.
func DefaultStatePath() string {
	dir := DefaultDataDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, stateFileName)
}

// DefaultHistoryPath returns the full path to the default history log file.
func DefaultHistoryPath() string {
	dir := DefaultDataDir()
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, historyFileName)
}

// ResolveConfigPath determines the config file path using the two-layer
// priority: environment variable > platform default.
func ResolveConfigPath(env EnvOverrides) string {
	if env.ConfigPath != "" {
		return env.ConfigPath
	}

	return DefaultConfigPath()
}
