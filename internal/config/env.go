package config

import "os"

// Environment variable names recognized as overrides.
const (
	EnvConfig      = "FOLDERSYNC_CONFIG"
	EnvShareLink   = "FOLDERSYNC_SHARE_LINK"
	EnvLocalFolder = "FOLDERSYNC_LOCAL_FOLDER"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath  string
	ShareLink   string
	LocalFolder string
}

// ReadEnvOverrides reads the recognized environment variables.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:  os.Getenv(EnvConfig),
		ShareLink:   os.Getenv(EnvShareLink),
		LocalFolder: os.Getenv(EnvLocalFolder),
	}
}

// Apply overlays any non-empty override fields onto cfg.
func (e EnvOverrides) Apply(cfg *Config) {
	if e.ShareLink != "" {
		cfg.ShareLink = e.ShareLink
	}

	if e.LocalFolder != "" {
		cfg.LocalFolder = e.LocalFolder
	}
}
