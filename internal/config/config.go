// Package config implements JSON configuration loading, validation, and
// platform-specific path resolution for the sync engine.
package config

import "github.com/arjunv/foldersync/internal/filter"

// Config is the full set of recognized configuration keys (§6).
type Config struct {
	ShareLink            string   `json:"share_link"`
	LocalFolder          string   `json:"local_folder"`
	PollInterval         int      `json:"poll_interval"`
	ClientID             string   `json:"client_id"`
	TenantID             string   `json:"tenant_id"`
	IgnorePatterns       []string `json:"ignore_patterns"`
	SyncFolders          []string `json:"sync_folders"`
	ExcludeFolders       []string `json:"exclude_folders"`
	MaxWorkers           int      `json:"max_workers"`
	NotificationsEnabled bool     `json:"notifications_enabled"`
	WebhookEnabled       bool     `json:"webhook_enabled"`
	WebhookURL           string   `json:"webhook_url"`
}

// ShareLinkSet reports whether a share link has been configured, used
// directly in the status payload (§6).
func (c *Config) ShareLinkSet() bool {
	return c.ShareLink != ""
}

// NewFilter builds the filter.Filter this config describes, applying the
// default ignore patterns when none are configured.
func (c *Config) NewFilter() *filter.Filter {
	patterns := c.IgnorePatterns
	if len(patterns) == 0 {
		patterns = filter.DefaultIgnorePatterns
	}

	return filter.New(patterns, c.SyncFolders, c.ExcludeFolders)
}
