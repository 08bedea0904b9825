package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arjunv/foldersync/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the daemon's configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSetCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current configuration",
		RunE:  runConfigShow,
	}
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	var cfg config.Config
	if err := getJSON(cc, "/api/config", &cfg); err != nil {
		return err
	}

	if flagJSON {
		return printJSON(cfg)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("formatting config: %w", err)
	}

	fmt.Println(string(data))

	return nil
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a single configuration key",
		Args:  cobra.ExactArgs(2),
		RunE:  runConfigSet,
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	key, value := args[0], args[1]

	var cfg config.Config
	if err := getJSON(cc, "/api/config", &cfg); err != nil {
		return err
	}

	if err := applyConfigKey(&cfg, key, value); err != nil {
		return err
	}

	body, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	resp, err := cc.HTTP.Post(cc.BaseURL+"/api/config", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("contacting daemon at %s: %w", cc.BaseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	fmt.Printf("%s = %s\n", key, value)

	return nil
}

// applyConfigKey sets one recognized key (§6) on cfg, parsing value
// according to that key's type.
func applyConfigKey(cfg *config.Config, key, value string) error {
	switch key {
	case "share_link":
		cfg.ShareLink = value
	case "local_folder":
		cfg.LocalFolder = value
	case "client_id":
		cfg.ClientID = value
	case "tenant_id":
		cfg.TenantID = value
	case "webhook_url":
		cfg.WebhookURL = value
	case "poll_interval":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("poll_interval: %w", err)
		}

		cfg.PollInterval = n
	case "max_workers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("max_workers: %w", err)
		}

		cfg.MaxWorkers = n
	case "notifications_enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("notifications_enabled: %w", err)
		}

		cfg.NotificationsEnabled = b
	case "webhook_enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("webhook_enabled: %w", err)
		}

		cfg.WebhookEnabled = b
	case "ignore_patterns":
		cfg.IgnorePatterns = splitCSV(value)
	case "sync_folders":
		cfg.SyncFolders = splitCSV(value)
	case "exclude_folders":
		cfg.ExcludeFolders = splitCSV(value)
	default:
		return fmt.Errorf("unrecognized config key %q", key)
	}

	return nil
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	return parts
}
