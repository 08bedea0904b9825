package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func newTriggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger",
		Short: "Request an immediate reconciliation pass",
		RunE:  runTrigger,
	}
}

func runTrigger(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	resp, err := cc.HTTP.Post(cc.BaseURL+"/api/sync/trigger", "application/json", nil)
	if err != nil {
		return fmt.Errorf("contacting daemon at %s: %w", cc.BaseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return decodeAPIError(resp)
	}

	if flagJSON {
		return printJSON(map[string]string{"status": "triggered"})
	}

	fmt.Println("Sync triggered.")

	return nil
}
