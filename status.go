package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/arjunv/foldersync/internal/lifecycle"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the daemon's current sync status",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	var status lifecycle.Status
	if err := getJSON(cc, "/api/status", &status); err != nil {
		return err
	}

	if flagJSON {
		return printJSON(status)
	}

	printStatusText(status)

	return nil
}

func printStatusText(s lifecycle.Status) {
	state := "stopped"
	if s.Running {
		state = "running"
	}

	if isColorOutput() {
		fmt.Println("foldersync")
	}

	fmt.Printf("State:         %s\n", state)
	fmt.Printf("Connected:     %t\n", s.Connected)
	fmt.Printf("Local folder:  %s\n", s.LocalFolder)
	fmt.Printf("Share link:    %t\n", s.ShareLinkSet)
	fmt.Printf("Poll interval: %ds\n", s.PollInterval)
	fmt.Printf("Files tracked: %d\n", s.FileCount)
	fmt.Printf("Retry queue:   %d\n", s.RetryCount)

	if s.LastSync != nil {
		fmt.Printf("Last sync:     %s\n", humanize.Time(*s.LastSync))
	} else {
		fmt.Println("Last sync:     never")
	}

	if s.NextSync != nil {
		fmt.Printf("Next sync:     %s\n", humanize.Time(*s.NextSync))
	}

	if s.Error != "" {
		fmt.Printf("Error:         %s\n", s.Error)
	}

	if s.CurrentOp != nil {
		fmt.Printf("In progress:   %s %s (%s / %s, %.1f%%)\n",
			s.CurrentOp.Action, s.CurrentOp.File,
			humanize.Bytes(uint64(s.CurrentOp.BytesDone)), humanize.Bytes(uint64(s.CurrentOp.BytesTotal)),
			s.CurrentOp.ProgressPct,
		)
	}
}

// getJSON issues a GET against the daemon's control surface and decodes
// the JSON response body into v.
func getJSON(cc *CLIContext, path string, v interface{}) error {
	resp, err := cc.HTTP.Get(cc.BaseURL + path)
	if err != nil {
		return fmt.Errorf("contacting daemon at %s: %w", cc.BaseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	if v == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return fmt.Errorf("daemon returned %s", resp.Status)
	}

	return fmt.Errorf("daemon returned %s: %s", resp.Status, body.Error)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(cmdOut)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
