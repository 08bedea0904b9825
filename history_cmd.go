package main

import (
	"fmt"
	"net/url"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/arjunv/foldersync/internal/history"
)

var (
	flagHistoryLimit  int
	flagHistoryOffset int
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync events",
		RunE:  runHistory,
	}

	cmd.Flags().IntVar(&flagHistoryLimit, "limit", 50, "maximum number of events to show")
	cmd.Flags().IntVar(&flagHistoryOffset, "offset", 0, "number of newest events to skip")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	q := url.Values{}
	q.Set("limit", fmt.Sprintf("%d", flagHistoryLimit))
	q.Set("offset", fmt.Sprintf("%d", flagHistoryOffset))

	var events []history.Event
	if err := getJSON(cc, "/api/history?"+q.Encode(), &events); err != nil {
		return err
	}

	if flagJSON {
		return printJSON(events)
	}

	if len(events) == 0 {
		fmt.Println("No history recorded.")

		return nil
	}

	for _, ev := range events {
		line := fmt.Sprintf("%-20s %-10s %-8s %s", humanize.Time(ev.Timestamp), ev.Action, ev.Status, ev.Path)
		if ev.Size > 0 {
			line += fmt.Sprintf(" (%s)", humanize.Bytes(uint64(ev.Size)))
		}

		if ev.Error != "" {
			line += fmt.Sprintf(" error=%s", ev.Error)
		}

		fmt.Println(line)
	}

	return nil
}
