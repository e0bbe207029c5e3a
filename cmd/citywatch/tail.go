package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/modwatch/citywatch/internal/console"
	"github.com/modwatch/citywatch/internal/eventlog"
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Watch the observer's event log in real-time",
	Long: `Display recent event records and optionally follow live updates.

Shows records from the in-memory event log including:
- Lifecycle state transitions
- Host hook firings with running counts
- User load/new-game intents and their resolutions
- Context changes
- Cadence anomalies and invalid transitions`,
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		limit, _ := cmd.Flags().GetInt("limit")

		if follow {
			return runTailFollow(cmd.Context(), limit)
		}
		return runTailOnce(cmd.Context(), limit)
	},
}

func init() {
	tailCmd.Flags().BoolP("follow", "f", false, "Follow mode - watch for live updates (Ctrl+C to stop)")
	tailCmd.Flags().IntP("limit", "n", 20, "Number of recent events to show initially")
	rootCmd.AddCommand(tailCmd)
}

// runTailOnce shows recent events and exits
func runTailOnce(ctx context.Context, limit int) error {
	records, err := apiClient().Events(ctx, limit)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("\n%s No events recorded\n\n", yellow("✨"))
		return nil
	}

	for _, rec := range records {
		console.DisplayRecord(rec)
	}
	return nil
}

// runTailFollow shows recent events and continues polling for new ones
func runTailFollow(ctx context.Context, initialLimit int) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Printf("\n%s Following live updates (Ctrl+C to stop)...\n\n", cyan("👁️"))

	client := apiClient()
	records, err := client.Events(ctx, initialLimit)
	if err != nil {
		return err
	}
	for _, rec := range records {
		console.DisplayRecord(rec)
	}

	// Session-relative timestamps are monotonic, so the newest displayed
	// offset marks where the next poll picks up.
	lastSeen := int64(-1)
	if len(records) > 0 {
		lastSeen = records[len(records)-1].RelativeMs
	}

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			fmt.Println("\n\nStopped following")
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			recent, err := client.Events(ctx, 100)
			if err != nil {
				fmt.Fprintf(os.Stderr, "\nError fetching new events: %v\n", err)
				continue
			}
			lastSeen = displayNewRecords(recent, lastSeen)
		}
	}
}

// displayNewRecords prints records newer than lastSeen and returns the new
// high-water mark. A drop in the newest offset means the log was cleared.
func displayNewRecords(records []eventlog.Record, lastSeen int64) int64 {
	if len(records) > 0 && records[len(records)-1].RelativeMs < lastSeen {
		lastSeen = -1
	}
	for _, rec := range records {
		if rec.RelativeMs <= lastSeen {
			continue
		}
		console.DisplayRecord(rec)
		lastSeen = rec.RelativeMs
	}
	return lastSeen
}
