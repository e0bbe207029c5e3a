package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the full diagnostic snapshot as JSON",
	Long: `Export the observer's full diagnostic snapshot: lifecycle state,
counters, scenario flags, and the complete in-memory event log.

Writes to stdout unless --output names a file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := apiClient().Export(cmd.Context())
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		data = append(data, '\n')

		if exportOutput == "" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", exportOutput, err)
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Snapshot written to %s (%d events)\n", green("✓"), exportOutput, len(snap.Events))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write the snapshot to a file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}
