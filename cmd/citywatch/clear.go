package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Wipe the observer's diagnostics",
	Long: `Wipe the event log, counters, scenario flags, and pending actions in
one atomic operation, in memory and in the archive database.

The lifecycle state itself is untouched: clearing diagnostics does not change
what the host is doing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := apiClient().Clear(cmd.Context()); err != nil {
			return err
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Diagnostics cleared\n", green("✓"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
}
