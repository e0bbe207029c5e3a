package main

import (
	"github.com/spf13/cobra"

	"github.com/modwatch/citywatch/internal/console"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Start an interactive shell over the running observer",
	Long: `Start an interactive console attached to the running observer's API.

The console provides commands for:
- Inspecting the current lifecycle state and context
- Paging through recent event records
- Checking scenario flags and counters
- Clearing the diagnostic state

Type 'help' in the console for available commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := console.New(apiClient())
		if err != nil {
			return err
		}
		return c.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}
