package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the observer's current state at a glance",
	Long: `Show the running observer's lifecycle state, presentation context,
counters, detected scenarios, and any outstanding pending user actions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(ctx context.Context) error {
	client := apiClient()

	info, err := client.State(ctx)
	if err != nil {
		return err
	}
	counters, err := client.Counters(ctx)
	if err != nil {
		return err
	}
	scenarios, err := client.Scenarios(ctx)
	if err != nil {
		return err
	}
	pending, err := client.Pending(ctx)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	magenta := color.New(color.FgMagenta).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\n%s\n\n", cyan("citywatch status"))
	fmt.Printf("  State:    %s\n", magenta(info.State))
	fmt.Printf("  Context:  %s\n", magenta(info.Context))
	fmt.Println()

	errStr := green(fmt.Sprintf("%d", counters.Errors))
	if counters.Errors > 0 {
		errStr = red(fmt.Sprintf("%d", counters.Errors))
	}
	fmt.Printf("  Valid transitions: %d\n", counters.ValidTransitions)
	fmt.Printf("  Errors:            %s\n", errStr)
	fmt.Printf("  Demand (pre/in):   %d/%d\n", counters.PreGameDemand, counters.InGameDemand)
	fmt.Println()

	fmt.Println("  Scenarios:")
	for _, sc := range scenarios {
		mark := gray("✗")
		if sc.Detected {
			mark = green("✓")
		}
		fmt.Printf("    %s %s\n", mark, sc.Name)
	}

	if len(pending) > 0 {
		fmt.Println()
		fmt.Println("  Pending actions:")
		for kind, pa := range pending {
			fmt.Printf("    %s %q (origin %s)\n", kind, pa.Target, pa.Origin)
		}
	}
	fmt.Println()
	return nil
}
