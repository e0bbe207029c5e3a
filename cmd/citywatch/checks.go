package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/modwatch/citywatch/internal/checks"
	"github.com/modwatch/citywatch/internal/sim"
)

var checksCmd = &cobra.Command{
	Use:   "checks",
	Short: "Run the functional checklist against a simulated host",
	Long: `Run the functional checklist (pause control, simulation speed, money
grants, mod storage roundtrip) against an in-process simulated host.

Against a real game the checklist runs inside the attached observer process;
this command exists to validate the checklist itself and the host contract.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		host := sim.NewHost("1.4.2")
		results := checks.NewRunner(host, logger).Run()

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		failed := 0
		fmt.Println()
		for _, res := range results {
			if res.Passed {
				fmt.Printf("  %s %s\n", green("✓"), res.Name)
				continue
			}
			failed++
			fmt.Printf("  %s %s\n", red("✗"), res.Name)
			fmt.Printf("    %s\n", gray(res.Detail))
		}
		fmt.Println()

		if failed > 0 {
			return fmt.Errorf("%d of %d checks failed", failed, len(results))
		}
		fmt.Printf("%s All %d checks passed\n", green("✓"), len(results))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checksCmd)
}
