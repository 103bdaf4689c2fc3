package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scribe/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify external tools, directories, and services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			fmt.Fprintln(out, "Dependencies")
			requiredMissing := 0
			for _, status := range preflight.CheckSystemDeps(cfg) {
				detail := status.Detail
				if !status.Available && status.Description != "" {
					detail = fmt.Sprintf("%s (%s)", detail, status.Description)
				}
				fmt.Fprintln(out, renderCheckLine(status.Name, status.Available, status.Optional, detail, colorize))
				if !status.Available && !status.Optional {
					requiredMissing++
				}
			}

			fmt.Fprintln(out, "Environment")
			results := preflight.RunAll(cmd.Context(), cfg)
			results = append(results, preflight.CheckSchedulerRunning(cfg.SchedulerLockPath()))
			for _, result := range results {
				// Scheduler state is informational.
				optional := result.Name == "Scheduler"
				fmt.Fprintln(out, renderCheckLine(result.Name, result.Passed, optional, result.Detail, colorize))
			}

			failed := requiredMissing
			for _, result := range preflight.Failed(results) {
				if result.Name != "Scheduler" {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}
