package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"starstage/internal/catalog"
	"starstage/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, free space, and database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			cat, err := catalog.Open(cfg)
			if err != nil {
				// Preflight still reports directory checks when the
				// catalog cannot open.
				cat = nil
			}
			if cat != nil {
				defer cat.Close()
			}

			results := preflight.RunAll(cmd.Context(), cfg, cat)

			if ctx.JSONMode() {
				return writeJSON(cmd, results)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			failed := 0
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
					failed++
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d checks failed", failed, len(results))
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
}
