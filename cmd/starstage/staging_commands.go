package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"starstage/internal/logging"
	"starstage/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Manage the staging area",
	}

	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingCleanCommand(ctx))

	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staging folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			stagingDir := strings.TrimSpace(cfg.Paths.StagingDir)
			dirs, err := staging.ListDirectories(stagingDir)
			if err != nil {
				return fmt.Errorf("list staging folders: %w", err)
			}

			if ctx.JSONMode() {
				if dirs == nil {
					dirs = []staging.DirInfo{}
				}
				var totalSize int64
				for _, dir := range dirs {
					totalSize += dir.Size
				}
				return writeJSON(cmd, map[string]any{
					"staging_dir":      stagingDir,
					"directories":      dirs,
					"total_size_bytes": totalSize,
				})
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No staging folders found")
				return nil
			}

			fmt.Fprintf(out, "Staging directory: %s\n\n", stagingDir)

			var totalSize int64
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				age := time.Since(dir.ModTime).Truncate(time.Minute)
				totalSize += dir.Size
				rows = append(rows, []string{
					dir.Name,
					age.String(),
					humanize.IBytes(uint64(dir.Size)),
				})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Folder", "Age", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
			))
			fmt.Fprintf(out, "\nTotal: %d folders, %s\n", len(dirs), humanize.IBytes(uint64(totalSize)))
			return nil
		},
	}
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove staging folders no session references",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(func(s *stores) error {
				active, err := staging.ActiveFolders(cmd.Context(), s.store)
				if err != nil {
					return fmt.Errorf("load active sessions: %w", err)
				}

				out := cmd.OutOrStdout()
				if dryRun {
					dirs, err := staging.ListDirectories(s.cfg.Paths.StagingDir)
					if err != nil {
						return err
					}
					var orphans []string
					for _, dir := range dirs {
						if _, ok := active[dir.Name]; !ok {
							orphans = append(orphans, dir.Path)
						}
					}
					if len(orphans) == 0 {
						fmt.Fprintln(out, "Nothing to clean")
						return nil
					}
					fmt.Fprintf(out, "Would remove %d folders:\n", len(orphans))
					for _, path := range orphans {
						fmt.Fprintf(out, "  %s\n", path)
					}
					return nil
				}

				result := staging.CleanOrphaned(cmd.Context(), s.cfg.Paths.StagingDir, active, logging.NewNop())
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{
						"removed": result.Removed,
						"errors":  len(result.Errors),
					})
				}
				fmt.Fprintf(out, "Removed %d orphaned folders\n", len(result.Removed))
				for _, cleanupErr := range result.Errors {
					fmt.Fprintf(out, "  failed: %s: %v\n", cleanupErr.Path, cleanupErr.Error)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be removed without deleting")
	return cmd
}
