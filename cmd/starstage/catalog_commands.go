package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"starstage/internal/catalog"
	"starstage/internal/config"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and populate the FITS catalog",
	}

	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	catalogCmd.AddCommand(newCatalogImportCommand(ctx))

	return catalogCmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	flags := &filterFlags{}
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cataloged FITS files",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.build()
			if err != nil {
				return err
			}
			return ctx.withStores(func(s *stores) error {
				files, err := s.catalog.ListFiles(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if limit > 0 && len(files) > limit {
					files = files[:limit]
				}

				if ctx.JSONMode() {
					if files == nil {
						files = []*catalog.FitsFile{}
					}
					return writeJSON(cmd, files)
				}

				out := cmd.OutOrStdout()
				if len(files) == 0 {
					fmt.Fprintln(out, "No matching files")
					return nil
				}

				rows := make([][]string, 0, len(files))
				for _, file := range files {
					rows = append(rows, []string{
						fmt.Sprintf("%d", file.ID),
						string(file.FrameType),
						file.Object,
						filepath.Base(file.Path),
						file.Camera,
						file.Filter,
						formatExposure(file.ExposureSeconds),
						file.CapturedAt.UTC().Format("2006-01-02 15:04"),
						yesNo(file.StagingPath != ""),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Type", "Object", "File", "Camera", "Filter", "Exposure", "Captured", "Staged"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	registerFilterFlags(flags, cmd)
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows to display (0 shows all)")
	return cmd
}

func newCatalogImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <manifest.toml>",
		Short: "Import frames into the catalog from a TOML manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			manifest, err := catalog.LoadManifest(path)
			if err != nil {
				return err
			}
			return ctx.withStores(func(s *stores) error {
				result, err := s.catalog.ImportManifest(cmd.Context(), manifest)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{
						"files_imported":   result.FilesImported,
						"sessions_created": result.SessionsCreated,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d files across %d imaging sessions\n",
					result.FilesImported, result.SessionsCreated)
				return nil
			})
		},
	}
}
