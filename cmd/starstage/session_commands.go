package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"starstage/internal/selection"
	"starstage/internal/sessions"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage processing sessions",
	}

	sessionCmd.AddCommand(newSessionCreateCommand(ctx))
	sessionCmd.AddCommand(newSessionAddCommand(ctx))
	sessionCmd.AddCommand(newSessionRemoveObjectCommand(ctx))
	sessionCmd.AddCommand(newSessionDeleteCommand(ctx))
	sessionCmd.AddCommand(newSessionStatusCommand(ctx))
	sessionCmd.AddCommand(newSessionListCommand(ctx))
	sessionCmd.AddCommand(newSessionShowCommand(ctx))

	return sessionCmd
}

// resolveMemberIDs combines explicit identifier arguments with an optional
// filter predicate resolved against the whole catalog through the selection
// tracker.
func resolveMemberIDs(cmd *cobra.Command, s *stores, args []string, flags *filterFlags) ([]int64, error) {
	ids, err := parseIDArgs(args)
	if err != nil {
		return nil, err
	}
	if flags.empty() {
		return ids, nil
	}

	filter, err := flags.build()
	if err != nil {
		return nil, err
	}
	tracker := selection.NewTracker()
	count, err := tracker.SelectAllFiltered(cmd.Context(), s.catalog, filter)
	if err != nil {
		return nil, fmt.Errorf("resolve filter: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Filter matched %d files\n", count)
	for _, id := range ids {
		tracker.Add(id)
	}
	return tracker.IDs(), nil
}

func newSessionCreateCommand(ctx *commandContext) *cobra.Command {
	var notes string
	flags := &filterFlags{}

	cmd := &cobra.Command{
		Use:   "create <name> [file-id...]",
		Short: "Create a processing session and stage its files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(func(s *stores) error {
				ids, err := resolveMemberIDs(cmd, s, args[1:], flags)
				if err != nil {
					return err
				}

				result, err := s.manager.Create(cmd.Context(), args[0], ids, notes)
				if err != nil {
					return err
				}

				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{
						"session":     result.Session,
						"requested":   result.Requested,
						"added":       result.Added,
						"skipped":     result.Skipped,
						"file_errors": fileErrorStrings(result.FileErrors),
					})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created session #%d (%s)\n", result.Session.ID, result.Session.Name)
				fmt.Fprintf(out, "Folder: %s\n", result.Session.FolderPath)
				fmt.Fprintf(out, "Staged %d of %d requested files", result.Added, result.Requested)
				if result.Skipped > 0 {
					fmt.Fprintf(out, " (%d unknown ids skipped)", result.Skipped)
				}
				fmt.Fprintln(out)
				printFileErrors(cmd, result.FileErrors)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "Free-form session notes")
	registerFilterFlags(flags, cmd)
	return cmd
}

func newSessionAddCommand(ctx *commandContext) *cobra.Command {
	flags := &filterFlags{}

	cmd := &cobra.Command{
		Use:   "add <session-id> [file-id...]",
		Short: "Add files to a processing session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStores(func(s *stores) error {
				ids, err := resolveMemberIDs(cmd, s, args[1:], flags)
				if err != nil {
					return err
				}
				if len(ids) == 0 {
					return fmt.Errorf("no files to add: pass file ids or filter flags")
				}

				result, err := s.manager.AddFiles(cmd.Context(), sessionID, ids)
				if err != nil {
					return err
				}

				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{
						"requested":       result.Requested,
						"added":           result.Added,
						"already_present": result.AlreadyPresent,
						"skipped":         result.Skipped,
						"file_errors":     fileErrorStrings(result.FileErrors),
					})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Added %d files (%d already present", result.Added, result.AlreadyPresent)
				if result.Skipped > 0 {
					fmt.Fprintf(out, ", %d unknown ids skipped", result.Skipped)
				}
				fmt.Fprintln(out, ")")
				printFileErrors(cmd, result.FileErrors)
				return nil
			})
		},
	}

	registerFilterFlags(flags, cmd)
	return cmd
}

func newSessionRemoveObjectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-object <session-id> <object>",
		Short: "Remove an object's lights and any orphaned calibration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStores(func(s *stores) error {
				result, err := s.manager.RemoveObject(cmd.Context(), sessionID, args[1])
				if err != nil {
					return err
				}

				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{
						"lights_removed":      result.LightsRemoved,
						"calibration_removed": result.CalibrationRemoved,
						"session_empty":       result.SessionEmpty,
						"file_errors":         fileErrorStrings(result.FileErrors),
					})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Removed %d lights and %d orphaned calibration files\n",
					result.LightsRemoved, result.CalibrationRemoved)
				if result.SessionEmpty {
					fmt.Fprintln(out, "Session has no light frames left; delete it with `starstage session delete` if it is no longer needed")
				}
				printFileErrors(cmd, result.FileErrors)
				return nil
			})
		},
	}
}

func newSessionDeleteCommand(ctx *commandContext) *cobra.Command {
	var removeFiles bool

	cmd := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a processing session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStores(func(s *stores) error {
				if err := s.manager.Delete(cmd.Context(), sessionID, removeFiles); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted session #%d (files removed from disk: %s)\n",
					sessionID, yesNo(removeFiles))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&removeFiles, "remove-files", false, "Also delete the staging folder from disk")
	return cmd
}

func newSessionStatusCommand(ctx *commandContext) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "status <session-id> <not_started|in_progress|complete>",
		Short: "Set a session's progress status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			status, ok := sessions.ParseStatus(args[1])
			if !ok {
				return fmt.Errorf("unknown status %q", args[1])
			}
			return ctx.withStores(func(s *stores) error {
				session, err := s.manager.SetStatus(cmd.Context(), sessionID, status, notes)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, session)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Session #%d is now %s\n", session.ID, session.Status)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "Replace the session notes")
	return cmd
}

func newSessionListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List processing sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []sessions.Status
			if strings.TrimSpace(statusFlag) != "" {
				status, ok := sessions.ParseStatus(statusFlag)
				if !ok {
					return fmt.Errorf("unknown status %q", statusFlag)
				}
				statuses = append(statuses, status)
			}

			return ctx.withStores(func(s *stores) error {
				list, err := s.manager.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}

				if ctx.JSONMode() {
					if list == nil {
						list = []*sessions.ProcessingSession{}
					}
					return writeJSON(cmd, list)
				}

				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No processing sessions")
					return nil
				}

				rows := make([][]string, 0, len(list))
				for _, session := range list {
					rows = append(rows, []string{
						fmt.Sprintf("%d", session.ID),
						session.Name,
						string(session.Status),
						session.CreatedAt.Local().Format("2006-01-02 15:04"),
						session.FolderPath,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Name", "Status", "Created", "Folder"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Only show sessions with this status")
	return cmd
}

func newSessionShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session's membership breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStores(func(s *stores) error {
				detail, err := s.manager.Detail(cmd.Context(), sessionID)
				if err != nil {
					return err
				}

				if ctx.JSONMode() {
					return writeJSON(cmd, detail)
				}

				out := cmd.OutOrStdout()
				session := detail.Session
				fmt.Fprintf(out, "Session #%d: %s\n", session.ID, session.Name)
				fmt.Fprintf(out, "Status: %s\n", session.Status)
				fmt.Fprintf(out, "Folder: %s\n", session.FolderPath)
				if session.Notes != "" {
					fmt.Fprintf(out, "Notes: %s\n", session.Notes)
				}
				fmt.Fprintf(out, "Members: %d lights, %d calibration\n",
					len(detail.Lights), len(detail.Calibration))

				if len(detail.Objects) > 0 {
					rows := make([][]string, 0, len(detail.Objects))
					for _, object := range sortedKeys(detail.Objects) {
						rows = append(rows, []string{object, fmt.Sprintf("%d", detail.Objects[object])})
					}
					fmt.Fprintln(out, renderTable(
						[]string{"Object", "Lights"},
						rows,
						[]columnAlignment{alignLeft, alignRight},
					))
				}
				if len(detail.Filters) > 0 {
					rows := make([][]string, 0, len(detail.Filters))
					for _, filter := range sortedKeys(detail.Filters) {
						rows = append(rows, []string{filter, fmt.Sprintf("%d", detail.Filters[filter])})
					}
					fmt.Fprintln(out, renderTable(
						[]string{"Filter", "Lights"},
						rows,
						[]columnAlignment{alignLeft, alignRight},
					))
				}
				return nil
			})
		},
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func fileErrorStrings(failures []sessions.FileError) []string {
	out := make([]string, 0, len(failures))
	for _, failure := range failures {
		out = append(out, fmt.Sprintf("%s: %v", failure.Path, failure.Err))
	}
	return out
}

func printFileErrors(cmd *cobra.Command, failures []sessions.FileError) {
	if len(failures) == 0 {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d files could not be staged:\n", len(failures))
	for _, failure := range failures {
		fmt.Fprintf(out, "  %s: %v\n", failure.Path, failure.Err)
	}
}
