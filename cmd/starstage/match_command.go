package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"starstage/internal/catalog"
	"starstage/internal/matching"
)

func newMatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "match <session-id>",
		Short: "Find candidate calibration groups for a session's lights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionID, err := parseSessionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStores(func(s *stores) error {
				groups, err := s.engine.FindCalibrationMatches(cmd.Context(), sessionID)
				if err != nil {
					return err
				}

				if ctx.JSONMode() {
					return writeJSON(cmd, groups)
				}

				out := cmd.OutOrStdout()
				if len(groups) == 0 {
					fmt.Fprintln(out, "No calibration candidates found")
					return nil
				}

				for _, frameType := range catalog.CalibrationFrameTypes() {
					candidates, ok := groups[frameType]
					if !ok {
						continue
					}
					fmt.Fprintf(out, "%s candidates:\n", frameType)
					rows := make([][]string, 0, len(candidates))
					for _, group := range candidates {
						rows = append(rows, []string{
							group.CaptureDate.Format("2006-01-02"),
							group.Camera,
							group.Telescope,
							group.Filter,
							fmt.Sprintf("%d", group.Count),
							fmt.Sprintf("%d", group.DistanceDays),
							describeExposures(group),
						})
					}
					fmt.Fprintln(out, renderTable(
						[]string{"Date", "Camera", "Telescope", "Filter", "Files", "Distance", "Exposures"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
					))
				}
				fmt.Fprintln(out, "Add a group with `starstage session add <session-id> <file-id...>`")
				return nil
			})
		},
	}
}

// describeExposures renders a dark group's exposure histogram, marking
// whether any bucket matches the session's light exposures.
func describeExposures(group matching.Group) string {
	if len(group.ExposureCounts) == 0 {
		return ""
	}
	exposures := make([]float64, 0, len(group.ExposureCounts))
	for exposure := range group.ExposureCounts {
		exposures = append(exposures, exposure)
	}
	sort.Float64s(exposures)

	parts := make([]string, 0, len(exposures))
	for _, exposure := range exposures {
		parts = append(parts, fmt.Sprintf("%s x%d", formatExposure(exposure), group.ExposureCounts[exposure]))
	}
	summary := strings.Join(parts, ", ")
	if group.MatchesLightExposure {
		summary += " (matches lights)"
	}
	return summary
}
