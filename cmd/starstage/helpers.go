package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"starstage/internal/catalog"
)

// parseIDArgs converts positional arguments into file identifiers. Accepts
// both space- and comma-separated lists.
func parseIDArgs(args []string) ([]int64, error) {
	var ids []int64
	for _, arg := range args {
		for _, token := range strings.Split(arg, ",") {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			id, err := strconv.ParseInt(token, 10, 64)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("invalid file id %q", token)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func parseSessionID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid session id %q", arg)
	}
	return id, nil
}

// filterFlags collects catalog filter criteria shared by commands that
// resolve files by predicate instead of explicit identifiers.
type filterFlags struct {
	frameType string
	object    string
	camera    string
	telescope string
	filter    string
	from      string
	to        string
}

func (f *filterFlags) empty() bool {
	return f.frameType == "" && f.object == "" && f.camera == "" &&
		f.telescope == "" && f.filter == "" && f.from == "" && f.to == ""
}

func (f *filterFlags) build() (catalog.Filter, error) {
	var result catalog.Filter
	if f.frameType != "" {
		ft, ok := catalog.ParseFrameType(f.frameType)
		if !ok {
			return result, fmt.Errorf("unknown frame type %q", f.frameType)
		}
		result.FrameType = ft
	}
	result.Object = strings.TrimSpace(f.object)
	result.Camera = strings.TrimSpace(f.camera)
	result.Telescope = strings.TrimSpace(f.telescope)
	result.Filter = strings.TrimSpace(f.filter)

	var err error
	if result.From, err = parseDateFlag(f.from); err != nil {
		return result, err
	}
	if result.To, err = parseDateFlag(f.to); err != nil {
		return result, err
	}
	return result, nil
}

func parseDateFlag(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", value)
	}
	return parsed, nil
}

func registerFilterFlags(flags *filterFlags, cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&flags.frameType, "frame-type", "", "Filter by frame type (light|dark|flat|bias)")
	f.StringVar(&flags.object, "object", "", "Filter by object name")
	f.StringVar(&flags.camera, "camera", "", "Filter by camera")
	f.StringVar(&flags.telescope, "telescope", "", "Filter by telescope")
	f.StringVar(&flags.filter, "filter", "", "Filter by optical filter")
	f.StringVar(&flags.from, "from", "", "Earliest capture date (YYYY-MM-DD)")
	f.StringVar(&flags.to, "to", "", "Latest capture date (YYYY-MM-DD)")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func formatExposure(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64) + "s"
}
