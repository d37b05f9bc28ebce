package matching

import (
	"sort"
	"time"

	"starstage/internal/catalog"
)

// Group is one candidate calibration set: the files of one frame type taken
// with one camera+telescope combination on one capture date. Groups are
// ephemeral; they are recomputed on every request because the catalog can
// change between requests.
type Group struct {
	FrameType        catalog.FrameType
	ImagingSessionID int64 // zero when the files carry no imaging session
	CaptureDate      time.Time
	Camera           string
	Telescope        string
	Filter           string // set for flat groups
	FileIDs          []int64
	Count            int
	ExposureCounts   map[float64]int // set for dark groups
	// MatchesLightExposure marks dark groups containing at least one
	// exposure time also used by the session's light frames.
	MatchesLightExposure bool
	// DistanceDays is the calendar-day distance from the light frames'
	// median capture date; groups are ordered by it ascending.
	DistanceDays int
}

// orderGroups sorts candidate groups so the most plausible match comes
// first: nearest capture date, then (for darks) matching exposure times,
// then largest file count. Remaining ties fall back to stable identifiers
// so identical inputs always produce identical output.
func orderGroups(groups []Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.DistanceDays != b.DistanceDays {
			return a.DistanceDays < b.DistanceDays
		}
		if a.MatchesLightExposure != b.MatchesLightExposure {
			return a.MatchesLightExposure
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if !a.CaptureDate.Equal(b.CaptureDate) {
			return a.CaptureDate.Before(b.CaptureDate)
		}
		if a.Filter != b.Filter {
			return a.Filter < b.Filter
		}
		return a.ImagingSessionID < b.ImagingSessionID
	})
}
