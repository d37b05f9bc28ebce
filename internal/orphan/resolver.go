// Package orphan decides which calibration members of a processing session
// are no longer referenced by any remaining light member.
//
// The computation is a pure set difference over live membership: callers pass
// the calibration members and the light members that remain after a removal,
// and receive the identifiers to drop. Nothing is cached, so the answer can
// never be stale.
package orphan

import (
	"sort"

	"starstage/internal/catalog"
)

type rigKey struct {
	camera    string
	telescope string
}

type flatKey struct {
	rigKey
	filter string
}

// Find returns the identifiers of calibration files no calibration consumer
// remains for. A dark or bias frame survives while any remaining light shares
// its camera and telescope; a flat additionally needs a remaining light shot
// through its filter. With zero remaining lights every calibration member is
// orphaned. The result is sorted ascending for deterministic output.
func Find(calibration []*catalog.FitsFile, remainingLights []*catalog.FitsFile) []int64 {
	rigs := make(map[rigKey]struct{}, len(remainingLights))
	flats := make(map[flatKey]struct{}, len(remainingLights))
	for _, light := range remainingLights {
		rig := rigKey{camera: light.Camera, telescope: light.Telescope}
		rigs[rig] = struct{}{}
		flats[flatKey{rigKey: rig, filter: light.Filter}] = struct{}{}
	}

	var orphaned []int64
	for _, file := range calibration {
		if !file.FrameType.IsCalibration() {
			continue
		}
		rig := rigKey{camera: file.Camera, telescope: file.Telescope}
		referenced := false
		switch file.FrameType {
		case catalog.FrameFlat:
			_, referenced = flats[flatKey{rigKey: rig, filter: file.Filter}]
		default:
			_, referenced = rigs[rig]
		}
		if !referenced {
			orphaned = append(orphaned, file.ID)
		}
	}

	sort.Slice(orphaned, func(i, j int) bool { return orphaned[i] < orphaned[j] })
	return orphaned
}
