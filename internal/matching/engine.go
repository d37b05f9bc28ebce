package matching

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"starstage/internal/catalog"
	"starstage/internal/config"
	"starstage/internal/logging"
	"starstage/internal/services"
	"starstage/internal/sessions"
)

// Engine computes candidate calibration groups for a processing session's
// light frames. It is a pure read: no catalog or session state is mutated,
// and results are never cached.
type Engine struct {
	cfg      *config.Config
	catalog  *catalog.Store
	sessions *sessions.Store
	logger   *slog.Logger
}

// NewEngine constructs a matching engine with initialized dependencies.
func NewEngine(cfg *config.Config, cat *catalog.Store, store *sessions.Store, logger *slog.Logger) (*Engine, error) {
	if cfg == nil || cat == nil || store == nil {
		return nil, errors.New("engine requires config, catalog store, and session store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		cfg:      cfg,
		catalog:  cat,
		sessions: store,
		logger:   logging.WithComponent(logger, "matching"),
	}, nil
}

type rigKey struct {
	camera    string
	telescope string
}

type rigInfo struct {
	captures  []time.Time
	exposures map[float64]struct{}
	filters   map[string]struct{}
}

type groupKey struct {
	imagingSessionID int64
	date             string
	filter           string
}

// FindCalibrationMatches returns candidate calibration groups per needed
// frame type for the session's light members. Frame types with no non-empty
// groups are absent from the map, so callers distinguish "nothing found" by
// key absence. Fails with the not-found marker when the session does not
// exist or has no light members.
func (e *Engine) FindCalibrationMatches(ctx context.Context, sessionID int64) (map[catalog.FrameType][]Group, error) {
	session, err := e.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, e.storeErr("load session", err)
	}
	if session == nil {
		return nil, services.Wrap(services.ErrNotFound, "matching", "find", "no such processing session", nil)
	}

	memberIDs, err := e.sessions.MemberIDs(ctx, sessionID)
	if err != nil {
		return nil, e.storeErr("load membership", err)
	}
	members, err := e.catalog.FilesByIDs(ctx, memberIDs)
	if err != nil {
		return nil, e.storeErr("resolve members", err)
	}

	rigs := make(map[rigKey]*rigInfo)
	for _, file := range members {
		if file.FrameType != catalog.FrameLight {
			continue
		}
		key := rigKey{camera: file.Camera, telescope: file.Telescope}
		info, ok := rigs[key]
		if !ok {
			info = &rigInfo{
				exposures: make(map[float64]struct{}),
				filters:   make(map[string]struct{}),
			}
			rigs[key] = info
		}
		info.captures = append(info.captures, file.CapturedAt)
		info.exposures[file.ExposureSeconds] = struct{}{}
		info.filters[file.Filter] = struct{}{}
	}
	if len(rigs) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "matching", "find", "session has no light members", nil)
	}

	results := make(map[catalog.FrameType][]Group)
	for rig, info := range rigs {
		median := medianDate(info.captures)
		from, to := e.window(info.captures)

		for _, frameType := range catalog.CalibrationFrameTypes() {
			candidates, err := e.catalog.ListCalibration(ctx, frameType, rig.camera, rig.telescope, from, to)
			if err != nil {
				return nil, e.storeErr("query calibration", err)
			}
			if frameType == catalog.FrameFlat {
				candidates = flatsForFilters(candidates, info.filters)
			}
			groups := buildGroups(frameType, rig, candidates, info, median)
			results[frameType] = append(results[frameType], groups...)
		}
	}

	for frameType, groups := range results {
		if len(groups) == 0 {
			delete(results, frameType)
			continue
		}
		orderGroups(groups)
	}

	e.logger.Debug("calibration matching completed",
		logging.Int64(logging.FieldSessionID, sessionID),
		logging.Int("rigs", len(rigs)),
		logging.Int("frame_types", len(results)),
	)
	return results, nil
}

// window derives the inclusive capture-date range for calibration queries:
// the lights' exact date range widened by the configured tolerance.
func (e *Engine) window(captures []time.Time) (time.Time, time.Time) {
	min, max := captures[0], captures[0]
	for _, t := range captures[1:] {
		if t.Before(min) {
			min = t
		}
		if t.After(max) {
			max = t
		}
	}
	tolerance := e.cfg.Matching.DateToleranceDays
	from := catalog.DateOf(min).AddDate(0, 0, -tolerance)
	to := catalog.DateOf(max).AddDate(0, 0, tolerance).Add(24*time.Hour - time.Second)
	return from, to
}

func (e *Engine) storeErr(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "matching", operation, "deadline exceeded", err)
	}
	return services.Wrap(services.ErrStore, "matching", operation, "", err)
}

// flatsForFilters keeps only flats shot through a filter actually used by
// the session's lights. Unfiltered lights carry the empty filter, so
// unfiltered flats pair with them the same way the orphan resolver keeps them
// referenced. A flat group for an unused filter must never be offered.
func flatsForFilters(candidates []*catalog.FitsFile, filters map[string]struct{}) []*catalog.FitsFile {
	kept := candidates[:0]
	for _, file := range candidates {
		if _, ok := filters[file.Filter]; ok {
			kept = append(kept, file)
		}
	}
	return kept
}

// buildGroups buckets candidate files by the imaging session that produced
// them: a user reasons about "the calibration set taken on night X", not
// individual frames. Files without an imaging session fall back to their
// capture date.
func buildGroups(frameType catalog.FrameType, rig rigKey, candidates []*catalog.FitsFile, info *rigInfo, median time.Time) []Group {
	buckets := make(map[groupKey][]*catalog.FitsFile)
	var order []groupKey
	for _, file := range candidates {
		key := groupKey{imagingSessionID: file.ImagingSessionID}
		if frameType == catalog.FrameFlat {
			key.filter = file.Filter
		}
		if key.imagingSessionID == 0 {
			key.date = file.CaptureDate().Format("2006-01-02")
		}
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], file)
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		files := buckets[key]
		group := Group{
			FrameType:        frameType,
			ImagingSessionID: key.imagingSessionID,
			CaptureDate:      files[0].CaptureDate(),
			Camera:           rig.camera,
			Telescope:        rig.telescope,
			Filter:           key.filter,
			Count:            len(files),
		}
		for _, file := range files {
			group.FileIDs = append(group.FileIDs, file.ID)
		}
		sort.Slice(group.FileIDs, func(i, j int) bool { return group.FileIDs[i] < group.FileIDs[j] })

		if frameType == catalog.FrameDark {
			group.ExposureCounts = make(map[float64]int)
			for _, file := range files {
				group.ExposureCounts[file.ExposureSeconds]++
				if _, ok := info.exposures[file.ExposureSeconds]; ok {
					group.MatchesLightExposure = true
				}
			}
		}
		group.DistanceDays = dayDistance(group.CaptureDate, median)
		groups = append(groups, group)
	}
	return groups
}

// medianDate returns the calendar date of the median capture timestamp.
func medianDate(captures []time.Time) time.Time {
	sorted := make([]time.Time, len(captures))
	copy(sorted, captures)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	n := len(sorted)
	if n%2 == 1 {
		return catalog.DateOf(sorted[n/2])
	}
	lower, upper := sorted[n/2-1], sorted[n/2]
	mid := lower.Add(upper.Sub(lower) / 2)
	return catalog.DateOf(mid)
}

func dayDistance(a, b time.Time) int {
	diff := catalog.DateOf(a).Sub(catalog.DateOf(b))
	if diff < 0 {
		diff = -diff
	}
	return int(diff / (24 * time.Hour))
}
