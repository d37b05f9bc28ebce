package sessions

import (
	"strings"
	"time"
)

// Status represents user-declared progress on a processing session. It is not
// derived from membership; no transition is auto-triggered by adding or
// removing files.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
)

var allStatuses = []Status{StatusNotStarted, StatusInProgress, StatusComplete}

var allowedTransitions = map[Status][]Status{
	StatusNotStarted: {StatusInProgress},
	StatusInProgress: {StatusComplete, StatusNotStarted},
	StatusComplete:   {StatusInProgress},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// CanTransition reports whether moving from one status to another is allowed.
// A same-status "transition" is permitted so callers can update notes without
// changing progress.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// ProcessingSession is a user-curated staging set of light frames plus
// matched calibration frames, backed by a materialized folder on disk.
type ProcessingSession struct {
	ID         int64
	Name       string
	Status     Status
	Notes      string
	FolderPath string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
