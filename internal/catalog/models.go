package catalog

import (
	"strings"
	"time"
)

// FrameType classifies a FITS frame.
type FrameType string

const (
	FrameLight FrameType = "LIGHT"
	FrameDark  FrameType = "DARK"
	FrameFlat  FrameType = "FLAT"
	FrameBias  FrameType = "BIAS"
)

var allFrameTypes = []FrameType{FrameLight, FrameDark, FrameFlat, FrameBias}

// CalibrationFrameTypes returns the frame types used to correct light frames.
func CalibrationFrameTypes() []FrameType {
	return []FrameType{FrameDark, FrameFlat, FrameBias}
}

// ParseFrameType converts a string into a known FrameType.
func ParseFrameType(value string) (FrameType, bool) {
	normalized := FrameType(strings.ToUpper(strings.TrimSpace(value)))
	for _, ft := range allFrameTypes {
		if ft == normalized {
			return ft, true
		}
	}
	return "", false
}

// IsCalibration reports whether the frame corrects light frames.
func (f FrameType) IsCalibration() bool {
	switch f {
	case FrameDark, FrameFlat, FrameBias:
		return true
	default:
		return false
	}
}

// FitsFile is a catalog entry for one ingested FITS frame. Entries are
// immutable once ingested except for StagingPath, which the staging manager
// maintains.
type FitsFile struct {
	ID               int64
	Path             string
	FrameType        FrameType
	Object           string // empty for calibration frames
	Camera           string
	Telescope        string
	Filter           string // empty for unfiltered frames
	ExposureSeconds  float64
	CapturedAt       time.Time
	ImagingSessionID int64 // zero when the owning session is unknown
	StagingPath      string
	CreatedAt        time.Time
}

// CaptureDate returns the UTC calendar date of the capture timestamp.
func (f FitsFile) CaptureDate() time.Time {
	return DateOf(f.CapturedAt)
}

// ImagingSession groups files captured with one camera+telescope combination
// on one observing date.
type ImagingSession struct {
	ID        int64
	Date      time.Time
	Camera    string
	Telescope string
	Site      string
	Observer  string
	CreatedAt time.Time
}

// DateOf truncates a timestamp to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
