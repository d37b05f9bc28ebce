package testsupport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"starstage/internal/catalog"
)

// FrameSpec describes a frame to seed into the test catalog.
type FrameSpec struct {
	FrameType        catalog.FrameType
	Object           string
	Camera           string
	Telescope        string
	Filter           string
	ExposureSeconds  float64
	CapturedAt       time.Time
	ImagingSessionID int64
}

// SeedImagingSession inserts an imaging session for tests.
func SeedImagingSession(t testing.TB, store *catalog.Store, date time.Time, camera, telescope string) *catalog.ImagingSession {
	t.Helper()

	session, err := store.InsertImagingSession(context.Background(), &catalog.ImagingSession{
		Date:      date,
		Camera:    camera,
		Telescope: telescope,
	})
	if err != nil {
		t.Fatalf("InsertImagingSession: %v", err)
	}
	return session
}

// SeedFrame writes a small placeholder file on disk and inserts a matching
// catalog entry so staging operations have something real to copy.
func SeedFrame(t testing.TB, store *catalog.Store, dir string, spec FrameSpec) *catalog.FitsFile {
	t.Helper()

	if spec.Camera == "" {
		spec.Camera = "ASI2600MM"
	}
	if spec.Telescope == "" {
		spec.Telescope = "RC8"
	}
	if spec.ExposureSeconds == 0 {
		spec.ExposureSeconds = 120
	}
	if spec.CapturedAt.IsZero() {
		spec.CapturedAt = time.Date(2024, 5, 1, 22, 0, 0, 0, time.UTC)
	}

	name := fmt.Sprintf("%s_%s_%d.fits", spec.FrameType, spec.CapturedAt.Format("20060102T150405"), time.Now().UnixNano())
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte("SIMPLE  =                    T"), 0o644); err != nil {
		t.Fatalf("write frame file: %v", err)
	}

	file, err := store.InsertFile(context.Background(), &catalog.FitsFile{
		Path:             path,
		FrameType:        spec.FrameType,
		Object:           spec.Object,
		Camera:           spec.Camera,
		Telescope:        spec.Telescope,
		Filter:           spec.Filter,
		ExposureSeconds:  spec.ExposureSeconds,
		CapturedAt:       spec.CapturedAt,
		ImagingSessionID: spec.ImagingSessionID,
	})
	if err != nil {
		t.Fatalf("InsertFile: %v", err)
	}
	return file
}
