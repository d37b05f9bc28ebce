package catalog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"starstage/internal/services"
)

// ManifestEntry is one frame in an ingestion manifest.
type ManifestEntry struct {
	Path            string    `toml:"path"`
	FrameType       string    `toml:"frame_type"`
	Object          string    `toml:"object"`
	Camera          string    `toml:"camera"`
	Telescope       string    `toml:"telescope"`
	Filter          string    `toml:"filter"`
	ExposureSeconds float64   `toml:"exposure_seconds"`
	CapturedAt      time.Time `toml:"captured_at"`
}

// Manifest is a TOML ingestion manifest: a flat list of frames. Imaging
// sessions are derived, not declared; frames sharing a capture date, camera,
// and telescope land in the same imaging session.
type Manifest struct {
	Files []ManifestEntry `toml:"files"`
}

// LoadManifest reads and parses a TOML ingestion manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "catalog", "load manifest", path, err)
	}
	var manifest Manifest
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil, services.Wrap(services.ErrValidation, "catalog", "load manifest", path, err)
	}
	return &manifest, nil
}

// ImportResult summarizes a manifest import.
type ImportResult struct {
	FilesImported   int
	SessionsCreated int
}

type importSessionKey struct {
	date      string
	camera    string
	telescope string
}

// ImportManifest validates manifest entries and inserts them, creating one
// imaging session per capture-date+camera+telescope combination.
func (s *Store) ImportManifest(ctx context.Context, manifest *Manifest) (*ImportResult, error) {
	if manifest == nil || len(manifest.Files) == 0 {
		return nil, services.Wrap(services.ErrValidation, "catalog", "import", "manifest has no files", nil)
	}

	result := &ImportResult{}
	imagingSessions := make(map[importSessionKey]int64)

	for i, entry := range manifest.Files {
		frameType, ok := ParseFrameType(entry.FrameType)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "catalog", "import",
				fmt.Sprintf("file %d: unknown frame type %q", i+1, entry.FrameType), nil)
		}
		if strings.TrimSpace(entry.Path) == "" {
			return nil, services.Wrap(services.ErrValidation, "catalog", "import",
				fmt.Sprintf("file %d: path is empty", i+1), nil)
		}
		if entry.CapturedAt.IsZero() {
			return nil, services.Wrap(services.ErrValidation, "catalog", "import",
				fmt.Sprintf("file %d: captured_at is required", i+1), nil)
		}
		if frameType == FrameLight && strings.TrimSpace(entry.Object) == "" {
			return nil, services.Wrap(services.ErrValidation, "catalog", "import",
				fmt.Sprintf("file %d: light frames require an object", i+1), nil)
		}

		key := importSessionKey{
			date:      DateOf(entry.CapturedAt).Format(dateFormat),
			camera:    entry.Camera,
			telescope: entry.Telescope,
		}
		imagingSessionID, ok := imagingSessions[key]
		if !ok {
			session, err := s.InsertImagingSession(ctx, &ImagingSession{
				Date:      DateOf(entry.CapturedAt),
				Camera:    entry.Camera,
				Telescope: entry.Telescope,
			})
			if err != nil {
				return nil, services.Wrap(services.ErrStore, "catalog", "import", "create imaging session", err)
			}
			imagingSessionID = session.ID
			imagingSessions[key] = imagingSessionID
			result.SessionsCreated++
		}

		if _, err := s.InsertFile(ctx, &FitsFile{
			Path:             entry.Path,
			FrameType:        frameType,
			Object:           entry.Object,
			Camera:           entry.Camera,
			Telescope:        entry.Telescope,
			Filter:           entry.Filter,
			ExposureSeconds:  entry.ExposureSeconds,
			CapturedAt:       entry.CapturedAt,
			ImagingSessionID: imagingSessionID,
		}); err != nil {
			return nil, services.Wrap(services.ErrStore, "catalog", "import", entry.Path, err)
		}
		result.FilesImported++
	}

	return result, nil
}
