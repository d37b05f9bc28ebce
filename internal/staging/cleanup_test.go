package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"starstage/internal/logging"
)

func TestCleanOrphanedInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanOrphaned(context.Background(), dir, nil, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanOrphanedKeepsActiveFolders(t *testing.T) {
	tmpDir := t.TempDir()

	activeDir := filepath.Join(tmpDir, "m31-spring-1")
	if err := os.Mkdir(activeDir, 0o755); err != nil {
		t.Fatalf("create active dir: %v", err)
	}
	orphanDir := filepath.Join(tmpDir, "deleted-session-9")
	if err := os.Mkdir(orphanDir, 0o755); err != nil {
		t.Fatalf("create orphan dir: %v", err)
	}

	active := map[string]struct{}{"m31-spring-1": {}}
	result := CleanOrphaned(context.Background(), tmpDir, active, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != orphanDir {
		t.Fatalf("expected only the orphan removed, got %v", result.Removed)
	}
	if _, err := os.Stat(activeDir); err != nil {
		t.Error("active folder should still exist")
	}
	if _, err := os.Stat(orphanDir); !os.IsNotExist(err) {
		t.Error("orphan folder should have been removed")
	}
}

func TestCleanOrphanedIgnoresFiles(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(tmpDir, "stray.fits"), []byte("x"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}

	result := CleanOrphaned(context.Background(), tmpDir, nil, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Errorf("expected no removals for files, got %d", len(result.Removed))
	}
}

func TestListDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	dir := filepath.Join(tmpDir, "ngc891-3")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "light.fits"), []byte("12345"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}

	dirs, err := ListDirectories(tmpDir)
	if err != nil {
		t.Fatalf("ListDirectories failed: %v", err)
	}
	if len(dirs) != 1 || dirs[0].Name != "ngc891-3" || dirs[0].Size != 5 {
		t.Fatalf("unexpected result: %+v", dirs)
	}
}
