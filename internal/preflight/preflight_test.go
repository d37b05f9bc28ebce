package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"starstage/internal/testsupport"
)

func TestCheckDirectoryAccessOK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccessNotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccessNotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	result := CheckFreeSpace("test", t.TempDir(), 1)
	if !result.Passed {
		t.Fatalf("expected at least one free byte, got: %s", result.Detail)
	}

	result = CheckFreeSpace("test", filepath.Join(t.TempDir(), "nope"), 1)
	if result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestCheckCatalog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cat := testsupport.MustOpenCatalog(t, cfg)

	result := CheckCatalog(context.Background(), cat)
	if !result.Passed {
		t.Fatalf("expected healthy catalog, got: %s", result.Detail)
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cat := testsupport.MustOpenCatalog(t, cfg)

	results := RunAll(context.Background(), cfg, cat)
	if len(results) == 0 {
		t.Fatal("expected at least one check result")
	}
	for _, result := range results {
		if !result.Passed {
			t.Errorf("check %q failed: %s", result.Name, result.Detail)
		}
	}
}
