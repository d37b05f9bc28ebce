package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"starstage/internal/fileutil"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.fits")
	dst := filepath.Join(dir, "dst.fits")
	writeFile(t, src, "SIMPLE  =                    T")

	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		t.Fatalf("CopyFileVerified failed: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(got) != "SIMPLE  =                    T" {
		t.Fatalf("unexpected dst contents: %q", got)
	}
}

func TestCopyFileVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := fileutil.CopyFileVerified(filepath.Join(dir, "missing.fits"), filepath.Join(dir, "out.fits"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestLinkOrCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.fits")
	dst := filepath.Join(dir, "dst.fits")
	writeFile(t, src, "frame data")

	if err := fileutil.LinkOrCopy(src, dst); err != nil {
		t.Fatalf("LinkOrCopy failed: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(got) != "frame data" {
		t.Fatalf("unexpected dst contents: %q", got)
	}
}

func TestLinkOrCopyMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := fileutil.LinkOrCopy(filepath.Join(dir, "nope.fits"), filepath.Join(dir, "dst.fits")); err == nil {
		t.Fatal("expected error for missing source")
	}
}
