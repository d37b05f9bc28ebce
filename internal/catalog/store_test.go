package catalog_test

import (
	"context"
	"testing"
	"time"

	"starstage/internal/catalog"
	"starstage/internal/testsupport"
)

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	ctx := context.Background()
	file := testsupport.SeedFrame(t, store, t.TempDir(), testsupport.FrameSpec{
		FrameType: catalog.FrameLight,
		Object:    "M31",
		Filter:    "HA",
	})
	if file.ID == 0 {
		t.Fatal("expected file ID to be assigned")
	}

	fetched, err := store.GetFile(ctx, file.ID)
	if err != nil {
		t.Fatalf("GetFile failed: %v", err)
	}
	if fetched == nil || fetched.Object != "M31" || fetched.FrameType != catalog.FrameLight {
		t.Fatalf("unexpected fetched file: %#v", fetched)
	}
}

func TestGetFileAbsentReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	file, err := store.GetFile(context.Background(), 9999)
	if err != nil {
		t.Fatalf("GetFile failed: %v", err)
	}
	if file != nil {
		t.Fatalf("expected nil for absent file, got %#v", file)
	}
}

func TestFilesByIDsSkipsUnknown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	a := testsupport.SeedFrame(t, store, t.TempDir(), testsupport.FrameSpec{FrameType: catalog.FrameLight, Object: "M31"})
	b := testsupport.SeedFrame(t, store, t.TempDir(), testsupport.FrameSpec{FrameType: catalog.FrameDark})

	files, err := store.FilesByIDs(context.Background(), []int64{a.ID, 424242, b.ID})
	if err != nil {
		t.Fatalf("FilesByIDs failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 resolved files, got %d", len(files))
	}
}

func TestListCalibrationScopesRigAndWindow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	dir := t.TempDir()

	night := time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC)
	inWindow := testsupport.SeedFrame(t, store, dir, testsupport.FrameSpec{
		FrameType: catalog.FrameDark, CapturedAt: night,
	})
	testsupport.SeedFrame(t, store, dir, testsupport.FrameSpec{
		FrameType: catalog.FrameDark, CapturedAt: night.AddDate(0, 0, 5),
	})
	testsupport.SeedFrame(t, store, dir, testsupport.FrameSpec{
		FrameType: catalog.FrameDark, Camera: "ASI533MC", CapturedAt: night,
	})

	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 1, 23, 59, 59, 0, time.UTC)
	files, err := store.ListCalibration(context.Background(), catalog.FrameDark, "ASI2600MM", "RC8", from, to)
	if err != nil {
		t.Fatalf("ListCalibration failed: %v", err)
	}
	if len(files) != 1 || files[0].ID != inWindow.ID {
		t.Fatalf("expected only the in-window same-rig dark, got %#v", files)
	}
}

func TestListCalibrationRejectsLightFrameType(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	_, err := store.ListCalibration(context.Background(), catalog.FrameLight, "ASI2600MM", "RC8", time.Now(), time.Now())
	if err == nil {
		t.Fatal("expected error for non-calibration frame type")
	}
}

func TestListFileIDsAppliesFilter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	dir := t.TempDir()

	ha := testsupport.SeedFrame(t, store, dir, testsupport.FrameSpec{FrameType: catalog.FrameLight, Object: "M31", Filter: "HA"})
	testsupport.SeedFrame(t, store, dir, testsupport.FrameSpec{FrameType: catalog.FrameLight, Object: "M31", Filter: "OIII"})
	testsupport.SeedFrame(t, store, dir, testsupport.FrameSpec{FrameType: catalog.FrameDark})

	ids, err := store.ListFileIDs(context.Background(), catalog.Filter{
		FrameType: catalog.FrameLight,
		Filter:    "HA",
	})
	if err != nil {
		t.Fatalf("ListFileIDs failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != ha.ID {
		t.Fatalf("expected [%d], got %v", ha.ID, ids)
	}

	count, err := store.CountFiles(context.Background(), catalog.Filter{FrameType: catalog.FrameLight})
	if err != nil {
		t.Fatalf("CountFiles failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 lights, got %d", count)
	}
}

func TestSetStagingPathRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	file := testsupport.SeedFrame(t, store, t.TempDir(), testsupport.FrameSpec{FrameType: catalog.FrameLight, Object: "M31"})

	ctx := context.Background()
	if err := store.SetStagingPath(ctx, file.ID, "/staging/m31/light.fits"); err != nil {
		t.Fatalf("SetStagingPath failed: %v", err)
	}
	fetched, err := store.GetFile(ctx, file.ID)
	if err != nil {
		t.Fatalf("GetFile failed: %v", err)
	}
	if fetched.StagingPath != "/staging/m31/light.fits" {
		t.Fatalf("expected staging path persisted, got %q", fetched.StagingPath)
	}

	if err := store.SetStagingPath(ctx, file.ID, ""); err != nil {
		t.Fatalf("clear staging path failed: %v", err)
	}
	fetched, err = store.GetFile(ctx, file.ID)
	if err != nil {
		t.Fatalf("GetFile failed: %v", err)
	}
	if fetched.StagingPath != "" {
		t.Fatalf("expected cleared staging path, got %q", fetched.StagingPath)
	}
}

func TestImagingSessionRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	session := testsupport.SeedImagingSession(t, store, date, "ASI2600MM", "RC8")
	if session.ID == 0 {
		t.Fatal("expected imaging session ID")
	}

	fetched, err := store.GetImagingSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("GetImagingSession failed: %v", err)
	}
	if fetched == nil || !fetched.Date.Equal(date) || fetched.Camera != "ASI2600MM" {
		t.Fatalf("unexpected imaging session: %#v", fetched)
	}
}

func TestCheckHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.Readable || !health.IntegrityOK {
		t.Fatalf("expected healthy database, got %#v", health)
	}
}

func TestParseFrameType(t *testing.T) {
	cases := []struct {
		in   string
		want catalog.FrameType
		ok   bool
	}{
		{"light", catalog.FrameLight, true},
		{" DARK ", catalog.FrameDark, true},
		{"Flat", catalog.FrameFlat, true},
		{"bias", catalog.FrameBias, true},
		{"mosaic", "", false},
	}
	for _, tc := range cases {
		got, ok := catalog.ParseFrameType(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseFrameType(%q) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
