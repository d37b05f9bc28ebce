package sessions_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"starstage/internal/catalog"
	"starstage/internal/services"
	"starstage/internal/sessions"
	"starstage/internal/testsupport"
)

func TestCreateRejectsEmptyName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cat := testsupport.MustOpenCatalog(t, cfg)
	store := testsupport.MustOpenSessions(t, cfg)
	manager := testsupport.MustNewManager(t, cfg, store, cat)

	_, err := manager.Create(context.Background(), "   ", nil, "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateMaterializesFolder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cat := testsupport.MustOpenCatalog(t, cfg)
	store := testsupport.MustOpenSessions(t, cfg)
	manager := testsupport.MustNewManager(t, cfg, store, cat)
	dir := t.TempDir()

	light := testsupport.SeedFrame(t, cat, dir, testsupport.FrameSpec{FrameType: catalog.FrameLight, Object: "M31", Filter: "HA"})
	dark := testsupport.SeedFrame(t, cat, dir, testsupport.FrameSpec{FrameType: catalog.FrameDark})

	ctx := context.Background()
	result, err := manager.Create(ctx, "M31 Spring Run", []int64{light.ID, dark.ID, 999}, "first pass")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if result.Added != 2 || result.Skipped != 1 || result.Requested != 3 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if len(result.FileErrors) != 0 {
		t.Fatalf("unexpected file errors: %v", result.FileErrors)
	}
	if result.Session.Status != sessions.StatusNotStarted {
		t.Fatalf("expected not_started, got %s", result.Session.Status)
	}
	if result.Session.FolderPath == "" {
		t.Fatal("expected folder path to be set")
	}

	for _, file := range []*catalog.FitsFile{light, dark} {
		staged := filepath.Join(result.Session.FolderPath, filepath.Base(file.Path))
		if _, err := os.Stat(staged); err != nil {
			t.Fatalf("expected staged copy %s: %v", staged, err)
		}
		fetched, err := cat.GetFile(ctx, file.ID)
		if err != nil {
			t.Fatalf("GetFile failed: %v", err)
		}
		if fetched.StagingPath != staged {
			t.Fatalf("expected staging path %q, got %q", staged, fetched.StagingPath)
		}
	}
}

func TestCreateFailureLeavesNoShellSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cat := testsupport.MustOpenCatalog(t, cfg)
	store := testsupport.MustOpenSessions(t, cfg)
	manager := testsupport.MustNewManager(t, cfg, store, cat)
	dir := t.TempDir()

	light := testsupport.SeedFrame(t, cat, dir, testsupport.FrameSpec{FrameType: catalog.FrameLight, Object: "M31"})
	if err := cat.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	ctx := context.Background()
	if _, err := manager.Create(ctx, "doomed", []int64{light.ID}, ""); !errors.Is(err, services.ErrStore) {
		t.Fatalf("expected store error against a closed catalog, got %v", err)
	}

	listed, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("failed create must not leave a session row, got %d", len(listed))
	}
}

func TestAddFilesIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cat := testsupport.MustOpenCatalog(t, cfg)
	store := testsupport.MustOpenSessions(t, cfg)
	manager := testsupport.MustNewManager(t, cfg, store, cat)
	dir := t.TempDir()

	light := testsupport.SeedFrame(t, cat, dir, testsupport.FrameSpec{FrameType: catalog.FrameLight, Object: "M31"})
	dark := testsupport.SeedFrame(t, cat, dir, testsupport.FrameSpec{FrameType: catalog.FrameDark})

	ctx := context.Background()
	created, err := manager.Create(ctx, "m31", []int64{light.ID}, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	first, err := manager.AddFiles(ctx, created.Session.ID, []int64{light.ID, dark.ID, dark.ID})
	if err != nil {
		t.Fatalf("AddFiles failed: %v", err)
	}
	if first.Added != 1 || first.AlreadyPresent != 1 || first.Requested != 2 {
		t.Fatalf("unexpected first add counts: %+v", first)
	}

	second, err := manager.AddFiles(ctx, created.Session.ID, []int64{light.ID, dark.ID})
	if err != nil {
		t.Fatalf("AddFiles failed: %v", err)
	}
	if second.Added != 0 || second.AlreadyPresent != 2 {
		t.Fatalf("expected re-add to be a no-op, got %+v", second)
	}

	memberIDs, err := store.MemberIDs(ctx, created.Session.ID)
	if err != nil {
		t.Fatalf("MemberIDs failed: %v", err)
	}
	if len(memberIDs) != 2 {
		t.Fatalf("expected 2 members, got %v", memberIDs)
	}
}

func TestAddFilesConcurrentSameSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cat := testsupport.MustOpenCatalog(t, cfg)
	store := testsupport.MustOpenSessions(t, cfg)
	manager := testsupport.MustNewManager(t, cfg, store, cat)
	dir := t.TempDir()

	ids := make([]int64, 8)
	for i := range ids {
		light := testsupport.SeedFrame(t, cat, dir, testsupport.FrameSpec{FrameType: catalog.FrameLight, Object: "M31"})
		ids[i] = light.ID
	}

	ctx := context.Background()
	created, err := manager.Create(ctx, "m31", nil, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Two overlapping adds race on one session; the per-session lock must
	// serialize them so membership ends up as the union with no lost adds.
	var wg sync.WaitGroup
	results := make([]*sessions.AddResult, 2)
	errs := make([]error, 2)
	batches := [][]int64{ids[:5], ids[3:]}
	for i := range batches {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = manager.AddFiles(ctx, created.Session.ID, batches[i])
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("concurrent AddFiles %d failed: %v", i, err)
		}
	}

	memberIDs, err := store.MemberIDs(ctx, created.Session.ID)
	if err != nil {
		t.Fatalf("MemberIDs failed: %v", err)
	}
	if len(memberIDs) != len(ids) {
		t.Fatalf("expected %d members, got %v", len(ids), memberIDs)
	}
	if added := results[0].Added + results[1].Added; added != len(ids) {
		t.Fatalf("expected %d added across both calls, got %d", len(ids), added)
	}
	if present := results[0].AlreadyPresent + results[1].AlreadyPresent; present != 2 {
		t.Fatalf("expected the overlap to be reported already present once, got %d", present)
	}
}

func TestAddFilesUnknownSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cat := testsupport.MustOpenCatalog(t, cfg)
	store := testsupport.MustOpenSessions(t, cfg)
	manager := testsupport.MustNewManager(t, cfg, store, cat)

	_, err := manager.AddFiles(context.Background(), 42, []int64{1})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRemoveObjectCascadesToOrphanedCalibration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cat := testsupport.MustOpenCatalog(t, cfg)
	store := testsupport.MustOpenSessions(t, cfg)
	manager := testsupport.MustNewManager(t, cfg, store, cat)
	dir := t.TempDir()

	m31 := testsupport.SeedFrame(t, cat, dir, testsupport.FrameSpec{FrameType: catalog.FrameLight, Object: "M31", Filter: "HA"})
	m42 := testsupport.SeedFrame(t, cat, dir, testsupport.FrameSpec{FrameType: catalog.FrameLight, Object: "M42", Filter: "OIII"})
	dark := testsupport.SeedFrame(t, cat, dir, testsupport.FrameSpec{FrameType: catalog.FrameDark})
	flatHA := testsupport.SeedFrame(t, cat, dir, testsupport.FrameSpec{FrameType: catalog.FrameFlat, Filter: "HA"})
	flatOIII := testsupport.SeedFrame(t, cat, dir, testsupport.FrameSpec{FrameType: catalog.FrameFlat, Filter: "OIII"})

	ctx := context.Background()
	created, err := manager.Create(ctx, "two targets", []int64{m31.ID, m42.ID, dark.ID, flatHA.ID, flatOIII.ID}, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	result, err := manager.RemoveObject(ctx, created.Session.ID, "M42")
	if err != nil {
		t.Fatalf("RemoveObject failed: %v", err)
	}
	if result.LightsRemoved != 1 {
		t.Fatalf("expected 1 light removed, got %d", result.LightsRemoved)
	}
	// The dark still serves M31; only the OIII flat loses its last light.
	if result.CalibrationRemoved != 1 {
		t.Fatalf("expected 1 calibration removed, got %d", result.CalibrationRemoved)
	}
	if result.SessionEmpty {
		t.Fatal("session still holds M31 lights, should not report empty")
	}

	memberIDs, err := store.MemberIDs(ctx, created.Session.ID)
	if err != nil {
		t.Fatalf("MemberIDs failed: %v", err)
	}
	remaining := map[int64]struct{}{}
	for _, id := range memberIDs {
		remaining[id] = struct{}{}
	}
	for _, id := range []int64{m31.ID, dark.ID, flatHA.ID} {
		if _, ok := remaining[id]; !ok {
			t.Fatalf("expected file %d to remain a member", id)
		}
	}
	if _, ok := remaining[flatOIII.ID]; ok {
		t.Fatal("expected the OIII flat to be removed")
	}

	staged := filepath.Join(created.Session.FolderPath, filepath.Base(flatOIII.Path))
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Fatalf("expected staged OIII flat to be deleted, stat err: %v", err)
	}

	// Removing the last object empties the session but never deletes it.
	final, err := manager.RemoveObject(ctx, created.Session.ID, "M31")
	if err != nil {
		t.Fatalf("RemoveObject failed: %v", err)
	}
	if !final.SessionEmpty {
		t.Fatal("expected session to report empty")
	}
	if session, err := manager.Get(ctx, created.Session.ID); err != nil || session == nil {
		t.Fatalf("expected session to survive emptiness, got %v, %v", session, err)
	}
}

func TestRemoveObjectCaseFolding(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithFoldObjectCase())
	cat := testsupport.MustOpenCatalog(t, cfg)
	store := testsupport.MustOpenSessions(t, cfg)
	manager := testsupport.MustNewManager(t, cfg, store, cat)
	dir := t.TempDir()

	light := testsupport.SeedFrame(t, cat, dir, testsupport.FrameSpec{FrameType: catalog.FrameLight, Object: "NGC 7000"})

	ctx := context.Background()
	created, err := manager.Create(ctx, "nameplay", []int64{light.ID}, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	result, err := manager.RemoveObject(ctx, created.Session.ID, "ngc 7000")
	if err != nil {
		t.Fatalf("RemoveObject failed: %v", err)
	}
	if result.LightsRemoved != 1 {
		t.Fatalf("expected case-folded match to remove the light, got %+v", result)
	}
}

func TestDeleteRemovesFolderWhenAsked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cat := testsupport.MustOpenCatalog(t, cfg)
	store := testsupport.MustOpenSessions(t, cfg)
	manager := testsupport.MustNewManager(t, cfg, store, cat)
	dir := t.TempDir()

	light := testsupport.SeedFrame(t, cat, dir, testsupport.FrameSpec{FrameType: catalog.FrameLight, Object: "M31"})

	ctx := context.Background()
	created, err := manager.Create(ctx, "doomed", []int64{light.ID}, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := manager.Delete(ctx, created.Session.ID, true); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(created.Session.FolderPath); !os.IsNotExist(err) {
		t.Fatalf("expected folder removed, stat err: %v", err)
	}
	if _, err := manager.Get(ctx, created.Session.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found after delete, got %v", err)
	}
	fetched, err := cat.GetFile(ctx, light.ID)
	if err != nil {
		t.Fatalf("GetFile failed: %v", err)
	}
	if fetched.StagingPath != "" {
		t.Fatalf("expected staging path cleared, got %q", fetched.StagingPath)
	}
	if fetched.Path == "" {
		t.Fatal("catalog entry should survive session deletion")
	}
}

func TestDeleteKeepsFolderByDefault(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cat := testsupport.MustOpenCatalog(t, cfg)
	store := testsupport.MustOpenSessions(t, cfg)
	manager := testsupport.MustNewManager(t, cfg, store, cat)
	dir := t.TempDir()

	light := testsupport.SeedFrame(t, cat, dir, testsupport.FrameSpec{FrameType: catalog.FrameLight, Object: "M31"})

	ctx := context.Background()
	created, err := manager.Create(ctx, "kept", []int64{light.ID}, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := manager.Delete(ctx, created.Session.ID, false); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(created.Session.FolderPath); err != nil {
		t.Fatalf("expected folder to survive, stat err: %v", err)
	}
}

func TestSetStatusEnforcesTransitions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cat := testsupport.MustOpenCatalog(t, cfg)
	store := testsupport.MustOpenSessions(t, cfg)
	manager := testsupport.MustNewManager(t, cfg, store, cat)

	ctx := context.Background()
	created, err := manager.Create(ctx, "lifecycle", nil, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := manager.SetStatus(ctx, created.Session.ID, sessions.StatusComplete, ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected not_started -> complete to be rejected, got %v", err)
	}

	updated, err := manager.SetStatus(ctx, created.Session.ID, sessions.StatusInProgress, "started stacking")
	if err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if updated.Status != sessions.StatusInProgress || updated.Notes != "started stacking" {
		t.Fatalf("unexpected session after transition: %#v", updated)
	}

	updated, err = manager.SetStatus(ctx, created.Session.ID, sessions.StatusComplete, "")
	if err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	if updated.Status != sessions.StatusComplete {
		t.Fatalf("expected complete, got %s", updated.Status)
	}
}

func TestDetailPartitionsMembership(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cat := testsupport.MustOpenCatalog(t, cfg)
	store := testsupport.MustOpenSessions(t, cfg)
	manager := testsupport.MustNewManager(t, cfg, store, cat)
	dir := t.TempDir()

	ha := testsupport.SeedFrame(t, cat, dir, testsupport.FrameSpec{FrameType: catalog.FrameLight, Object: "M31", Filter: "HA", ExposureSeconds: 300})
	oiii := testsupport.SeedFrame(t, cat, dir, testsupport.FrameSpec{FrameType: catalog.FrameLight, Object: "M31", Filter: "OIII", ExposureSeconds: 300})
	dark := testsupport.SeedFrame(t, cat, dir, testsupport.FrameSpec{FrameType: catalog.FrameDark, ExposureSeconds: 300})

	ctx := context.Background()
	created, err := manager.Create(ctx, "detail", []int64{ha.ID, oiii.ID, dark.ID}, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	detail, err := manager.Detail(ctx, created.Session.ID)
	if err != nil {
		t.Fatalf("Detail failed: %v", err)
	}
	if len(detail.Lights) != 2 || len(detail.Calibration) != 1 {
		t.Fatalf("unexpected partition: %d lights, %d calibration", len(detail.Lights), len(detail.Calibration))
	}
	if detail.Objects["M31"] != 2 {
		t.Fatalf("expected 2 M31 lights, got %v", detail.Objects)
	}
	if detail.Filters["HA"] != 1 || detail.Filters["OIII"] != 1 {
		t.Fatalf("unexpected filter summary: %v", detail.Filters)
	}
	if detail.Exposures[300] != 2 {
		t.Fatalf("unexpected exposure summary: %v", detail.Exposures)
	}
}
