package main

import (
	"fmt"
	"testing"
	"time"

	"starstage/internal/catalog"
	"starstage/internal/testsupport"
)

func TestMatchCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	light := seedCatalogFrame(t, env, testsupport.FrameSpec{
		FrameType: catalog.FrameLight, Object: "M81", Filter: "HA",
		ExposureSeconds: 300, CapturedAt: testCaptureBase,
	})
	seedCatalogFrame(t, env, testsupport.FrameSpec{
		FrameType: catalog.FrameDark, ExposureSeconds: 300,
		CapturedAt: testCaptureBase.Add(time.Hour),
	})
	seedCatalogFrame(t, env, testsupport.FrameSpec{
		FrameType: catalog.FrameFlat, Filter: "HA", ExposureSeconds: 2,
		CapturedAt: testCaptureBase,
	})

	_, _, err := runCLI(t, []string{
		"session", "create", "m81", fmt.Sprintf("%d", light.ID),
	}, env.configPath)
	if err != nil {
		t.Fatalf("session create: %v", err)
	}

	out, _, err := runCLI(t, []string{"match", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	requireContains(t, out, "DARK candidates")
	requireContains(t, out, "FLAT candidates")
	requireContains(t, out, "matches lights")
}

func TestMatchCommandUnknownSession(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"match", "99"}, env.configPath)
	if err == nil {
		t.Fatal("expected match on unknown session to fail")
	}
}

func TestDoctorCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	requireContains(t, out, "All checks passed")
}

func TestStagingCleanCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	light := seedCatalogFrame(t, env, testsupport.FrameSpec{
		FrameType: catalog.FrameLight, Object: "M31", CapturedAt: testCaptureBase,
	})
	_, _, err := runCLI(t, []string{
		"session", "create", "keeper", fmt.Sprintf("%d", light.ID),
	}, env.configPath)
	if err != nil {
		t.Fatalf("session create: %v", err)
	}

	out, _, err := runCLI(t, []string{"staging", "clean"}, env.configPath)
	if err != nil {
		t.Fatalf("staging clean: %v", err)
	}
	requireContains(t, out, "Removed 0 orphaned folders")

	out, _, err = runCLI(t, []string{"staging", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("staging list: %v", err)
	}
	requireContains(t, out, "keeper-1")
}
