package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"starstage/internal/catalog"
	"starstage/internal/config"
	"starstage/internal/testsupport"
)

type cliTestEnv struct {
	configPath string
	dataDir    string
	stagingDir string
	frameDir   string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	env := &cliTestEnv{
		configPath: filepath.Join(homeDir, ".config", "starstage", "config.toml"),
		dataDir:    filepath.Join(base, "data"),
		stagingDir: filepath.Join(base, "staging"),
		frameDir:   filepath.Join(base, "frames"),
	}
	if err := os.MkdirAll(filepath.Dir(env.configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, env.configPath, env.dataDir, env.stagingDir, filepath.Join(base, "logs"))
	return env
}

func writeTestConfig(t *testing.T, path, dataDir, stagingDir, logDir string) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nstaging_dir = %q\nlog_dir = %q\n",
		dataDir, stagingDir, logDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// seedCatalogFrame inserts a frame through a short-lived store so CLI
// invocations observe it. The store is closed before returning because the
// CLI opens its own connection.
func seedCatalogFrame(t *testing.T, env *cliTestEnv, spec testsupport.FrameSpec) *catalog.FitsFile {
	t.Helper()

	cfg := loadTestConfig(t, env)
	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	defer store.Close()
	return testsupport.SeedFrame(t, store, env.frameDir, spec)
}

func loadTestConfig(t *testing.T, env *cliTestEnv) *config.Config {
	t.Helper()
	cfg, _, _, err := config.Load(env.configPath)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	return cfg
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

var testCaptureBase = time.Date(2024, 5, 1, 22, 0, 0, 0, time.UTC)
