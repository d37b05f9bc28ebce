package testsupport

import (
	"path/filepath"
	"testing"

	"starstage/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithDateTolerance sets the matching date tolerance on the test config.
func WithDateTolerance(days int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Matching.DateToleranceDays = days
	}
}

// WithFoldObjectCase enables case-insensitive object matching.
func WithFoldObjectCase() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Staging.FoldObjectCase = true
	}
}

// WithHardlinkMaterialize switches folder materialization to hardlinks.
func WithHardlinkMaterialize() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Staging.MaterializeMode = "hardlink"
	}
}
