package preflight

import (
	"context"

	"starstage/internal/catalog"
	"starstage/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config. The
// catalog store is optional; when nil the database checks are skipped so the
// doctor command still works before first ingest.
func RunAll(ctx context.Context, cfg *config.Config, cat *catalog.Store) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	results = append(results, CheckFreeSpace("Staging free space", cfg.Paths.StagingDir, minimumFreeBytes))

	if cat != nil {
		results = append(results, CheckCatalog(ctx, cat))
	}

	return results
}
