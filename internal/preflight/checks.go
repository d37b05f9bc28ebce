package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"starstage/internal/catalog"
)

// minimumFreeBytes is the free-space floor for the staging filesystem.
// Materializing even one session of full-frame FITS files below this is
// likely to fail partway through.
const minimumFreeBytes = 1 << 30 // 1 GiB

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has at least
// minBytes available.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%.1f GiB free, need %.1f GiB)",
			path, float64(free)/float64(1<<30), float64(minBytes)/float64(1<<30))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%.1f GiB free)", path, float64(free)/float64(1<<30))}
}

// CheckCatalog verifies the catalog database opens and passes an integrity
// check.
func CheckCatalog(ctx context.Context, cat *catalog.Store) Result {
	const name = "Catalog database"

	health, err := cat.CheckHealth(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", health.DBPath, err)}
	}
	switch {
	case !health.Readable:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %s)", health.DBPath, health.Error)}
	case !health.IntegrityOK:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: integrity check failed: %s)", health.DBPath, health.Error)}
	default:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d files)", health.DBPath, health.TotalFiles)}
	}
}
