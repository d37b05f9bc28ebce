// Package staging maintains the on-disk staging area that holds one folder
// per processing session. Cleanup never touches folders belonging to live
// sessions; callers pass the set of active folder names.
package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"starstage/internal/logging"
	"starstage/internal/sessions"
)

// CleanResult contains the outcome of a staging cleanup operation.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// ActiveFolders collects the folder names of every known processing session,
// regardless of status. A complete session's folder is still active; only
// deletion releases it.
func ActiveFolders(ctx context.Context, store *sessions.Store) (map[string]struct{}, error) {
	all, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	active := make(map[string]struct{}, len(all))
	for _, session := range all {
		if session.FolderPath == "" {
			continue
		}
		active[filepath.Base(session.FolderPath)] = struct{}{}
	}
	return active, nil
}

// CleanOrphaned removes staging folders that no session references. These
// accumulate when a session row is deleted without removing files from disk
// and the user later decides the folder is dead weight.
func CleanOrphaned(ctx context.Context, stagingDir string, activeFolders map[string]struct{}, logger *slog.Logger) CleanResult {
	result := CleanResult{}

	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return result
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: stagingDir, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, active := activeFolders[entry.Name()]; active {
			continue
		}

		dirPath := filepath.Join(stagingDir, entry.Name())
		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			if logger != nil {
				logger.Warn("failed to remove orphaned staging folder",
					logging.String("path", dirPath),
					logging.Error(err),
					logging.String(logging.FieldEventType, "staging_cleanup_failed"),
				)
			}
		} else {
			result.Removed = append(result.Removed, dirPath)
			if logger != nil {
				logger.Info("removed orphaned staging folder",
					logging.String("path", dirPath),
					logging.String(logging.FieldEventType, "staging_cleanup"),
				)
			}
		}
	}

	return result
}

// DirInfo contains metadata about a staging folder.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// ListDirectories returns all staging folders with their metadata.
func ListDirectories(stagingDir string) ([]DirInfo, error) {
	stagingDir = strings.TrimSpace(stagingDir)
	if stagingDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		dirPath := filepath.Join(stagingDir, entry.Name())
		size, _ := dirSize(dirPath)

		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    size,
		})
	}

	return dirs, nil
}

// dirSize calculates the total size of a directory recursively, best effort.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
