package sessions

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"starstage/internal/catalog"
	"starstage/internal/fileutil"
	"starstage/internal/logging"
	"starstage/internal/services"
	"starstage/internal/textutil"
)

const folderLockName = ".starstage.lock"

// FileError pairs a member file with the error its disk operation produced.
type FileError struct {
	FileID int64
	Path   string
	Err    error
}

// folderSegment derives the on-disk folder name for a session. The sanitized
// session name keeps folders recognizable; the identifier suffix keeps them
// unique when two sessions share a name.
func folderSegment(name string, id int64) string {
	segment := textutil.SanitizeSegment(name)
	if segment == "" {
		segment = "session"
	}
	return fmt.Sprintf("%s-%d", segment, id)
}

// materialize copies or links member files into the session folder. Failures
// are collected per file rather than aborting the batch; membership has
// already been committed, and a retried AddFiles is idempotent. The folder is
// guarded by a lock file so no other process materializes into it at the same
// time.
func (m *Manager) materialize(ctx context.Context, session *ProcessingSession, files []*catalog.FitsFile) []FileError {
	var failures []FileError

	if err := os.MkdirAll(session.FolderPath, 0o755); err != nil {
		for _, file := range files {
			failures = append(failures, FileError{
				FileID: file.ID,
				Path:   file.Path,
				Err:    services.Wrap(services.ErrIO, "staging", "create folder", session.FolderPath, err),
			})
		}
		return failures
	}

	folderLock := flock.New(filepath.Join(session.FolderPath, folderLockName))
	if err := folderLock.Lock(); err != nil {
		for _, file := range files {
			failures = append(failures, FileError{
				FileID: file.ID,
				Path:   file.Path,
				Err:    services.Wrap(services.ErrIO, "staging", "lock folder", session.FolderPath, err),
			})
		}
		return failures
	}
	defer func() {
		_ = folderLock.Unlock()
	}()

	for _, file := range files {
		dst := filepath.Join(session.FolderPath, filepath.Base(file.Path))
		var copyErr error
		if m.cfg.Staging.MaterializeMode == "hardlink" {
			copyErr = fileutil.LinkOrCopy(file.Path, dst)
		} else {
			copyErr = fileutil.CopyFileVerified(file.Path, dst)
		}
		if copyErr != nil {
			failures = append(failures, FileError{
				FileID: file.ID,
				Path:   file.Path,
				Err:    services.Wrap(services.ErrIO, "staging", "materialize file", file.Path, copyErr),
			})
			continue
		}
		if err := m.catalog.SetStagingPath(ctx, file.ID, dst); err != nil {
			failures = append(failures, FileError{
				FileID: file.ID,
				Path:   file.Path,
				Err:    services.Wrap(services.ErrStore, "staging", "record staging path", file.Path, err),
			})
		}
	}

	if len(failures) > 0 {
		m.logger.Warn("session folder materialization completed with failures",
			logging.Int64(logging.FieldSessionID, session.ID),
			logging.Int("requested", len(files)),
			logging.Int("failed", len(failures)),
		)
	}
	return failures
}

// dematerialize removes member files from the session folder and clears their
// staging paths. Best-effort per file.
func (m *Manager) dematerialize(ctx context.Context, session *ProcessingSession, files []*catalog.FitsFile) []FileError {
	var failures []FileError
	for _, file := range files {
		dst := file.StagingPath
		if dst == "" {
			dst = filepath.Join(session.FolderPath, filepath.Base(file.Path))
		}
		if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
			failures = append(failures, FileError{
				FileID: file.ID,
				Path:   dst,
				Err:    services.Wrap(services.ErrIO, "staging", "remove staged file", dst, err),
			})
			continue
		}
		if err := m.catalog.SetStagingPath(ctx, file.ID, ""); err != nil {
			failures = append(failures, FileError{
				FileID: file.ID,
				Path:   dst,
				Err:    services.Wrap(services.ErrStore, "staging", "clear staging path", file.Path, err),
			})
		}
	}
	return failures
}
