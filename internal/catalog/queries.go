package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// FilesByIDs fetches the catalog entries matching the provided identifiers.
// Unknown identifiers are simply absent from the result; callers diff the
// result against the request to count unresolvable IDs.
func (s *Store) FilesByIDs(ctx context.Context, ids []int64) ([]*FitsFile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+fileColumns+` FROM fits_files WHERE id IN (`+placeholders+`) ORDER BY id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query files by ids: %w", err)
	}
	defer rows.Close()
	return collectFiles(rows)
}

// ListCalibration returns calibration files of one frame type sharing the
// given camera and telescope whose capture timestamp falls inside [from, to].
func (s *Store) ListCalibration(ctx context.Context, frameType FrameType, camera, telescope string, from, to time.Time) ([]*FitsFile, error) {
	if !frameType.IsCalibration() {
		return nil, fmt.Errorf("frame type %q is not a calibration type", frameType)
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+fileColumns+` FROM fits_files
         WHERE frame_type = ? AND camera = ? AND telescope = ?
           AND captured_at >= ? AND captured_at <= ?
         ORDER BY captured_at, id`,
		string(frameType),
		camera,
		telescope,
		from.UTC().Format(time.RFC3339),
		to.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("query calibration files: %w", err)
	}
	defer rows.Close()
	return collectFiles(rows)
}

// FilesByImagingSession lists all files owned by one imaging session.
func (s *Store) FilesByImagingSession(ctx context.Context, imagingSessionID int64) ([]*FitsFile, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+fileColumns+` FROM fits_files WHERE imaging_session_id = ? ORDER BY captured_at, id`,
		imagingSessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query files by imaging session: %w", err)
	}
	defer rows.Close()
	return collectFiles(rows)
}

// ListFiles returns catalog entries matching the filter ordered by capture time.
func (s *Store) ListFiles(ctx context.Context, filter Filter) ([]*FitsFile, error) {
	where, args := filter.whereClause()
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+fileColumns+` FROM fits_files`+where+` ORDER BY captured_at, id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()
	return collectFiles(rows)
}

// ListFileIDs resolves a filter to the complete identifier list it matches.
// This backs the selection tracker's select-all operation, which must see the
// full catalog rather than one displayed page.
func (s *Store) ListFileIDs(ctx context.Context, filter Filter) ([]int64, error) {
	where, args := filter.whereClause()
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id FROM fits_files`+where+` ORDER BY captured_at, id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list file ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountFiles returns the number of catalog entries matching the filter.
func (s *Store) CountFiles(ctx context.Context, filter Filter) (int, error) {
	where, args := filter.whereClause()
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM fits_files`+where, args...)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}
	return count, nil
}

// CheckHealth returns diagnostic information about the catalog database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping catalog database: %w", err)
	}
	health.Readable = true

	row := s.db.QueryRowContext(connCtx, "SELECT COUNT(1) FROM fits_files")
	if err := row.Scan(&health.TotalFiles); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count catalog files: %w", err)
	}

	row = s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityOK = integrityResult == "ok"

	return health, nil
}

// DatabaseHealth captures diagnostic information about the catalog database.
type DatabaseHealth struct {
	DBPath      string
	Readable    bool
	IntegrityOK bool
	TotalFiles  int
	Error       string
}

func collectFiles(rows *sql.Rows) ([]*FitsFile, error) {
	var files []*FitsFile
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}
