package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"starstage/internal/config"
)

// Store manages FITS catalog persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.CatalogDBPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the on-disk database location.
func (s *Store) Path() string {
	return s.path
}

// InsertImagingSession records a camera+telescope+date capture grouping.
func (s *Store) InsertImagingSession(ctx context.Context, session *ImagingSession) (*ImagingSession, error) {
	if session == nil {
		return nil, errors.New("imaging session is nil")
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO imaging_sessions (session_date, camera, telescope, site, observer, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		DateOf(session.Date).Format(dateFormat),
		session.Camera,
		session.Telescope,
		nullableString(session.Site),
		nullableString(session.Observer),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert imaging session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetImagingSession(ctx, id)
}

// InsertFile records an ingested FITS frame.
func (s *Store) InsertFile(ctx context.Context, file *FitsFile) (*FitsFile, error) {
	if file == nil {
		return nil, errors.New("file is nil")
	}
	if _, ok := ParseFrameType(string(file.FrameType)); !ok {
		return nil, fmt.Errorf("unknown frame type %q", file.FrameType)
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO fits_files (
            file_path, frame_type, object, camera, telescope, filter,
            exposure_seconds, captured_at, imaging_session_id, staging_path, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		file.Path,
		string(file.FrameType),
		nullableString(file.Object),
		file.Camera,
		file.Telescope,
		nullableString(file.Filter),
		file.ExposureSeconds,
		file.CapturedAt.UTC().Format(time.RFC3339),
		nullableID(file.ImagingSessionID),
		nullableString(file.StagingPath),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetFile(ctx, id)
}

// GetFile fetches a catalog entry by identifier. Returns nil when absent.
func (s *Store) GetFile(ctx context.Context, id int64) (*FitsFile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM fits_files WHERE id = ?`, id)
	file, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return file, nil
}

// GetImagingSession resolves an imaging session by identifier. Returns nil when absent.
func (s *Store) GetImagingSession(ctx context.Context, id int64) (*ImagingSession, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, session_date, camera, telescope, site, observer, created_at
         FROM imaging_sessions WHERE id = ?`,
		id,
	)
	session, err := scanImagingSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get imaging session: %w", err)
	}
	return session, nil
}

// SetStagingPath updates the staging-path field for a file. An empty path
// clears it. This is the only catalog field this core mutates.
func (s *Store) SetStagingPath(ctx context.Context, fileID int64, path string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE fits_files SET staging_path = ? WHERE id = ?`,
		nullableString(path),
		fileID,
	)
	if err != nil {
		return fmt.Errorf("set staging path: %w", err)
	}
	return nil
}

const fileColumns = "id, file_path, frame_type, object, camera, telescope, filter, exposure_seconds, captured_at, imaging_session_id, staging_path, created_at"

const dateFormat = "2006-01-02"

func scanFile(scanner interface{ Scan(dest ...any) error }) (*FitsFile, error) {
	var (
		id               int64
		path             string
		frameType        string
		object           sql.NullString
		camera           string
		telescope        string
		filter           sql.NullString
		exposure         float64
		capturedRaw      string
		imagingSessionID sql.NullInt64
		stagingPath      sql.NullString
		createdRaw       sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&path,
		&frameType,
		&object,
		&camera,
		&telescope,
		&filter,
		&exposure,
		&capturedRaw,
		&imagingSessionID,
		&stagingPath,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	file := &FitsFile{
		ID:              id,
		Path:            path,
		FrameType:       FrameType(frameType),
		Object:          object.String,
		Camera:          camera,
		Telescope:       telescope,
		Filter:          filter.String,
		ExposureSeconds: exposure,
		StagingPath:     stagingPath.String,
	}
	if imagingSessionID.Valid {
		file.ImagingSessionID = imagingSessionID.Int64
	}
	if captured, err := parseTimeString(capturedRaw); err == nil {
		file.CapturedAt = captured
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		file.CreatedAt = created
	}
	return file, nil
}

func scanImagingSession(scanner interface{ Scan(dest ...any) error }) (*ImagingSession, error) {
	var (
		id         int64
		dateRaw    string
		camera     string
		telescope  string
		site       sql.NullString
		observer   sql.NullString
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&id, &dateRaw, &camera, &telescope, &site, &observer, &createdRaw); err != nil {
		return nil, err
	}
	session := &ImagingSession{
		ID:        id,
		Camera:    camera,
		Telescope: telescope,
		Site:      site.String,
		Observer:  observer.String,
	}
	if date, err := time.Parse(dateFormat, dateRaw); err == nil {
		session.Date = date
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		session.CreatedAt = created
	}
	return session, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableID(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
