package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"starstage/internal/config"
)

// Store manages processing-session persistence backed by SQLite. Membership
// writes are transactional: a bulk add or remove either commits whole or not
// at all, so a failure never leaves torn membership state.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the sessions database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.SessionsDBPath()
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

// Insert creates a new processing session record.
func (s *Store) Insert(ctx context.Context, name, notes string) (*ProcessingSession, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO processing_sessions (name, status, notes, folder_path, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		name,
		string(StatusNotStarted),
		nullableString(notes),
		nil,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a processing session by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*ProcessingSession, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM processing_sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// Update persists changes to an existing session record.
func (s *Store) Update(ctx context.Context, session *ProcessingSession) error {
	if session == nil {
		return errors.New("session is nil")
	}
	session.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE processing_sessions
         SET name = ?, status = ?, notes = ?, folder_path = ?, updated_at = ?
         WHERE id = ?`,
		session.Name,
		string(session.Status),
		nullableString(session.Notes),
		nullableString(session.FolderPath),
		session.UpdatedAt.Format(time.RFC3339Nano),
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// List returns sessions filtered by status set (or all sessions when no
// status is provided) ordered by creation time.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*ProcessingSession, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + sessionColumns + ` FROM processing_sessions`
	orderClause := ` ORDER BY created_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = string(status)
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*ProcessingSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// MemberIDs returns the file identifiers belonging to a session.
func (s *Store) MemberIDs(ctx context.Context, sessionID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT file_id FROM processing_session_files WHERE session_id = ? ORDER BY file_id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
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

// AddMembers inserts membership rows in one transaction. The primary key on
// (session_id, file_id) rejects duplicate membership; callers are expected to
// have filtered out identifiers already present.
func (s *Store) AddMembers(ctx context.Context, sessionID int64, fileIDs []int64) error {
	if len(fileIDs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add members tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, fileID := range fileIDs {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO processing_session_files (session_id, file_id, added_at) VALUES (?, ?, ?)`,
			sessionID,
			fileID,
			now,
		); err != nil {
			return fmt.Errorf("add member %d: %w", fileID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit add members: %w", err)
	}
	return nil
}

// RemoveMembers deletes membership rows in one transaction.
func (s *Store) RemoveMembers(ctx context.Context, sessionID int64, fileIDs []int64) error {
	if len(fileIDs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove members tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, fileID := range fileIDs {
		if _, err := tx.ExecContext(
			ctx,
			`DELETE FROM processing_session_files WHERE session_id = ? AND file_id = ?`,
			sessionID,
			fileID,
		); err != nil {
			return fmt.Errorf("remove member %d: %w", fileID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit remove members: %w", err)
	}
	return nil
}

// Delete removes a session record and its membership rows.
func (s *Store) Delete(ctx context.Context, sessionID int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM processing_session_files WHERE session_id = ?`, sessionID); err != nil {
		return false, fmt.Errorf("delete membership: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM processing_sessions WHERE id = ?`, sessionID)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete: %w", err)
	}
	return affected > 0, nil
}

const sessionColumns = "id, name, status, notes, folder_path, created_at, updated_at"

func scanSession(scanner interface{ Scan(dest ...any) error }) (*ProcessingSession, error) {
	var (
		id         int64
		name       string
		statusStr  string
		notes      sql.NullString
		folderPath sql.NullString
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &name, &statusStr, &notes, &folderPath, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	session := &ProcessingSession{
		ID:         id,
		Name:       name,
		Status:     Status(statusStr),
		Notes:      notes.String,
		FolderPath: folderPath.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		session.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		session.UpdatedAt = updated
	}
	return session, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
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
