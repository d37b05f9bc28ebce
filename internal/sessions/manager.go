package sessions

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"starstage/internal/catalog"
	"starstage/internal/config"
	"starstage/internal/logging"
	"starstage/internal/orphan"
	"starstage/internal/services"
	"starstage/internal/textutil"
)

// Manager owns the processing-session lifecycle: creation, membership,
// folder materialization, status transitions, and deletion. Mutating
// operations are serialized per session identifier; reads and operations on
// different sessions run concurrently.
type Manager struct {
	cfg     *config.Config
	store   *Store
	catalog *catalog.Store
	logger  *slog.Logger
	locks   *keyedLocks
}

// NewManager constructs a manager with initialized dependencies.
func NewManager(cfg *config.Config, store *Store, cat *catalog.Store, logger *slog.Logger) (*Manager, error) {
	if cfg == nil || store == nil || cat == nil {
		return nil, errors.New("manager requires config, session store, and catalog store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:     cfg,
		store:   store,
		catalog: cat,
		logger:  logging.WithComponent(logger, "staging"),
		locks:   newKeyedLocks(),
	}, nil
}

// CreateResult reports the outcome of session creation, including partial
// materialization failures.
type CreateResult struct {
	Session    *ProcessingSession
	Requested  int
	Added      int
	Skipped    int // identifiers the catalog could not resolve
	FileErrors []FileError
}

// AddResult reports the outcome of a bulk membership addition.
type AddResult struct {
	Requested      int
	Added          int
	AlreadyPresent int
	Skipped        int // identifiers the catalog could not resolve
	FileErrors     []FileError
}

// RemoveObjectResult reports the outcome of an object-removal cascade.
// SessionEmpty is informational: the session is never auto-deleted, callers
// decide whether to prompt for deletion.
type RemoveObjectResult struct {
	LightsRemoved      int
	CalibrationRemoved int
	SessionEmpty       bool
	FileErrors         []FileError
}

// Create makes a new processing session, materializes its folder, and adds
// the initial member files. Unresolvable identifiers are counted in the
// result rather than failing the operation.
func (m *Manager) Create(ctx context.Context, name string, fileIDs []int64, notes string) (*CreateResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, services.Wrap(services.ErrValidation, "staging", "create", "session name is empty", nil)
	}

	requested := dedupeIDs(fileIDs)

	session, err := m.store.Insert(ctx, name, notes)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "staging", "create", name, err)
	}
	// A failure before membership commits must not leave a shell session
	// behind.
	discard := func() { _, _ = m.store.Delete(ctx, session.ID) }

	session.FolderPath = filepath.Join(m.cfg.Paths.StagingDir, folderSegment(name, session.ID))
	if err := m.store.Update(ctx, session); err != nil {
		discard()
		return nil, services.Wrap(services.ErrStore, "staging", "create", "set folder path", err)
	}

	logger := m.opLogger("session_create", session.ID)

	files, err := m.catalog.FilesByIDs(ctx, requested)
	if err != nil {
		discard()
		return nil, services.Wrap(services.ErrStore, "staging", "create", "resolve files", err)
	}
	memberIDs := make([]int64, 0, len(files))
	for _, file := range files {
		memberIDs = append(memberIDs, file.ID)
	}
	if err := m.store.AddMembers(ctx, session.ID, memberIDs); err != nil {
		discard()
		return nil, services.Wrap(services.ErrStore, "staging", "create", "add members", err)
	}

	failures := m.materialize(ctx, session, files)

	result := &CreateResult{
		Session:    session,
		Requested:  len(requested),
		Added:      len(files),
		Skipped:    len(requested) - len(files),
		FileErrors: failures,
	}
	logger.Info("processing session created",
		logging.String("name", name),
		logging.Int("added", result.Added),
		logging.Int("skipped", result.Skipped),
		logging.Int("file_errors", len(failures)),
	)
	return result, nil
}

// AddFiles merges files into a session's membership. The operation is
// idempotent: identifiers already present are ignored, so re-adding a
// calibration group after re-running matching reports zero added.
func (m *Manager) AddFiles(ctx context.Context, sessionID int64, fileIDs []int64) (*AddResult, error) {
	unlock := m.locks.acquire(sessionID)
	defer unlock()

	session, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	logger := m.opLogger("session_add_files", sessionID)

	requested := dedupeIDs(fileIDs)
	existing, err := m.store.MemberIDs(ctx, sessionID)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "staging", "add files", "load membership", err)
	}
	existingSet := make(map[int64]struct{}, len(existing))
	for _, id := range existing {
		existingSet[id] = struct{}{}
	}

	var alreadyPresent int
	candidates := make([]int64, 0, len(requested))
	for _, id := range requested {
		if _, ok := existingSet[id]; ok {
			alreadyPresent++
			continue
		}
		candidates = append(candidates, id)
	}

	files, err := m.catalog.FilesByIDs(ctx, candidates)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "staging", "add files", "resolve files", err)
	}
	memberIDs := make([]int64, 0, len(files))
	for _, file := range files {
		memberIDs = append(memberIDs, file.ID)
	}
	if err := m.store.AddMembers(ctx, sessionID, memberIDs); err != nil {
		return nil, services.Wrap(services.ErrStore, "staging", "add files", "add members", err)
	}

	failures := m.materialize(ctx, session, files)

	result := &AddResult{
		Requested:      len(requested),
		Added:          len(files),
		AlreadyPresent: alreadyPresent,
		Skipped:        len(candidates) - len(files),
		FileErrors:     failures,
	}
	logger.Info("files added to session",
		logging.Int("requested", result.Requested),
		logging.Int("added", result.Added),
		logging.Int("already_present", result.AlreadyPresent),
		logging.Int("skipped", result.Skipped),
		logging.Int("file_errors", len(failures)),
	)
	return result, nil
}

// RemoveObject removes every light member whose object matches, cascades to
// now-unreferenced calibration members via the orphan resolver, and removes
// the affected files from the session folder.
func (m *Manager) RemoveObject(ctx context.Context, sessionID int64, objectName string) (*RemoveObjectResult, error) {
	unlock := m.locks.acquire(sessionID)
	defer unlock()

	session, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	logger := m.opLogger("session_remove_object", sessionID)

	memberIDs, err := m.store.MemberIDs(ctx, sessionID)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "staging", "remove object", "load membership", err)
	}
	files, err := m.catalog.FilesByIDs(ctx, memberIDs)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "staging", "remove object", "resolve files", err)
	}

	var (
		removedLights   []*catalog.FitsFile
		remainingLights []*catalog.FitsFile
		calibration     []*catalog.FitsFile
	)
	for _, file := range files {
		switch {
		case file.FrameType == catalog.FrameLight && m.objectMatches(file.Object, objectName):
			removedLights = append(removedLights, file)
		case file.FrameType == catalog.FrameLight:
			remainingLights = append(remainingLights, file)
		case file.FrameType.IsCalibration():
			calibration = append(calibration, file)
		}
	}

	orphanedIDs := orphan.Find(calibration, remainingLights)
	orphanedSet := make(map[int64]struct{}, len(orphanedIDs))
	for _, id := range orphanedIDs {
		orphanedSet[id] = struct{}{}
	}

	toRemove := make([]int64, 0, len(removedLights)+len(orphanedIDs))
	filesToRemove := make([]*catalog.FitsFile, 0, len(removedLights)+len(orphanedIDs))
	for _, file := range removedLights {
		toRemove = append(toRemove, file.ID)
		filesToRemove = append(filesToRemove, file)
	}
	for _, file := range calibration {
		if _, ok := orphanedSet[file.ID]; ok {
			toRemove = append(toRemove, file.ID)
			filesToRemove = append(filesToRemove, file)
		}
	}

	if err := m.store.RemoveMembers(ctx, sessionID, toRemove); err != nil {
		return nil, services.Wrap(services.ErrStore, "staging", "remove object", "remove members", err)
	}

	failures := m.dematerialize(ctx, session, filesToRemove)

	result := &RemoveObjectResult{
		LightsRemoved:      len(removedLights),
		CalibrationRemoved: len(orphanedIDs),
		SessionEmpty:       len(remainingLights) == 0,
		FileErrors:         failures,
	}
	logger.Info("object removed from session",
		logging.String("object", objectName),
		logging.Int("lights_removed", result.LightsRemoved),
		logging.Int("calibration_removed", result.CalibrationRemoved),
		logging.Bool("session_empty", result.SessionEmpty),
	)
	return result, nil
}

// Delete removes the session record. When removeFilesFromDisk is set the
// materialized folder is deleted too; that intent is destructive and must
// come explicitly from the caller, never inferred.
func (m *Manager) Delete(ctx context.Context, sessionID int64, removeFilesFromDisk bool) error {
	unlock := m.locks.acquire(sessionID)
	defer unlock()

	session, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}

	logger := m.opLogger("session_delete", sessionID)

	memberIDs, err := m.store.MemberIDs(ctx, sessionID)
	if err != nil {
		return services.Wrap(services.ErrStore, "staging", "delete", "load membership", err)
	}
	files, err := m.catalog.FilesByIDs(ctx, memberIDs)
	if err != nil {
		return services.Wrap(services.ErrStore, "staging", "delete", "resolve files", err)
	}
	for _, file := range files {
		if file.StagingPath != "" {
			// Best-effort: a dangling staging path is harmless after delete.
			_ = m.catalog.SetStagingPath(ctx, file.ID, "")
		}
	}

	if _, err := m.store.Delete(ctx, sessionID); err != nil {
		return services.Wrap(services.ErrStore, "staging", "delete", session.Name, err)
	}

	if removeFilesFromDisk && session.FolderPath != "" {
		if err := os.RemoveAll(session.FolderPath); err != nil {
			return services.Wrap(services.ErrIO, "staging", "delete", "remove folder "+session.FolderPath, err)
		}
	}

	logger.Info("processing session deleted",
		logging.String("name", session.Name),
		logging.Bool("removed_from_disk", removeFilesFromDisk),
	)
	return nil
}

// SetStatus applies a user-declared status transition, optionally updating
// notes. Unknown statuses and disallowed transitions fail validation.
func (m *Manager) SetStatus(ctx context.Context, sessionID int64, status Status, notes string) (*ProcessingSession, error) {
	unlock := m.locks.acquire(sessionID)
	defer unlock()

	session, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, ok := ParseStatus(string(status)); !ok {
		return nil, services.Wrap(services.ErrValidation, "staging", "set status", "unknown status "+string(status), nil)
	}
	if !CanTransition(session.Status, status) {
		return nil, services.Wrap(services.ErrValidation, "staging", "set status",
			"transition "+string(session.Status)+" -> "+string(status)+" is not allowed", nil)
	}

	session.Status = status
	if notes != "" {
		session.Notes = notes
	}
	if err := m.store.Update(ctx, session); err != nil {
		return nil, services.Wrap(services.ErrStore, "staging", "set status", session.Name, err)
	}
	return session, nil
}

// Get fetches a session, failing with the not-found marker when absent.
func (m *Manager) Get(ctx context.Context, sessionID int64) (*ProcessingSession, error) {
	return m.loadSession(ctx, sessionID)
}

// List returns sessions filtered by status.
func (m *Manager) List(ctx context.Context, statuses ...Status) ([]*ProcessingSession, error) {
	sessions, err := m.store.List(ctx, statuses...)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "staging", "list", "", err)
	}
	return sessions, nil
}

// Detail describes a session's membership broken down for display.
type Detail struct {
	Session     *ProcessingSession
	Lights      []*catalog.FitsFile
	Calibration []*catalog.FitsFile
	Objects     map[string]int  // light count per object
	Filters     map[string]int  // light count per filter
	Exposures   map[float64]int // light count per exposure time
}

// Detail loads a session with its membership partitioned and summarized.
func (m *Manager) Detail(ctx context.Context, sessionID int64) (*Detail, error) {
	session, err := m.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	memberIDs, err := m.store.MemberIDs(ctx, sessionID)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "staging", "detail", "load membership", err)
	}
	files, err := m.catalog.FilesByIDs(ctx, memberIDs)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "staging", "detail", "resolve files", err)
	}

	detail := &Detail{
		Session:   session,
		Objects:   make(map[string]int),
		Filters:   make(map[string]int),
		Exposures: make(map[float64]int),
	}
	for _, file := range files {
		if file.FrameType == catalog.FrameLight {
			detail.Lights = append(detail.Lights, file)
			detail.Objects[file.Object]++
			if file.Filter != "" {
				detail.Filters[file.Filter]++
			}
			detail.Exposures[file.ExposureSeconds]++
			continue
		}
		detail.Calibration = append(detail.Calibration, file)
	}
	return detail, nil
}

func (m *Manager) loadSession(ctx context.Context, sessionID int64) (*ProcessingSession, error) {
	session, err := m.store.GetByID(ctx, sessionID)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "staging", "get session", "", err)
	}
	if session == nil {
		return nil, services.Wrap(services.ErrNotFound, "staging", "get session", "no such processing session", nil)
	}
	return session, nil
}

func (m *Manager) objectMatches(memberObject, requested string) bool {
	if m.cfg.Staging.FoldObjectCase {
		return textutil.FoldObjectName(memberObject) == textutil.FoldObjectName(requested)
	}
	return memberObject == requested
}

func (m *Manager) opLogger(operation string, sessionID int64) *slog.Logger {
	return m.logger.With(
		logging.String(logging.FieldEventType, operation),
		logging.String(logging.FieldRequestID, uuid.NewString()),
		logging.Int64(logging.FieldSessionID, sessionID),
	)
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
