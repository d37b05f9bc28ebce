package testsupport

import (
	"testing"

	"starstage/internal/catalog"
	"starstage/internal/config"
	"starstage/internal/logging"
	"starstage/internal/matching"
	"starstage/internal/sessions"
)

// MustOpenCatalog opens a catalog.Store for tests and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenSessions opens a sessions.Store for tests and registers cleanup.
func MustOpenSessions(t testing.TB, cfg *config.Config) *sessions.Store {
	t.Helper()

	store, err := sessions.Open(cfg)
	if err != nil {
		t.Fatalf("sessions.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustNewManager wires a staging manager over freshly opened test stores.
func MustNewManager(t testing.TB, cfg *config.Config, store *sessions.Store, cat *catalog.Store) *sessions.Manager {
	t.Helper()

	manager, err := sessions.NewManager(cfg, store, cat, logging.NewNop())
	if err != nil {
		t.Fatalf("sessions.NewManager: %v", err)
	}
	return manager
}

// MustNewEngine wires a matching engine over freshly opened test stores.
func MustNewEngine(t testing.TB, cfg *config.Config, cat *catalog.Store, store *sessions.Store) *matching.Engine {
	t.Helper()

	engine, err := matching.NewEngine(cfg, cat, store, logging.NewNop())
	if err != nil {
		t.Fatalf("matching.NewEngine: %v", err)
	}
	return engine
}
