// Package selection maintains the set of file identifiers a user has
// designated for staging across paginated, filtered catalog views.
package selection

import (
	"context"
	"sort"
	"sync"

	"starstage/internal/catalog"
)

// Mode is the tracker's semantic state. Callers adjust confirmation prompts
// on it, so it is a first-class value rather than implied booleans.
type Mode string

const (
	ModeEmpty       Mode = "empty"
	ModeExplicit    Mode = "explicit"
	ModeAllFiltered Mode = "all_filtered"
)

// Resolver resolves a filter predicate against the full catalog, not just a
// displayed page.
type Resolver interface {
	ListFileIDs(ctx context.Context, filter catalog.Filter) ([]int64, error)
}

// Tracker is a client-session-scoped selection of file identifiers. It is
// safe for concurrent use.
type Tracker struct {
	mu          sync.Mutex
	allFiltered bool
	ids         map[int64]struct{}
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{ids: make(map[int64]struct{})}
}

// Toggle adds the identifier when absent and removes it when present.
// Removing an identifier while in all-filtered mode drops back to explicit
// mode: the selection is no longer "all".
func (t *Tracker) Toggle(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.ids[id]; ok {
		delete(t.ids, id)
		t.allFiltered = false
		return
	}
	t.ids[id] = struct{}{}
}

// Add inserts an identifier without toggling.
func (t *Tracker) Add(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ids[id] = struct{}{}
}

// Remove drops an identifier. Like Toggle, this exits all-filtered mode.
func (t *Tracker) Remove(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.ids[id]; ok {
		delete(t.ids, id)
		t.allFiltered = false
	}
}

// SelectAllFiltered resolves the active filter against the full catalog and
// replaces the selection with the result. The resolved identifiers are stored
// explicitly: later catalog changes do not retroactively alter the selection.
func (t *Tracker) SelectAllFiltered(ctx context.Context, resolver Resolver, filter catalog.Filter) (int, error) {
	ids, err := resolver.ListFileIDs(ctx, filter)
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.ids = make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		t.ids[id] = struct{}{}
	}
	t.allFiltered = len(ids) > 0
	return len(ids), nil
}

// FilterChanged records that the active filter no longer matches the one the
// selection was resolved from; an all-filtered selection falls back to an
// explicit one.
func (t *Tracker) FilterChanged() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.allFiltered = false
}

// Clear empties the selection. It is distinct from removing every identifier
// so callers can treat "cleared" as an intentional state.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ids = make(map[int64]struct{})
	t.allFiltered = false
}

// IDs returns the selected identifiers in ascending order.
func (t *Tracker) IDs() []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]int64, 0, len(t.ids))
	for id := range t.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Count returns the number of selected identifiers.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ids)
}

// Mode reports the tracker's semantic state.
func (t *Tracker) Mode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case len(t.ids) == 0:
		return ModeEmpty
	case t.allFiltered:
		return ModeAllFiltered
	default:
		return ModeExplicit
	}
}
