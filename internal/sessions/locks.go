package sessions

import "sync"

// keyedLocks serializes mutating operations per session identifier so two
// concurrent membership writes cannot interleave their read-modify-write.
// Operations on different sessions proceed in parallel. Entries are
// refcounted and dropped once no holder or waiter remains, so the map does
// not grow with every session ever touched.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[int64]*lockEntry)}
}

func (k *keyedLocks) acquire(id int64) func() {
	k.mu.Lock()
	entry, ok := k.locks[id]
	if !ok {
		entry = &lockEntry{}
		k.locks[id] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
