package sessions

import (
	"sync"
	"testing"
)

func TestKeyedLocksSerializePerKey(t *testing.T) {
	locks := newKeyedLocks()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		holders int
		maxHeld int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.acquire(7)
			defer unlock()

			mu.Lock()
			holders++
			if holders > maxHeld {
				maxHeld = holders
			}
			mu.Unlock()

			mu.Lock()
			holders--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxHeld != 1 {
		t.Fatalf("expected one holder at a time for a single key, saw %d", maxHeld)
	}
}

func TestKeyedLocksReleaseEntries(t *testing.T) {
	locks := newKeyedLocks()

	unlockA := locks.acquire(1)
	unlockB := locks.acquire(2)
	if len(locks.locks) != 2 {
		t.Fatalf("expected 2 live entries, got %d", len(locks.locks))
	}

	unlockA()
	unlockB()
	if len(locks.locks) != 0 {
		t.Fatalf("expected released entries to be dropped, got %d", len(locks.locks))
	}

	// Reacquiring after release works on a fresh entry.
	unlock := locks.acquire(1)
	unlock()
	if len(locks.locks) != 0 {
		t.Fatalf("expected empty map after reacquire cycle, got %d", len(locks.locks))
	}
}
