package recipes

import (
	"sync"

	"github.com/google/uuid"
)

// keyLocks provides single-writer semantics per (organization, recipe) key.
// Mutating document operations run under the key's lock so version numbering
// and draft/published consistency never race; reads of other keys stay
// lock-free, which keeps sub-recipe fan-out parallel.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for the supplied key and returns its release
// function. Lock entries are retained for the process lifetime; the key space
// is bounded by the number of distinct documents an instance touches.
func (k *keyLocks) acquire(orgID, recipeID uuid.UUID) func() {
	key := orgID.String() + "/" + recipeID.String()

	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = new(sync.Mutex)
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
