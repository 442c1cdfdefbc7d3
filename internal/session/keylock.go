package session

import "sync"

// KeyedMutex grants exclusive access per user key. Distinct keys never block
// each other; two holders of the same key are strictly serialized, which is
// the discipline the transition engine needs around its read-modify-write.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[int64]*keyEntry
}

type keyEntry struct {
	sync.Mutex
	refs int
}

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[int64]*keyEntry)}
}

// Lock acquires the lock for key and returns the matching unlock function.
// Entries are reference counted so the map does not grow with user churn.
func (k *KeyedMutex) Lock(key int64) func() {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &keyEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.Lock()
	return func() {
		e.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
