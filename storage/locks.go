package storage

import (
	"bytes"
	"slices"
	"sync"
)

// keyLocks hands out one mutex per key. Entries are reference counted and
// dropped when nobody holds or waits for them.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

// lock acquires the locks of keys in sorted order, skipping duplicates, and
// returns the function that releases them.
func (l *keyLocks) lock(keys [][]byte) func() {
	sorted := slices.Clone(keys)
	slices.SortFunc(sorted, bytes.Compare)
	sorted = slices.CompactFunc(sorted, bytes.Equal)

	held := make([]string, 0, len(sorted))
	for _, k := range sorted {
		name := string(k)
		l.acquire(name).Lock()
		held = append(held, name)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.release(held[i])
		}
	}
}

func (l *keyLocks) acquire(name string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[name]
	if !ok {
		kl = &keyLock{}
		l.locks[name] = kl
	}
	kl.refs++
	return &kl.mu
}

func (l *keyLocks) release(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl := l.locks[name]
	kl.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, name)
	}
}

// size returns the number of live lock entries.
func (l *keyLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
