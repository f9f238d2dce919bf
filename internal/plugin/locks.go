package plugin

import (
	"sync"

	"golang.org/x/sync/semaphore"
)

type lockKey struct {
	plugin   string
	function string
}

// lockTable hands out one mutual-exclusion gate per (plugin title, function
// name). Gates are created on first use and never removed.
type lockTable struct {
	mu    sync.Mutex
	locks map[lockKey]*semaphore.Weighted
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[lockKey]*semaphore.Weighted)}
}

func (t *lockTable) get(h *Hook) *semaphore.Weighted {
	key := lockKey{plugin: h.Plugin.Title, function: h.Function}

	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[key]
	if !ok {
		l = semaphore.NewWeighted(1)
		t.locks[key] = l
	}
	return l
}

func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
