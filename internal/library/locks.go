package library

import (
	"path/filepath"
	"sort"
	"sync"
)

// Locks hands out one mutex per file path. Two operations on the same
// recording run one after the other; different recordings proceed in
// parallel.
type Locks struct {
	mu    sync.Mutex
	paths map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

// NewLocks returns an empty lock table.
func NewLocks() *Locks {
	return &Locks{paths: make(map[string]*pathLock)}
}

// Lock acquires every path and returns the release func. Paths are taken in
// sorted order so overlapping callers cannot deadlock.
func (l *Locks) Lock(paths ...string) (unlock func()) {
	keys := make([]string, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		k := filepath.Clean(p)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	held := make([]*pathLock, 0, len(keys))
	for _, k := range keys {
		l.mu.Lock()
		pl, ok := l.paths[k]
		if !ok {
			pl = &pathLock{}
			l.paths[k] = pl
		}
		pl.refs++
		l.mu.Unlock()

		pl.mu.Lock()
		held = append(held, pl)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				held[i].mu.Unlock()
				l.mu.Lock()
				held[i].refs--
				if held[i].refs == 0 {
					delete(l.paths, keys[i])
				}
				l.mu.Unlock()
			}
		})
	}
}

// Held reports how many paths currently have a holder or waiter.
func (l *Locks) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.paths)
}
