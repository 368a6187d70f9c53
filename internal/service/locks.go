package service

import "sync"

// threadLocks serializes read-reduce-persist cycles per thread id.
// Events for different tickets proceed in parallel; two events for the
// same ticket never interleave their read of current state with their
// write of new state. Entries are never evicted: the table is bounded
// by the ticket population, which is thousands of rows, not millions.
type threadLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newThreadLocks() *threadLocks {
	return &threadLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for a thread id and returns its release func.
func (l *threadLocks) lock(threadID string) func() {
	l.mu.Lock()
	m, ok := l.locks[threadID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[threadID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
