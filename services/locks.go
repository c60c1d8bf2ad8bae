package services

import (
	"sync"
)

// roomLocks is the per-room serializing boundary. Every read-then-write
// mutation of a room's state (joining, starting, answering, ending,
// finishing) runs while holding that room's mutex; different rooms
// proceed fully in parallel. Broadcast messages are collected under the
// lock and published only after it is released.
type roomLocks struct {
	locks sync.Map // room id -> *sync.Mutex
}

// lock acquires the room's mutex and returns its unlock func.
func (l *roomLocks) lock(roomID string) func() {
	actual, _ := l.locks.LoadOrStore(roomID, &sync.Mutex{})
	mu := actual.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
