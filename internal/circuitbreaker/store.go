package circuitbreaker

import (
	"sync"
	"time"
)

// Snapshot mirrors a circuit's persisted counters and state. It is
// written exactly once per logical execution (via Registry.Commit) and
// read back whenever the circuit for that key is resolved again.
type Snapshot struct {
	Key        string
	State      State
	TotalCalls int64
	ErrorCalls int64
	Expiry     time.Time
}

// SnapshotStore persists per-key circuit snapshots, decoupled from the
// live Circuit objects. The default is an in-memory map; the interface
// exists so a shared or external store can be swapped in without
// touching the state machine.
type SnapshotStore interface {
	Load(key string) (Snapshot, bool)
	Save(snap Snapshot)
}

type MemoryStore struct {
	mutex sync.RWMutex
	snaps map[string]Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snaps: make(map[string]Snapshot),
	}
}

func (s *MemoryStore) Load(key string) (Snapshot, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	snap, ok := s.snaps[key]
	return snap, ok
}

func (s *MemoryStore) Save(snap Snapshot) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.snaps[snap.Key] = snap
}
