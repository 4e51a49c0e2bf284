package circuitbreaker

import (
	"sync"
	"time"

	"github.com/angeloszaimis/circuitguard/internal/overrides"
)

// Registry maps command keys to their Circuit instances. It is an
// explicitly owned object rather than a package-level singleton, so
// callers (and tests) control its lifetime and isolation.
type Registry struct {
	mutex     sync.RWMutex
	circuits  map[string]*Circuit
	store     SnapshotStore
	overrides overrides.Resolver
}

// CircuitStats is a read-only view of one circuit for reporting.
type CircuitStats struct {
	State      string `json:"state"`
	TotalCalls int64  `json:"total_calls"`
	ErrorCalls int64  `json:"error_calls"`
}

// NewRegistry creates a registry backed by the given snapshot store and
// override resolver. A nil store falls back to the in-memory default; a
// nil resolver means no per-key overrides.
func NewRegistry(store SnapshotStore, resolver overrides.Resolver) *Registry {
	if store == nil {
		store = NewMemoryStore()
	}

	if resolver == nil {
		resolver = overrides.None{}
	}

	return &Registry{
		circuits:  make(map[string]*Circuit),
		store:     store,
		overrides: resolver,
	}
}

// Resolve returns the circuit for key, creating it on first use. An
// existing circuit merges in its persisted snapshot (counters adopted
// only when ahead of the live ones), and this is where the lazy
// OPEN -> HALF_OPEN transition runs; its force-open flag is re-read
// from the override resolver on every lookup. A new circuit starts
// CLOSED with zeroed counters, with overrides winning over the supplied
// defaults.
func (r *Registry) Resolve(key string, defaults Settings) *Circuit {
	r.mutex.RLock()
	c, exists := r.circuits[key]
	r.mutex.RUnlock()

	if exists {
		return r.reload(c)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check: another goroutine may have created it
	if c, exists = r.circuits[key]; exists {
		return r.reload(c)
	}

	c = newCircuit(key, r.resolveSettings(key, defaults), r.overrides.ForceOpen(key))
	r.circuits[key] = c
	return c
}

// Commit persists the circuit's snapshot, overwriting any prior one.
// Call it exactly once per execution.
func (r *Registry) Commit(c *Circuit) {
	r.store.Save(c.snapshot())
}

func (r *Registry) reload(c *Circuit) *Circuit {
	if snap, ok := r.store.Load(c.Key()); ok {
		c.restore(snap, time.Now())
	}

	c.setForceOpen(r.overrides.ForceOpen(c.Key()))
	return c
}

func (r *Registry) resolveSettings(key string, defaults Settings) Settings {
	settings := defaults

	if v, ok := r.overrides.RequestVolumeThreshold(key); ok {
		settings.RequestVolumeThreshold = v
	}

	if v, ok := r.overrides.ErrorThresholdPercentage(key); ok {
		settings.ErrorThresholdPercentage = v
	}

	if v, ok := r.overrides.SleepWindow(key); ok {
		settings.SleepWindow = v
	}

	return settings
}

// StateOf reports the current state of the circuit for key, without
// creating one.
func (r *Registry) StateOf(key string) (State, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	c, exists := r.circuits[key]
	if !exists {
		return StateClosed, false
	}

	return c.State(), true
}

// Stats returns a per-key view of all known circuits.
func (r *Registry) Stats() map[string]CircuitStats {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]CircuitStats, len(r.circuits))
	for key, c := range r.circuits {
		total, errors := c.Counts()
		stats[key] = CircuitStats{
			State:      c.State().String(),
			TotalCalls: total,
			ErrorCalls: errors,
		}
	}

	return stats
}

// Reset drops all circuits. Intended for tests.
func (r *Registry) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.circuits = make(map[string]*Circuit)
}
