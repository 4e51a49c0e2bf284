package circuitbreaker

import (
	"sync"
	"time"
)

type State int

const (
	StateClosed   State = iota // Calls admitted, outcome bookkeeping only
	StateOpen                  // Calls skipped, fallback runs immediately
	StateHalfOpen              // Calls admitted as recovery probes
)

// Settings are the per-key thresholds a circuit is created with. Once
// resolved (overrides winning over caller-supplied defaults) they stay
// fixed for the lifetime of the circuit.
type Settings struct {
	RequestVolumeThreshold   int
	ErrorThresholdPercentage int
	SleepWindow              time.Duration
}

// Circuit tracks call outcomes for a single command key and decides
// admission. One instance per key, created lazily, never destroyed.
// All counter and state mutation is mutex-guarded because concurrent
// executions under the same key share the instance.
type Circuit struct {
	mutex     sync.Mutex
	key       string
	state     State
	total     int64
	errors    int64
	settings  Settings
	expiry    time.Time // zero when no sleep window is running
	forceOpen bool
}

func newCircuit(key string, settings Settings, forceOpen bool) *Circuit {
	return &Circuit{
		key:       key,
		state:     StateClosed,
		settings:  settings,
		forceOpen: forceOpen,
	}
}

func (c *Circuit) Key() string {
	return c.key
}

func (c *Circuit) State() State {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.state
}

// Counts returns the working counters. errors <= total always holds.
func (c *Circuit) Counts() (total, errors int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.total, c.errors
}

func (c *Circuit) Settings() Settings {
	return c.settings
}

// RecordCall counts an execution attempt. It runs before the admission
// check, so calls rejected at the gate are counted too.
func (c *Circuit) RecordCall() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.total++
}

// Admits reports whether a call may run the action. A force-open
// circuit never admits, regardless of state.
func (c *Circuit) Admits() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return !c.forceOpen && (c.state == StateClosed || c.state == StateHalfOpen)
}

// IsProbing reports whether the next admitted call is a recovery probe.
func (c *Circuit) IsProbing() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.state == StateHalfOpen
}

// RecordSuccess closes the circuit and resets the counters when the
// successful call was a recovery probe. Outside of probing it is pure
// bookkeeping: the call was already counted by RecordCall.
func (c *Circuit) RecordSuccess() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.state == StateHalfOpen {
		c.state = StateClosed
		c.total = 0
		c.errors = 0
	}
}

// RecordFailure counts the error and runs the threshold check, which may
// trip the circuit OPEN and start a sleep window. Counters are not reset
// on entering HALF_OPEN, so a failing probe reopens the circuit
// immediately whenever the historical error ratio already tripped it.
func (c *Circuit) RecordFailure() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.errors++
	c.state, c.expiry = NextOnFailure(c.state, c.total, c.errors, c.settings, c.expiry, time.Now())
}

func (c *Circuit) setForceOpen(forceOpen bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.forceOpen = forceOpen
}

func (c *Circuit) snapshot() Snapshot {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return Snapshot{
		Key:        c.key,
		State:      c.state,
		TotalCalls: c.total,
		ErrorCalls: c.errors,
		Expiry:     c.expiry,
	}
}

// restore merges a persisted snapshot into the working counters. The
// lazy OPEN -> HALF_OPEN transition happens here and only here, once the
// sleep window has passed. Snapshot counters are adopted only when they
// are ahead of the live ones: a concurrent execution may have counted a
// call it has not committed yet, and a reload must not erase it. Since
// committed snapshots keep errors <= total, taking the per-counter
// maximum preserves that invariant.
func (c *Circuit) restore(snap Snapshot, now time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if snap.TotalCalls > c.total {
		c.total = snap.TotalCalls
	}
	if snap.ErrorCalls > c.errors {
		c.errors = snap.ErrorCalls
	}

	c.state, c.expiry = NextOnRecovery(c.state, c.expiry, now)
}

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}
