// Package circuitbreaker implements the per-command circuit breaker state
// machine, its registry, and the persisted snapshot store.
//
// A circuit breaker disables a risky call once its recent error rate
// crosses a threshold and periodically probes for recovery. It has three
// states:
//
//   - CLOSED: Normal operation, calls admitted
//   - OPEN: Calls rejected until the sleep window elapses
//   - HALF-OPEN: A probe call tests whether the dependency recovered
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(nil, nil)
//	circuit := registry.Resolve("fetch-user", circuitbreaker.Settings{
//	    RequestVolumeThreshold:   10,
//	    ErrorThresholdPercentage: 50,
//	    SleepWindow:              3 * time.Second,
//	})
//	circuit.RecordCall()
//	if circuit.Admits() {
//	    // Run the call...
//	    if err != nil {
//	        circuit.RecordFailure()
//	    } else {
//	        circuit.RecordSuccess()
//	    }
//	}
//	registry.Commit(circuit)
//
// State transitions run through the pure functions in transition.go; the
// only place OPEN moves to HALF-OPEN is Registry.Resolve, lazily, once
// the sleep window has passed.
package circuitbreaker
