package circuitbreaker

import "time"

// Pure transition functions. They take explicit inputs and a clock value
// so state machine behavior can be tested without a live circuit.

// Tripped reports whether the counters have crossed the health
// thresholds. Integer arithmetic keeps the percentage comparison exact:
// errors/total*100 >= threshold becomes errors*100 >= threshold*total.
func Tripped(total, errors int64, settings Settings) bool {
	if total < int64(settings.RequestVolumeThreshold) {
		return false
	}

	return errors*100 >= int64(settings.ErrorThresholdPercentage)*total
}

// NextOnFailure computes the state and sleep-window expiry that follow a
// recorded failure. Tripping starts a sleep window at now+SleepWindow;
// otherwise state and expiry pass through unchanged.
func NextOnFailure(state State, total, errors int64, settings Settings, expiry time.Time, now time.Time) (State, time.Time) {
	if Tripped(total, errors, settings) {
		return StateOpen, now.Add(settings.SleepWindow)
	}

	return state, expiry
}

// NextOnRecovery applies the lazy OPEN -> HALF_OPEN transition: once a
// running sleep window has passed, the circuit moves to HALF_OPEN and
// the expiry is cleared. Otherwise state and expiry are kept verbatim.
func NextOnRecovery(state State, expiry time.Time, now time.Time) (State, time.Time) {
	if !expiry.IsZero() && now.After(expiry) {
		return StateHalfOpen, time.Time{}
	}

	return state, expiry
}
