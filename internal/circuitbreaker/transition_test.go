package circuitbreaker_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/circuitguard/internal/circuitbreaker"
)

var _ = Describe("Transition functions", func() {
	settings := circuitbreaker.Settings{
		RequestVolumeThreshold:   10,
		ErrorThresholdPercentage: 50,
		SleepWindow:              3 * time.Second,
	}

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	Describe("Tripped", func() {
		DescribeTable("threshold evaluation",
			func(total, errors int64, s circuitbreaker.Settings, expected bool) {
				Expect(circuitbreaker.Tripped(total, errors, s)).To(Equal(expected))
			},
			Entry("below request volume", int64(9), int64(9), settings, false),
			Entry("at volume, rate at threshold", int64(10), int64(5), settings, true),
			Entry("at volume, rate below threshold", int64(10), int64(4), settings, false),
			Entry("high volume, low rate", int64(1000), int64(10), settings, false),
			Entry("zero volume threshold checks on first error",
				int64(1), int64(1),
				circuitbreaker.Settings{RequestVolumeThreshold: 0, ErrorThresholdPercentage: 10},
				true),
			Entry("exact integer percentage boundary",
				int64(100), int64(10),
				circuitbreaker.Settings{RequestVolumeThreshold: 0, ErrorThresholdPercentage: 10},
				true),
			Entry("just under integer percentage boundary",
				int64(100), int64(9),
				circuitbreaker.Settings{RequestVolumeThreshold: 0, ErrorThresholdPercentage: 10},
				false),
		)
	})

	Describe("NextOnFailure", func() {
		It("should open the circuit and start the sleep window when tripped", func() {
			state, expiry := circuitbreaker.NextOnFailure(
				circuitbreaker.StateClosed, 10, 5, settings, time.Time{}, now)

			Expect(state).To(Equal(circuitbreaker.StateOpen))
			Expect(expiry).To(Equal(now.Add(3 * time.Second)))
		})

		It("should pass state and expiry through when not tripped", func() {
			state, expiry := circuitbreaker.NextOnFailure(
				circuitbreaker.StateClosed, 10, 2, settings, time.Time{}, now)

			Expect(state).To(Equal(circuitbreaker.StateClosed))
			Expect(expiry.IsZero()).To(BeTrue())
		})

		It("should reopen a half-open circuit with stale counters", func() {
			state, expiry := circuitbreaker.NextOnFailure(
				circuitbreaker.StateHalfOpen, 11, 6, settings, time.Time{}, now)

			Expect(state).To(Equal(circuitbreaker.StateOpen))
			Expect(expiry).To(Equal(now.Add(3 * time.Second)))
		})
	})

	Describe("NextOnRecovery", func() {
		It("should keep an open circuit open while the window runs", func() {
			expiry := now.Add(time.Second)
			state, next := circuitbreaker.NextOnRecovery(circuitbreaker.StateOpen, expiry, now)

			Expect(state).To(Equal(circuitbreaker.StateOpen))
			Expect(next).To(Equal(expiry))
		})

		It("should move to half-open and clear the expiry once the window passed", func() {
			expiry := now.Add(-time.Millisecond)
			state, next := circuitbreaker.NextOnRecovery(circuitbreaker.StateOpen, expiry, now)

			Expect(state).To(Equal(circuitbreaker.StateHalfOpen))
			Expect(next.IsZero()).To(BeTrue())
		})

		It("should leave a closed circuit without a window untouched", func() {
			state, next := circuitbreaker.NextOnRecovery(circuitbreaker.StateClosed, time.Time{}, now)

			Expect(state).To(Equal(circuitbreaker.StateClosed))
			Expect(next.IsZero()).To(BeTrue())
		})
	})
})
