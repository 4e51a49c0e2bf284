package circuitbreaker_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/circuitguard/internal/circuitbreaker"
	"github.com/angeloszaimis/circuitguard/internal/overrides"
)

var _ = Describe("Registry", func() {
	var registry *circuitbreaker.Registry

	BeforeEach(func() {
		registry = circuitbreaker.NewRegistry(nil, nil)
	})

	Describe("Resolve", func() {
		It("should create a new closed circuit for an unknown key", func() {
			circuit := registry.Resolve("fetch-user", defaultSettings())
			Expect(circuit).NotTo(BeNil())
			Expect(circuit.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should return the same circuit for the same key", func() {
			c1 := registry.Resolve("fetch-user", defaultSettings())
			c2 := registry.Resolve("fetch-user", defaultSettings())
			Expect(c1).To(BeIdenticalTo(c2))
		})

		It("should return different circuits for different keys", func() {
			c1 := registry.Resolve("fetch-user", defaultSettings())
			c2 := registry.Resolve("fetch-order", defaultSettings())
			Expect(c1).NotTo(BeIdenticalTo(c2))
		})

		It("should apply the supplied defaults when no overrides exist", func() {
			circuit := registry.Resolve("fetch-user", circuitbreaker.Settings{
				RequestVolumeThreshold:   7,
				ErrorThresholdPercentage: 33,
				SleepWindow:              time.Second,
			})

			Expect(circuit.Settings().RequestVolumeThreshold).To(Equal(7))
			Expect(circuit.Settings().ErrorThresholdPercentage).To(Equal(33))
			Expect(circuit.Settings().SleepWindow).To(Equal(time.Second))
		})

		It("should let resolver overrides win over supplied defaults", func() {
			resolver := &overrides.Static{
				RequestVolumeThresholds: map[string]int{"fetch-user": 20},
				ErrorThresholds:         map[string]int{"fetch-user": 75},
				SleepWindows:            map[string]time.Duration{"fetch-user": 5 * time.Second},
			}
			registry = circuitbreaker.NewRegistry(nil, resolver)

			circuit := registry.Resolve("fetch-user", defaultSettings())
			Expect(circuit.Settings().RequestVolumeThreshold).To(Equal(20))
			Expect(circuit.Settings().ErrorThresholdPercentage).To(Equal(75))
			Expect(circuit.Settings().SleepWindow).To(Equal(5 * time.Second))
		})
	})

	Describe("Commit and reload", func() {
		It("should round-trip counters through the snapshot store", func() {
			circuit := registry.Resolve("fetch-user", defaultSettings())
			circuit.RecordCall()
			circuit.RecordCall()
			circuit.RecordFailure()
			registry.Commit(circuit)

			reloaded := registry.Resolve("fetch-user", defaultSettings())
			total, errors := reloaded.Counts()
			Expect(total).To(Equal(int64(2)))
			Expect(errors).To(Equal(int64(1)))
		})

		It("should restore a committed open state verbatim while the window runs", func() {
			settings := circuitbreaker.Settings{
				RequestVolumeThreshold:   1,
				ErrorThresholdPercentage: 1,
				SleepWindow:              time.Minute,
			}
			circuit := registry.Resolve("fetch-user", settings)
			circuit.RecordCall()
			circuit.RecordFailure()
			Expect(circuit.State()).To(Equal(circuitbreaker.StateOpen))
			registry.Commit(circuit)

			reloaded := registry.Resolve("fetch-user", settings)
			Expect(reloaded.State()).To(Equal(circuitbreaker.StateOpen))
			Expect(reloaded.Admits()).To(BeFalse())
		})

		It("should overwrite prior snapshots on commit", func() {
			circuit := registry.Resolve("fetch-user", defaultSettings())
			circuit.RecordCall()
			registry.Commit(circuit)

			circuit.RecordCall()
			registry.Commit(circuit)

			reloaded := registry.Resolve("fetch-user", defaultSettings())
			total, _ := reloaded.Counts()
			Expect(total).To(Equal(int64(2)))
		})

		It("should not erase in-flight counts when another lookup reloads the snapshot", func() {
			circuit := registry.Resolve("fetch-user", defaultSettings())
			circuit.RecordCall()
			circuit.RecordFailure()
			registry.Commit(circuit)

			// A second execution counts its call, then a third lookup
			// reloads the committed snapshot before the second commits.
			inflight := registry.Resolve("fetch-user", defaultSettings())
			inflight.RecordCall()
			registry.Resolve("fetch-user", defaultSettings())

			inflight.RecordFailure()

			total, errors := inflight.Counts()
			Expect(errors).To(BeNumerically("<=", total))
			Expect(total).To(Equal(int64(2)))
			Expect(errors).To(Equal(int64(2)))
		})

		It("should keep errors within totals under concurrent resolve and record cycles", func() {
			const goroutines = 50

			var wg sync.WaitGroup
			wg.Add(goroutines)

			for i := 0; i < goroutines; i++ {
				go func() {
					defer wg.Done()
					circuit := registry.Resolve("fetch-user", defaultSettings())
					circuit.RecordCall()
					circuit.RecordFailure()
					registry.Commit(circuit)
				}()
			}

			wg.Wait()

			circuit := registry.Resolve("fetch-user", defaultSettings())
			total, errors := circuit.Counts()
			Expect(errors).To(BeNumerically("<=", total))
		})

		It("should accept a custom snapshot store", func() {
			store := circuitbreaker.NewMemoryStore()
			registry = circuitbreaker.NewRegistry(store, nil)

			circuit := registry.Resolve("fetch-user", defaultSettings())
			circuit.RecordCall()
			registry.Commit(circuit)

			snap, ok := store.Load("fetch-user")
			Expect(ok).To(BeTrue())
			Expect(snap.TotalCalls).To(Equal(int64(1)))
			Expect(snap.State).To(Equal(circuitbreaker.StateClosed))
		})
	})

	Describe("Concurrent access", func() {
		It("should hand out a single circuit per key under contention", func() {
			const goroutines = 100

			var wg sync.WaitGroup
			wg.Add(goroutines)

			for i := 0; i < goroutines; i++ {
				go func() {
					defer wg.Done()
					circuit := registry.Resolve("fetch-user", defaultSettings())
					Expect(circuit).NotTo(BeNil())
				}()
			}

			wg.Wait()

			Expect(registry.Stats()).To(HaveLen(1))
		})

		It("should survive concurrent outcome recording on one circuit", func() {
			const goroutines = 50

			circuit := registry.Resolve("fetch-user", defaultSettings())

			var wg sync.WaitGroup
			wg.Add(goroutines * 2)

			for i := 0; i < goroutines; i++ {
				go func() {
					defer wg.Done()
					circuit.RecordCall()
					circuit.RecordFailure()
				}()
				go func() {
					defer wg.Done()
					circuit.RecordCall()
					circuit.RecordSuccess()
				}()
			}

			wg.Wait()

			state := circuit.State()
			Expect(state).To(BeElementOf(
				circuitbreaker.StateClosed,
				circuitbreaker.StateOpen,
				circuitbreaker.StateHalfOpen,
			))

			total, errors := circuit.Counts()
			Expect(errors).To(BeNumerically("<=", total))
		})
	})

	Describe("StateOf", func() {
		It("should not create circuits", func() {
			_, known := registry.StateOf("fetch-user")
			Expect(known).To(BeFalse())
			Expect(registry.Stats()).To(BeEmpty())
		})

		It("should report the state of known circuits", func() {
			registry.Resolve("fetch-user", defaultSettings())
			state, known := registry.StateOf("fetch-user")
			Expect(known).To(BeTrue())
			Expect(state).To(Equal(circuitbreaker.StateClosed))
		})
	})

	Describe("Stats", func() {
		It("should expose per-key state and counters", func() {
			healthy := registry.Resolve("fetch-user", defaultSettings())
			healthy.RecordCall()

			failing := registry.Resolve("fetch-order", defaultSettings())
			for i := 0; i < 3; i++ {
				failing.RecordCall()
				failing.RecordFailure()
			}

			stats := registry.Stats()
			Expect(stats).To(HaveLen(2))
			Expect(stats["fetch-user"].State).To(Equal("CLOSED"))
			Expect(stats["fetch-user"].TotalCalls).To(Equal(int64(1)))
			Expect(stats["fetch-order"].State).To(Equal("OPEN"))
			Expect(stats["fetch-order"].ErrorCalls).To(Equal(int64(3)))
		})
	})

	Describe("Reset", func() {
		It("should drop all circuits", func() {
			registry.Resolve("fetch-user", defaultSettings())
			registry.Resolve("fetch-order", defaultSettings())
			Expect(registry.Stats()).To(HaveLen(2))

			registry.Reset()
			Expect(registry.Stats()).To(BeEmpty())
		})
	})
})
