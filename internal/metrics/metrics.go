package metrics

import (
	"sort"
	"sync"
	"time"
)

type Metrics struct {
	mutex      sync.RWMutex
	executions map[string]int64
	successes  map[string]int64
	failures   map[string]int64
	timeouts   map[string]int64
	rejections map[string]int64
	fallbacks  map[string]int64
	filtered   map[string]int64
	latencies  map[string][]time.Duration
	startTime  time.Time
}

type Snapshot struct {
	TotalExecutions int64                     `json:"total_executions"`
	Uptime          time.Duration             `json:"uptime"`
	Commands        map[string]CommandMetrics `json:"commands"`
}

type CommandMetrics struct {
	Executions int64         `json:"executions"`
	Successes  int64         `json:"successes"`
	Failures   int64         `json:"failures"`
	Timeouts   int64         `json:"timeouts"`
	Rejections int64         `json:"rejections"`
	Fallbacks  int64         `json:"fallbacks"`
	Filtered   int64         `json:"filtered"`
	AvgLatency time.Duration `json:"avg_latency"`
	P50Latency time.Duration `json:"p50_latency"`
	P95Latency time.Duration `json:"p95_latency"`
	P99Latency time.Duration `json:"p99_latency"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		executions: make(map[string]int64),
		successes:  make(map[string]int64),
		failures:   make(map[string]int64),
		timeouts:   make(map[string]int64),
		rejections: make(map[string]int64),
		fallbacks:  make(map[string]int64),
		filtered:   make(map[string]int64),
		latencies:  make(map[string][]time.Duration),
		startTime:  time.Now(),
	}
}

func (m *Metrics) RecordSuccess(key string, latency time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.executions[key]++
	m.successes[key]++
	m.recordLatency(key, latency)
}

func (m *Metrics) RecordFailure(key string, latency time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.executions[key]++
	m.failures[key]++
	m.recordLatency(key, latency)
}

func (m *Metrics) RecordTimeout(key string, latency time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.executions[key]++
	m.timeouts[key]++
	m.recordLatency(key, latency)
}

func (m *Metrics) RecordRejection(key string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.executions[key]++
	m.rejections[key]++
}

func (m *Metrics) RecordFallback(key string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.fallbacks[key]++
}

func (m *Metrics) RecordFiltered(key string, latency time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.executions[key]++
	m.filtered[key]++
	m.recordLatency(key, latency)
}

// recordLatency keeps a bounded window of recent action latencies per
// command. Caller must hold the write lock.
func (m *Metrics) recordLatency(key string, latency time.Duration) {
	m.latencies[key] = append(m.latencies[key], latency)

	if len(m.latencies[key]) > 1000 {
		m.latencies[key] = m.latencies[key][1:]
	}
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:   time.Since(m.startTime),
		Commands: make(map[string]CommandMetrics),
	}

	for key, executions := range m.executions {
		snap.TotalExecutions += executions

		cm := CommandMetrics{
			Executions: executions,
			Successes:  m.successes[key],
			Failures:   m.failures[key],
			Timeouts:   m.timeouts[key],
			Rejections: m.rejections[key],
			Fallbacks:  m.fallbacks[key],
			Filtered:   m.filtered[key],
		}

		latencies := m.latencies[key]
		if len(latencies) > 0 {
			sorted := make([]time.Duration, len(latencies))
			copy(sorted, latencies)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			cm.AvgLatency = average(sorted)
			cm.P50Latency = percentile(sorted, 0.50)
			cm.P95Latency = percentile(sorted, 0.95)
			cm.P99Latency = percentile(sorted, 0.99)
		}

		snap.Commands[key] = cm
	}

	return snap
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
