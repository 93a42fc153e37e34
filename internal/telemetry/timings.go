package telemetry

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Timings tracks duration statistics for named operations (bundle loads,
// pipeline stages). It is safe for concurrent use.
type Timings struct {
	mu      sync.RWMutex
	metrics map[string]*Timing
}

// Timing holds the statistics for one operation.
type Timing struct {
	Name  string
	Count int64
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
	Last  time.Duration
}

// Average returns the mean duration across recorded calls.
func (t *Timing) Average() time.Duration {
	if t.Count == 0 {
		return 0
	}
	return t.Total / time.Duration(t.Count)
}

// NewTimings creates an empty timing collector.
func NewTimings() *Timings {
	return &Timings{metrics: make(map[string]*Timing)}
}

// Record adds one duration sample for the named operation.
func (t *Timings) Record(name string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	metric, exists := t.metrics[name]
	if !exists {
		metric = &Timing{Name: name, Min: d, Max: d}
		t.metrics[name] = metric
	}

	metric.Count++
	metric.Total += d
	metric.Last = d
	if d < metric.Min {
		metric.Min = d
	}
	if d > metric.Max {
		metric.Max = d
	}
}

// Get returns a copy of the statistics for one operation, or nil.
func (t *Timings) Get(name string) *Timing {
	t.mu.RLock()
	defer t.mu.RUnlock()

	metric, exists := t.metrics[name]
	if !exists {
		return nil
	}
	copied := *metric
	return &copied
}

// Report renders the collected statistics as a table.
func (t *Timings) Report() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.metrics) == 0 {
		return "no timings recorded"
	}

	report := fmt.Sprintf("%-32s %8s %10s %10s %10s\n", "Operation", "Count", "Avg", "Min", "Max")
	for _, metric := range t.metrics {
		report += fmt.Sprintf("%-32s %8d %10s %10s %10s\n",
			metric.Name,
			metric.Count,
			metric.Average().Round(time.Millisecond),
			metric.Min.Round(time.Millisecond),
			metric.Max.Round(time.Millisecond),
		)
	}
	return report
}

// JSON renders the collected statistics for the stats endpoint.
func (t *Timings) JSON() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	type timingJSON struct {
		Count int64         `json:"count"`
		Avg   time.Duration `json:"avg_ns"`
		Min   time.Duration `json:"min_ns"`
		Max   time.Duration `json:"max_ns"`
		Last  time.Duration `json:"last_ns"`
	}

	out := make(map[string]timingJSON, len(t.metrics))
	for name, metric := range t.metrics {
		out[name] = timingJSON{
			Count: metric.Count,
			Avg:   metric.Average(),
			Min:   metric.Min,
			Max:   metric.Max,
			Last:  metric.Last,
		}
	}
	return json.MarshalIndent(out, "", "  ")
}
