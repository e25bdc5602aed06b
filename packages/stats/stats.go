// Package stats aggregates attempt latencies for a run summary.
package stats

import (
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
)

// Collector accumulates per-attempt durations. Not safe for concurrent use;
// the batch runner observes from a single goroutine.
type Collector struct {
	histogram *hdrhistogram.Histogram
}

// NewCollector tracks durations from 1µs to 60s at 3 significant figures.
func NewCollector() *Collector {
	return &Collector{
		histogram: hdrhistogram.New(1, 60_000_000, 3),
	}
}

// Observe records one attempt duration.
func (c *Collector) Observe(d time.Duration) {
	_ = c.histogram.RecordValue(d.Microseconds())
}

// Snapshot is a point-in-time latency summary.
type Snapshot struct {
	Count int64
	Min   time.Duration
	Mean  time.Duration
	P50   time.Duration
	P95   time.Duration
	Max   time.Duration
}

// Snapshot summarizes everything observed so far.
func (c *Collector) Snapshot() *Snapshot {
	h := c.histogram
	if h.TotalCount() == 0 {
		return &Snapshot{}
	}
	return &Snapshot{
		Count: h.TotalCount(),
		Min:   time.Duration(h.Min()) * time.Microsecond,
		Mean:  time.Duration(int64(h.Mean())) * time.Microsecond,
		P50:   time.Duration(h.ValueAtQuantile(50)) * time.Microsecond,
		P95:   time.Duration(h.ValueAtQuantile(95)) * time.Microsecond,
		Max:   time.Duration(h.Max()) * time.Microsecond,
	}
}
