package metrics

import (
	"math"
	"sort"
	"sync"
)

// Histogram tracks the distribution of values across predefined buckets.
// Thread-safe for concurrent use.
type Histogram struct {
	mu      sync.RWMutex
	buckets []float64 // Upper bounds (exclusive)
	counts  []uint64  // Count per bucket, plus overflow
	sum     float64
	count   uint64
	min     float64
	max     float64
}

// NewHistogram creates a histogram with the given bucket upper bounds.
func NewHistogram(buckets []float64) *Histogram {
	b := make([]float64, len(buckets))
	copy(b, buckets)
	sort.Float64s(b)

	return &Histogram{
		buckets: b,
		counts:  make([]uint64, len(b)+1),
		min:     math.MaxFloat64,
		max:     -math.MaxFloat64,
	}
}

// LatencyBuckets is a set of bucket bounds in milliseconds suited to
// per-message completion latencies.
func LatencyBuckets() []float64 {
	return []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 5000}
}

// Observe records a value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx := sort.SearchFloat64s(h.buckets, v)
	h.counts[idx]++
	h.sum += v
	h.count++
	if v < h.min {
		h.min = v
	}
	if v > h.max {
		h.max = v
	}
}

// HistogramSummary contains summarized histogram data.
type HistogramSummary struct {
	Count uint64  `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// Summary returns the current summary.
func (h *Histogram) Summary() HistogramSummary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return HistogramSummary{}
	}
	return HistogramSummary{
		Count: h.count,
		Sum:   h.sum,
		Min:   h.min,
		Max:   h.max,
		Mean:  h.sum / float64(h.count),
	}
}
