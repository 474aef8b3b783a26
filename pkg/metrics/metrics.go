// Package metrics provides observability primitives for the v2x-go
// simulator: a fragment/verification counter collector, latency histograms,
// structured logging, per-run completion reports, and tracing.
package metrics

import (
	"sync/atomic"
	"time"
)

// Collector aggregates counters from the transmit and receive paths.
// All methods are safe for concurrent use; the transmit side runs one
// goroutine per vehicle.
type Collector struct {
	// Transmit side
	fragmentsSent    atomic.Uint64
	fragmentsDropped atomic.Uint64
	fragmentsResent  atomic.Uint64

	// Receive side
	fragmentsReceived  atomic.Uint64
	duplicateFragments atomic.Uint64
	ignoredFragments   atomic.Uint64
	messagesCompleted  atomic.Uint64
	messagesAccepted   atomic.Uint64
	messagesRejected   atomic.Uint64

	completionLatency *Histogram // ms from first fragment to completion
	verifyLatency     *Histogram // ms spent in the verification pipeline

	createdAt time.Time
}

// NewCollector creates a collector.
func NewCollector() *Collector {
	return &Collector{
		completionLatency: NewHistogram(LatencyBuckets()),
		verifyLatency:     NewHistogram(LatencyBuckets()),
		createdAt:         time.Now(),
	}
}

// FragmentSent records one fragment handed to the transport.
func (c *Collector) FragmentSent() { c.fragmentsSent.Add(1) }

// FragmentDropped records one fragment withheld by the loss simulation.
func (c *Collector) FragmentDropped() { c.fragmentsDropped.Add(1) }

// FragmentResent records one fragment sent by the resend round.
func (c *Collector) FragmentResent() { c.fragmentsResent.Add(1) }

// FragmentReceived records one inbound fragment.
func (c *Collector) FragmentReceived() { c.fragmentsReceived.Add(1) }

// DuplicateFragment records a redelivered already-marked index.
func (c *Collector) DuplicateFragment() { c.duplicateFragments.Add(1) }

// IgnoredFragment records a fragment dropped as a protocol anomaly.
func (c *Collector) IgnoredFragment() { c.ignoredFragments.Add(1) }

// MessageCompleted records one completed reassembly with its latency.
func (c *Collector) MessageCompleted(latency time.Duration) {
	c.messagesCompleted.Add(1)
	c.completionLatency.Observe(float64(latency.Microseconds()) / 1000)
}

// MessageVerified records the verification outcome and its latency.
func (c *Collector) MessageVerified(accepted bool, latency time.Duration) {
	if accepted {
		c.messagesAccepted.Add(1)
	} else {
		c.messagesRejected.Add(1)
	}
	c.verifyLatency.Observe(float64(latency.Microseconds()) / 1000)
}

// Snapshot is a point-in-time view of the collector.
type Snapshot struct {
	FragmentsSent      uint64 `json:"fragments_sent"`
	FragmentsDropped   uint64 `json:"fragments_dropped"`
	FragmentsResent    uint64 `json:"fragments_resent"`
	FragmentsReceived  uint64 `json:"fragments_received"`
	DuplicateFragments uint64 `json:"duplicate_fragments"`
	IgnoredFragments   uint64 `json:"ignored_fragments"`
	MessagesCompleted  uint64 `json:"messages_completed"`
	MessagesAccepted   uint64 `json:"messages_accepted"`
	MessagesRejected   uint64 `json:"messages_rejected"`

	CompletionLatency HistogramSummary `json:"completion_latency_ms"`
	VerifyLatency     HistogramSummary `json:"verify_latency_ms"`

	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Snapshot returns the current counter values.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FragmentsSent:      c.fragmentsSent.Load(),
		FragmentsDropped:   c.fragmentsDropped.Load(),
		FragmentsResent:    c.fragmentsResent.Load(),
		FragmentsReceived:  c.fragmentsReceived.Load(),
		DuplicateFragments: c.duplicateFragments.Load(),
		IgnoredFragments:   c.ignoredFragments.Load(),
		MessagesCompleted:  c.messagesCompleted.Load(),
		MessagesAccepted:   c.messagesAccepted.Load(),
		MessagesRejected:   c.messagesRejected.Load(),
		CompletionLatency:  c.completionLatency.Summary(),
		VerifyLatency:      c.verifyLatency.Summary(),
		UptimeSeconds:      time.Since(c.createdAt).Seconds(),
	}
}
