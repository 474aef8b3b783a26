// Package reassembly implements receiver-side per-flow buffering and
// completion detection across arbitrarily interleaved, out-of-order fragment
// arrivals from multiple concurrent senders.
//
// The engine is intentionally single-threaded: one receive loop owns the flow
// table, so no locking is needed. Protocol anomalies (index out of bounds,
// offset past buffer, duplicates) are tolerated silently, favoring
// availability over strict validation.
package reassembly

import (
	"time"

	"github.com/sara-star-quant/v2x-go/pkg/metrics"
	"github.com/sara-star-quant/v2x-go/pkg/spdu"
)

// Completed is a fully reassembled message handed to verification.
type Completed struct {
	// Template carries the most recently seen fragment's payload and header
	// fields (last-writer-wins across fragments of the flow).
	Template spdu.Fragment

	// Signature is the assembled signature, exactly SignatureTotalLen bytes.
	Signature []byte

	// FirstSeen is when the first fragment of the flow arrived.
	FirstSeen time.Time

	// CompletedAt is when the final fragment arrived.
	CompletedAt time.Time
}

// pending is one flow being accumulated. Buffer and mask sizes are derived
// from the first-seen fragment's declared lengths.
type pending struct {
	template  spdu.Fragment
	signature []byte
	received  []bool
	remaining int
	firstSeen time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source (tests).
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithCollector attaches a metrics collector.
func WithCollector(c *metrics.Collector) Option {
	return func(e *Engine) { e.collector = c }
}

// Engine is the per-flow reassembly state machine. Not safe for concurrent
// use; it is owned by the single receive loop.
type Engine struct {
	flows     map[spdu.FlowKey]*pending
	clock     func() time.Time
	collector *metrics.Collector
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		flows: make(map[spdu.FlowKey]*pending),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PendingFlows returns the number of flows currently accumulating. Incomplete
// flows are never evicted, so this grows for the lifetime of the loop when
// fragments are permanently lost.
func (e *Engine) PendingFlows() int {
	return len(e.flows)
}

// Ingest processes one arriving fragment. It returns the completed message
// and true the instant the flow's last fragment lands; the flow is removed
// from the table before returning.
func (e *Engine) Ingest(f *spdu.Fragment) (*Completed, bool) {
	now := e.clock()
	key := f.FlowKey()

	entry, ok := e.flows[key]
	if !ok {
		entry = &pending{
			signature: make([]byte, f.SignatureTotalLen),
			received:  make([]bool, f.FragmentCount),
			remaining: int(f.FragmentCount),
			firstSeen: now,
		}
		e.flows[key] = entry
	}

	e.accumulate(entry, f)

	// The template always reflects the most recent arrival. The protocol
	// requires these fields to be identical across a flow's fragments; that
	// invariant is not actively enforced here.
	entry.template = *f
	entry.template.FragmentIndex = 0
	entry.template.ChunkOffset = 0
	entry.template.ChunkLength = 0
	entry.template.SignatureChunk = [len(f.SignatureChunk)]byte{}

	if entry.remaining > 0 {
		return nil, false
	}

	delete(e.flows, key)
	if e.collector != nil {
		e.collector.MessageCompleted(now.Sub(entry.firstSeen))
	}
	return &Completed{
		Template:    entry.template,
		Signature:   entry.signature,
		FirstSeen:   entry.firstSeen,
		CompletedAt: now,
	}, true
}

// accumulate copies the fragment's chunk into the signature buffer and marks
// its index. Out-of-bounds indices, ranges past the buffer, and duplicates
// are no-ops.
func (e *Engine) accumulate(entry *pending, f *spdu.Fragment) {
	idx := int(f.FragmentIndex)
	if idx >= len(entry.received) {
		if e.collector != nil {
			e.collector.IgnoredFragment()
		}
		return
	}
	if entry.received[idx] {
		if e.collector != nil {
			e.collector.DuplicateFragment()
		}
		return
	}

	offset := int(f.ChunkOffset)
	length := int(f.ChunkLength)
	if offset+length > len(entry.signature) {
		if e.collector != nil {
			e.collector.IgnoredFragment()
		}
		return
	}

	copy(entry.signature[offset:offset+length], f.SignatureChunk[:length])
	entry.received[idx] = true
	entry.remaining--
}
