package metrics

import (
	"context"
	"sync"
	"time"
)

// Tracer provides tracing around signing and verification.
// The OpenTelemetry adapter (build tag "otel") plugs in here.
type Tracer interface {
	// StartSpan starts a new span with the given name.
	// Returns a context containing the span and a function to end the span.
	StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, SpanEnder)
}

// SpanEnder ends a span. Call with nil for success, or an error to mark the
// span as failed.
type SpanEnder func(err error)

// SpanOption configures span behavior.
type SpanOption func(*spanConfig)

type spanConfig struct {
	attributes map[string]interface{}
}

// WithAttributes sets span attributes.
func WithAttributes(attrs map[string]interface{}) SpanOption {
	return func(c *spanConfig) {
		c.attributes = attrs
	}
}

// NoOpTracer is a tracer that does nothing. Default when tracing is not
// configured.
type NoOpTracer struct{}

// StartSpan returns the context unchanged and a no-op end function.
func (NoOpTracer) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, SpanEnder) {
	return ctx, func(err error) {}
}

// RecordedSpan represents a completed span.
type RecordedSpan struct {
	Name       string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Attributes map[string]interface{}
	Error      error
}

// SimpleTracer records spans in memory, for tests and debugging.
type SimpleTracer struct {
	mu    sync.Mutex
	spans []RecordedSpan
}

// NewSimpleTracer creates a new SimpleTracer.
func NewSimpleTracer() *SimpleTracer {
	return &SimpleTracer{spans: make([]RecordedSpan, 0)}
}

// StartSpan starts a new in-memory span.
func (t *SimpleTracer) StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, SpanEnder) {
	cfg := &spanConfig{attributes: make(map[string]interface{})}
	for _, opt := range opts {
		opt(cfg)
	}

	start := time.Now()
	return ctx, func(err error) {
		end := time.Now()
		t.mu.Lock()
		defer t.mu.Unlock()
		t.spans = append(t.spans, RecordedSpan{
			Name:       name,
			StartTime:  start,
			EndTime:    end,
			Duration:   end.Sub(start),
			Attributes: cfg.attributes,
			Error:      err,
		})
	}
}

// Spans returns a copy of the recorded spans.
func (t *SimpleTracer) Spans() []RecordedSpan {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]RecordedSpan, len(t.spans))
	copy(out, t.spans)
	return out
}

// Reset clears the recorded spans.
func (t *SimpleTracer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans = t.spans[:0]
}
