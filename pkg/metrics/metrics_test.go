package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestCollectorCounters(t *testing.T) {
	c := NewCollector()

	c.FragmentSent()
	c.FragmentSent()
	c.FragmentDropped()
	c.FragmentResent()
	c.FragmentReceived()
	c.DuplicateFragment()
	c.IgnoredFragment()
	c.MessageCompleted(2 * time.Millisecond)
	c.MessageVerified(true, time.Millisecond)
	c.MessageVerified(false, time.Millisecond)

	snap := c.Snapshot()
	if snap.FragmentsSent != 2 || snap.FragmentsDropped != 1 || snap.FragmentsResent != 1 {
		t.Errorf("transmit counters: %+v", snap)
	}
	if snap.FragmentsReceived != 1 || snap.DuplicateFragments != 1 || snap.IgnoredFragments != 1 {
		t.Errorf("receive counters: %+v", snap)
	}
	if snap.MessagesCompleted != 1 || snap.MessagesAccepted != 1 || snap.MessagesRejected != 1 {
		t.Errorf("message counters: %+v", snap)
	}
	if snap.CompletionLatency.Count != 1 || snap.VerifyLatency.Count != 2 {
		t.Errorf("latency counts: %+v", snap)
	}
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.FragmentSent()
			}
		}()
	}
	wg.Wait()

	if got := c.Snapshot().FragmentsSent; got != 8000 {
		t.Errorf("FragmentsSent = %d, want 8000", got)
	}
}

func TestHistogram(t *testing.T) {
	h := NewHistogram(LatencyBuckets())

	for _, v := range []float64{0.3, 1.5, 1.5, 20} {
		h.Observe(v)
	}

	s := h.Summary()
	if s.Count != 4 {
		t.Errorf("Count = %d", s.Count)
	}
	if s.Min != 0.3 || s.Max != 20 {
		t.Errorf("Min/Max = %g/%g", s.Min, s.Max)
	}
	want := (0.3 + 1.5 + 1.5 + 20) / 4
	if s.Mean != want {
		t.Errorf("Mean = %g, want %g", s.Mean, want)
	}
}

func TestHistogramEmptySummary(t *testing.T) {
	h := NewHistogram(LatencyBuckets())
	if s := h.Summary(); s.Count != 0 || s.Min != 0 || s.Max != 0 {
		t.Errorf("empty summary = %+v", s)
	}
}
