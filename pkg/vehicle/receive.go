// receive.go implements the single-threaded receive loop: block on the next
// inbound fragment, feed the reassembly engine, and on completion run the
// verification pipeline and reporting. Only this loop touches the flow table,
// so it needs no locking.
package vehicle

import (
	"context"
	"time"

	"github.com/sara-star-quant/v2x-go/internal/constants"
	"github.com/sara-star-quant/v2x-go/pkg/metrics"
	"github.com/sara-star-quant/v2x-go/pkg/reassembly"
	"github.com/sara-star-quant/v2x-go/pkg/spdu"
	"github.com/sara-star-quant/v2x-go/pkg/verify"
)

// Receive runs the receive loop until numMsgs messages have completed
// reassembly, then returns the run report. Malformed datagrams and
// protocol-level anomalies are counted and skipped; transport errors and
// key-lookup failures are fatal.
func (v *Vehicle) Receive(ctx context.Context, ch Channel, numMsgs int, gui *Forwarder) (*metrics.RunReport, error) {
	engine := reassembly.New(reassembly.WithCollector(v.collector))
	pipeline := verify.New(v.store,
		verify.WithTracer(v.tracer),
		verify.WithLogger(v.logger))

	var firstFragment, lastCompletion time.Time
	buf := make([]byte, spdu.FragmentWireSize)
	completed := 0

	for completed < numMsgs {
		n, err := ch.Receive(buf)
		if err != nil {
			return nil, err
		}
		v.collector.FragmentReceived()

		if firstFragment.IsZero() {
			firstFragment = time.Now()
		}

		frag, err := spdu.DecodeFragment(buf[:n])
		if err != nil {
			v.collector.IgnoredFragment()
			v.logger.Debug("ignoring malformed datagram", metrics.Fields{"err": err})
			continue
		}

		msg, done := engine.Ingest(frag)
		if !done {
			continue
		}

		signature := v.reverseTransform(msg)

		verifyStart := time.Now()
		result, err := pipeline.Verify(ctx, &msg.Template, signature, msg.CompletedAt)
		if err != nil {
			return nil, err
		}
		v.collector.MessageVerified(result.Accepted(), time.Since(verifyStart))

		v.reportMessage(msg, result)
		if gui != nil {
			if err := gui.Forward(&msg.Template, result.Accepted()); err != nil {
				v.logger.Warn("gui forward failed", metrics.Fields{"err": err})
			}
		}

		completed++
		lastCompletion = msg.CompletedAt
	}

	v.logger.Debug("receive loop finished", metrics.Fields{
		"completed":     completed,
		"pending_flows": engine.PendingFlows(),
	})

	return &metrics.RunReport{
		Scheme:         v.opts.Scheme,
		FirstFragment:  firstFragment,
		LastCompletion: lastCompletion,
	}, nil
}

// reverseTransform undoes the signature transform on post-quantum messages
// before verification. A failed reversal (corrupted compressed bytes) leaves
// the raw assembled buffer in place: the signature check then fails and the
// message is rejected rather than aborting the run.
func (v *Vehicle) reverseTransform(msg *reassembly.Completed) []byte {
	if msg.Template.Scheme != constants.SchemeMLDSA {
		return msg.Signature
	}
	signature, err := v.transform.Reverse(msg.Signature)
	if err != nil {
		v.logger.Warn("signature transform reversal failed", metrics.Fields{
			"sender": msg.Template.SenderID,
			"seq":    msg.Template.SequenceNumber,
			"err":    err,
		})
		return msg.Signature
	}
	return signature
}

// reportMessage emits the per-message console report.
func (v *Vehicle) reportMessage(msg *reassembly.Completed, result verify.Result) {
	t := &msg.Template
	v.logger.Info("SPDU received", metrics.Fields{
		"id":        t.SenderID,
		"sequence":  t.SequenceNumber,
		"valid":     result.Accepted(),
		"fragments": t.FragmentCount,
		"scheme":    t.Scheme.String(),
		"sent":      t.Payload.GeneratedAt().Format(time.RFC3339Nano),
	})
	v.logger.Info("BSM received", metrics.Fields{
		"latitude":  t.Payload.Latitude,
		"longitude": t.Payload.Longitude,
		"elevation": t.Payload.Elevation,
		"speed":     t.Payload.Speed,
		"heading":   t.Payload.Heading,
	})
}
