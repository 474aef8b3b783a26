// transmit.go implements the loss-aware transmission loop. Each fragment is
// subject to an independent drop draw; withheld fragments are sent once,
// unconditionally, after a short delay, modeling a single best-effort
// lower-layer retransmission round. A fragment dropped on resend would be
// permanently lost, but resends are never themselves subject to drop.
package vehicle

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/sara-star-quant/v2x-go/pkg/metrics"
	"github.com/sara-star-quant/v2x-go/pkg/spdu"
)

// prepareSignedFragments builds and signs the fragment set for one message.
func (v *Vehicle) prepareSignedFragments(ctx context.Context, seq uint32, step int) ([]spdu.Fragment, error) {
	base := v.generateSPDU(seq, step)
	return v.signer.Sign(ctx, &base)
}

// Transmit walks the vehicle's trace, sending numMsgs messages with the
// configured loss simulation and fixed inter-message pacing. Transport errors
// are fatal and returned; the caller owns the channel's lifetime.
func (v *Vehicle) Transmit(ctx context.Context, ch Channel, numMsgs int) error {
	rng := v.newRand()
	drop := v.opts.DropProbability

	var dropped, resent uint64

	for i := 0; i < numMsgs; i++ {
		fragments, err := v.prepareSignedFragments(ctx, uint32(i), i)
		if err != nil {
			return err
		}

		var resendBatch [][]byte
		for fi := range fragments {
			datagram, err := spdu.EncodeFragment(&fragments[fi])
			if err != nil {
				return err
			}

			if drop > 0 && rng.Float64() < drop {
				dropped++
				v.collector.FragmentDropped()
				resendBatch = append(resendBatch, datagram)
				continue
			}

			if err := ch.Send(datagram); err != nil {
				return err
			}
			v.collector.FragmentSent()
		}

		if len(resendBatch) > 0 {
			time.Sleep(v.resendDelay())
			for _, datagram := range resendBatch {
				if err := ch.Send(datagram); err != nil {
					return err
				}
				resent++
				v.collector.FragmentResent()
			}
		}

		time.Sleep(v.pacing())
	}

	if drop > 0 {
		v.logger.Info("transmitter loss summary", metrics.Fields{
			"drop_rate": drop,
			"dropped":   dropped,
			"resent":    resent,
		})
	}
	return nil
}

// newRand builds the loss-draw source. A zero seed takes the clock, so runs
// differ; tests pass a fixed seed.
func (v *Vehicle) newRand() *rand.Rand {
	seed := v.opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
