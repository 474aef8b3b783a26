// Package v2xgo simulates authenticated V2V safety messaging over lossy UDP,
// comparing a classical ECDSA P-256 signing path against a post-quantum
// ML-DSA-44 path whose oversized signatures must be fragmented on the wire.
//
// Each simulated vehicle walks a GPS trace, derives a Basic Safety Message
// (position, speed, heading) per timestep, wraps it in a Secured PDU carrying
// an explicit certificate, and signs it. Classical signatures fit a single
// datagram; post-quantum signatures are split into fixed-capacity chunks that
// the receiver reassembles, out of order and across interleaved flows, before
// running certificate, signature, and freshness checks.
//
// # Quick Start
//
// Driving one vehicle over an in-memory channel:
//
//	import (
//		"github.com/sara-star-quant/v2x-go/internal/constants"
//		"github.com/sara-star-quant/v2x-go/pkg/keystore"
//		"github.com/sara-star-quant/v2x-go/pkg/vehicle"
//	)
//
//	store := keystore.NewMemoryStore()
//	store.Provision(1)
//
//	v, _ := vehicle.New(1, store, tr, vehicle.Options{
//		Scheme: constants.SchemeMLDSA,
//	})
//
//	ch := vehicle.NewMemoryChannel(256)
//	go v.Transmit(ctx, ch, 10)
//
// # Package Structure
//
//   - pkg/spdu: Secured PDU fragment model, wire codec, signature transforms
//   - pkg/sign: scheme-dispatched signing and signature chunking
//   - pkg/reassembly: multi-flow out-of-order fragment reassembly
//   - pkg/verify: certificate, signature, and freshness verification
//   - pkg/vehicle: transmit/receive loops, channels, loss simulation
//   - pkg/keystore: file-backed and in-memory key material stores
//   - pkg/bsm: kinematics derived from consecutive GPS fixes
//   - pkg/trace: CSV trace file loading
//   - pkg/metrics: structured logging, counters, latency, run reports
//   - internal/config: scenario configuration and environment overrides
//   - internal/constants: protocol capacities, timing, and ports
//   - internal/errors: sentinel errors and operation wrapping
//
// # Protocol Properties
//
//   - Fixed 754-byte big-endian fragment records, one per datagram
//   - Flow identity (sender id, sequence number); fragments from concurrent
//     senders interleave freely
//   - First fragment of a flow fixes the buffer geometry; later anomalies
//     are counted and ignored, never fatal
//   - Per-fragment simulated loss with a single unconditional resend round
//   - Acceptance requires certificate, signature, and a 30 s freshness window
//
// For more information, see: https://github.com/sara-star-quant/v2x-go
package v2xgo
