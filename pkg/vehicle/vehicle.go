// Package vehicle ties the protocol together: the transmit side runs the
// sign → fragment → (simulate loss) → send loop for one simulated vehicle,
// the receive side runs the single-threaded reassemble → verify → report
// loop. Vehicles share no mutable state; each owns its key material, trace
// data, and sequence counter.
package vehicle

import (
	"time"

	"github.com/sara-star-quant/v2x-go/internal/constants"
	"github.com/sara-star-quant/v2x-go/pkg/bsm"
	"github.com/sara-star-quant/v2x-go/pkg/keystore"
	"github.com/sara-star-quant/v2x-go/pkg/metrics"
	"github.com/sara-star-quant/v2x-go/pkg/sign"
	"github.com/sara-star-quant/v2x-go/pkg/spdu"
	"github.com/sara-star-quant/v2x-go/pkg/trace"
)

// certIssuerName is embedded in every explicit certificate.
const certIssuerName = "v2x-root-ca"

// certValidity is the validity period of generated certificates.
const certValidity = 365 * 24 * time.Hour

// traceStepMS is the trace timestep used for kinematics, in milliseconds.
const traceStepMS = 100

// Options configures a Vehicle.
type Options struct {
	// Scheme selects the signing algorithm family.
	Scheme constants.Scheme

	// PQFragmentBytes is the preferred post-quantum chunk size (0 = capacity).
	PQFragmentBytes int

	// Compression is the signature transform tag, agreed out of band by both
	// peers. Applied to post-quantum signatures only.
	Compression spdu.Compression

	// DropProbability is the per-fragment simulated loss rate in [0, 1].
	// 0 disables all loss and resend logic.
	DropProbability float64

	// Seed seeds the loss draw. 0 seeds from the clock.
	Seed uint64

	// ResendDelay and Pacing override the transmit timing (tests).
	// Zero values select the protocol defaults.
	ResendDelay time.Duration
	Pacing      time.Duration

	// Logger, Collector, Tracer are optional observability hooks.
	Logger    *metrics.Logger
	Collector *metrics.Collector
	Tracer    metrics.Tracer
}

// Vehicle is one simulated vehicle. The same type serves both sides: a
// transmitter walks its trace and sends, a receiver reassembles and verifies.
type Vehicle struct {
	id        uint8
	trace     trace.Trace
	store     keystore.Store
	signer    *sign.Signer
	transform spdu.SignatureTransform
	cert      spdu.Certificate
	certSig   []byte
	opts      Options

	logger    *metrics.Logger
	collector *metrics.Collector
	tracer    metrics.Tracer
}

// New builds a vehicle, loading its key material from the store and signing
// its explicit certificate with the issuer key. Missing or malformed key
// material fails here, before any traffic is generated.
func New(id uint8, store keystore.Store, tr trace.Trace, opts Options) (*Vehicle, error) {
	transform, err := spdu.NewTransform(normalizeCompression(opts.Compression))
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = metrics.NullLogger()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = metrics.NoOpTracer{}
	}
	collector := opts.Collector
	if collector == nil {
		collector = metrics.NewCollector()
	}

	signer, err := sign.New(id, store, sign.Options{
		Scheme:          opts.Scheme,
		PQFragmentBytes: opts.PQFragmentBytes,
		Transform:       transform,
		Tracer:          tracer,
	})
	if err != nil {
		return nil, err
	}

	v := &Vehicle{
		id:        id,
		trace:     tr,
		store:     store,
		signer:    signer,
		transform: transform,
		opts:      opts,
		logger:    logger.With(metrics.Fields{"vehicle": id}),
		collector: collector,
		tracer:    tracer,
	}

	if err := v.buildCertificate(); err != nil {
		return nil, err
	}
	return v, nil
}

func normalizeCompression(c spdu.Compression) spdu.Compression {
	if c == "" {
		return spdu.CompressionNone
	}
	return c
}

// ID returns the vehicle id.
func (v *Vehicle) ID() uint8 {
	return v.id
}

// Collector returns the vehicle's metrics collector.
func (v *Vehicle) Collector() *metrics.Collector {
	return v.collector
}

// buildCertificate constructs the explicit certificate binding the vehicle id
// to its P-256 key and signs it with the issuer key. The certificate and its
// signature are duplicated on every fragment of every message.
func (v *Vehicle) buildCertificate() error {
	point, err := v.signer.PublicKeyPoint()
	if err != nil {
		return err
	}

	now := time.Now()
	cert := spdu.Certificate{
		Subject:        v.id,
		NotBefore:      now.UnixMicro(),
		NotAfter:       now.Add(certValidity).UnixMicro(),
		PublicKeyPoint: point,
	}
	copy(cert.Issuer[:], certIssuerName)

	sig, err := v.signer.SignCertificate(&cert)
	if err != nil {
		return err
	}

	v.cert = cert
	v.certSig = sig
	return nil
}

// generateBSM derives the BSM for a trace timestep. The first timestep has no
// prior fix, so its kinematic fields are zero.
func (v *Vehicle) generateBSM(step int) bsm.BSM {
	cur := v.trace[step%len(v.trace)]
	if step == 0 {
		return bsm.First(cur.Latitude, cur.Longitude, cur.Elevation)
	}
	prev := v.trace[(step-1)%len(v.trace)]
	return bsm.New(prev.Latitude, prev.Longitude,
		cur.Latitude, cur.Longitude, cur.Elevation, traceStepMS)
}

// generateSPDU builds the base fragment for a message: payload, certificate,
// and certificate signature. The signing strategy fills the rest.
func (v *Vehicle) generateSPDU(seq uint32, step int) spdu.Fragment {
	b := v.generateBSM(step)

	frag := spdu.Fragment{
		SenderID:       v.id,
		SequenceNumber: seq,
		Payload: spdu.TBSData{
			Latitude:       b.Latitude,
			Longitude:      b.Longitude,
			Elevation:      b.Elevation,
			Speed:          b.Speed,
			Heading:        b.Heading,
			GenerationTime: time.Now().UnixMicro(),
			Cert:           v.cert,
		},
	}
	frag.CertSigLen = uint16(len(v.certSig))
	copy(frag.CertSig[:], v.certSig)
	return frag
}

func (v *Vehicle) resendDelay() time.Duration {
	if v.opts.ResendDelay > 0 {
		return v.opts.ResendDelay
	}
	return constants.ResendDelay
}

func (v *Vehicle) pacing() time.Duration {
	if v.opts.Pacing > 0 {
		return v.opts.Pacing
	}
	return constants.MessagePacing
}
