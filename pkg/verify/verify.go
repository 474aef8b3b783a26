// Package verify implements the verification pipeline for reassembled
// messages: certificate check, scheme-dispatched signature check, and
// freshness check. All three are evaluated unconditionally; acceptance is
// their conjunction.
package verify

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"time"

	"github.com/cloudflare/circl/sign/mldsa/mldsa44"

	"github.com/sara-star-quant/v2x-go/internal/constants"
	"github.com/sara-star-quant/v2x-go/pkg/keystore"
	"github.com/sara-star-quant/v2x-go/pkg/metrics"
	"github.com/sara-star-quant/v2x-go/pkg/spdu"
)

// Result carries the three independent check outcomes.
type Result struct {
	CertValid bool
	SigValid  bool
	Fresh     bool
}

// Accepted reports whether all three checks passed.
func (r Result) Accepted() bool {
	return r.CertValid && r.SigValid && r.Fresh
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTracer attaches a tracer to the pipeline.
func WithTracer(t metrics.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// WithLogger attaches a logger to the pipeline.
func WithLogger(l *metrics.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// Pipeline verifies reassembled messages. The post-quantum public-key cache
// is owned by the pipeline instance, not process-wide, so harnesses can build
// a fresh pipeline per case. Verification never mutates the reassembled
// message.
type Pipeline struct {
	store   keystore.Store
	pqCache map[uint8]*mldsa44.PublicKey
	tracer  metrics.Tracer
	logger  *metrics.Logger
}

// New creates a pipeline over the given key store.
func New(store keystore.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:   store,
		pqCache: make(map[uint8]*mldsa44.PublicKey),
		tracer:  metrics.NoOpTracer{},
		logger:  metrics.NullLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Verify runs the full pipeline on a reconstructed (template, signature)
// pair. completedAt is the wall-clock time reassembly finished; the freshness
// check compares it against the embedded generation timestamp. Key-lookup
// failures are fatal setup errors and returned as an error; check failures
// are not errors, they surface in the Result.
func (p *Pipeline) Verify(ctx context.Context, template *spdu.Fragment, signature []byte, completedAt time.Time) (Result, error) {
	_, end := p.tracer.StartSpan(ctx, "verify.message", metrics.WithAttributes(
		map[string]interface{}{
			"sender": int(template.SenderID),
			"seq":    int64(template.SequenceNumber),
			"scheme": template.Scheme.String(),
		}))

	var res Result

	certValid, err := p.checkCertificate(template)
	if err != nil {
		end(err)
		return res, err
	}
	res.CertValid = certValid

	sigValid, err := p.checkSignature(template, signature)
	if err != nil {
		end(err)
		return res, err
	}
	res.SigValid = sigValid

	elapsed := completedAt.Sub(template.Payload.GeneratedAt())
	res.Fresh = elapsed < constants.FreshnessWindow

	if !res.Accepted() {
		p.logger.Debug("message rejected", metrics.Fields{
			"sender": template.SenderID,
			"seq":    template.SequenceNumber,
			"cert":   res.CertValid,
			"sig":    res.SigValid,
			"fresh":  res.Fresh,
		})
	}

	end(nil)
	return res, nil
}

// checkCertificate recomputes the embedded certificate digest and checks the
// issuer signature carried in the fragment.
func (p *Pipeline) checkCertificate(template *spdu.Fragment) (bool, error) {
	issuerKey, err := p.store.CertificateKey(template.SenderID)
	if err != nil {
		return false, err
	}

	digest := template.Payload.Cert.Digest()
	return ecdsa.VerifyASN1(&issuerKey.PublicKey, digest[:], template.CertificateSignature()), nil
}

// checkSignature dispatches on the template's scheme selector. An unknown
// selector is a protocol anomaly: the message is rejected, not the run.
func (p *Pipeline) checkSignature(template *spdu.Fragment, signature []byte) (bool, error) {
	tbs := template.Payload.Encode()

	switch template.Scheme {
	case constants.SchemeECDSA:
		vehicleKey, err := p.store.VehicleKey(template.SenderID)
		if err != nil {
			return false, err
		}
		digest := sha256.Sum256(tbs)
		return ecdsa.VerifyASN1(&vehicleKey.PublicKey, digest[:], signature), nil

	case constants.SchemeMLDSA:
		pub, err := p.pqPublic(template.SenderID)
		if err != nil {
			return false, err
		}
		return mldsa44.Verify(pub, tbs, nil, signature), nil

	default:
		p.logger.Warn("unknown scheme selector", metrics.Fields{
			"sender": template.SenderID,
			"scheme": uint8(template.Scheme),
		})
		return false, nil
	}
}

// pqPublic returns the sender's ML-DSA public key, loading it through the
// store on first use and caching it for the pipeline's lifetime.
func (p *Pipeline) pqPublic(sender uint8) (*mldsa44.PublicKey, error) {
	if pub, ok := p.pqCache[sender]; ok {
		return pub, nil
	}
	pub, err := p.store.MLDSAPublic(sender)
	if err != nil {
		return nil, err
	}
	p.pqCache[sender] = pub
	return pub, nil
}

// ResetCache clears the post-quantum public-key cache.
func (p *Pipeline) ResetCache() {
	p.pqCache = make(map[uint8]*mldsa44.PublicKey)
}
