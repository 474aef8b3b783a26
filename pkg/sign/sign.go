// Package sign implements the signing strategy: given a to-be-signed payload
// and a scheme selector it produces the fragment set ready for transmission.
//
// The chunking policy lives here rather than in the codec so the classical
// and post-quantum paths share one fragment type, differing only in fragment
// count and chunk sizing. The reassembly engine stays scheme-agnostic.
package sign

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"

	"github.com/cloudflare/circl/sign/mldsa/mldsa44"

	"github.com/sara-star-quant/v2x-go/internal/constants"
	verrors "github.com/sara-star-quant/v2x-go/internal/errors"
	"github.com/sara-star-quant/v2x-go/pkg/keystore"
	"github.com/sara-star-quant/v2x-go/pkg/metrics"
	"github.com/sara-star-quant/v2x-go/pkg/spdu"
)

// Options configures a Signer.
type Options struct {
	// Scheme selects the signing algorithm family.
	Scheme constants.Scheme

	// PQFragmentBytes is the preferred post-quantum chunk size; clamped to
	// [1, capacity], 0 means "use capacity".
	PQFragmentBytes int

	// Transform is applied to post-quantum signature bytes before chunking.
	// nil means no transform.
	Transform spdu.SignatureTransform

	// Tracer wraps signing operations in spans. nil disables tracing.
	Tracer metrics.Tracer
}

// Signer holds one sender's private key material.
type Signer struct {
	sender    uint8
	ecKey     *ecdsa.PrivateKey
	certKey   *ecdsa.PrivateKey
	pqKey     *mldsa44.PrivateKey
	chunkSize int
	scheme    constants.Scheme
	transform spdu.SignatureTransform
	tracer    metrics.Tracer
}

// New loads the sender's key material from the store and builds a Signer.
// The post-quantum private key is loaded only when the scheme requires it;
// a missing key for the selected scheme is a fatal setup error.
func New(sender uint8, store keystore.Store, opts Options) (*Signer, error) {
	ecKey, err := store.VehicleKey(sender)
	if err != nil {
		return nil, err
	}
	certKey, err := store.CertificateKey(sender)
	if err != nil {
		return nil, err
	}

	s := &Signer{
		sender:    sender,
		ecKey:     ecKey,
		certKey:   certKey,
		chunkSize: constants.ClampFragmentBytes(opts.PQFragmentBytes),
		scheme:    opts.Scheme,
		transform: opts.Transform,
		tracer:    opts.Tracer,
	}
	if s.transform == nil {
		s.transform = mustIdentity()
	}
	if s.tracer == nil {
		s.tracer = metrics.NoOpTracer{}
	}

	if opts.Scheme == constants.SchemeMLDSA {
		pqKey, err := store.MLDSAKey(sender)
		if err != nil {
			return nil, verrors.NewOpError("sign.New", verrors.ErrNoPrivateKey)
		}
		s.pqKey = pqKey
	}
	return s, nil
}

func mustIdentity() spdu.SignatureTransform {
	t, _ := spdu.NewTransform(spdu.CompressionNone)
	return t
}

// Scheme returns the configured scheme selector.
func (s *Signer) Scheme() constants.Scheme {
	return s.scheme
}

// PublicKeyPoint returns the uncompressed P-256 point of the vehicle key, as
// embedded in the explicit certificate.
func (s *Signer) PublicKeyPoint() ([constants.ECPublicKeyPointSize]byte, error) {
	var point [constants.ECPublicKeyPointSize]byte
	ecdh, err := s.ecKey.PublicKey.ECDH()
	if err != nil {
		return point, verrors.NewOpError("sign.PublicKeyPoint", err)
	}
	copy(point[:], ecdh.Bytes())
	return point, nil
}

// SignCertificate produces the issuer signature over the embedded
// certificate, carried on every fragment of the message.
func (s *Signer) SignCertificate(cert *spdu.Certificate) ([]byte, error) {
	digest := cert.Digest()
	sig, err := ecdsa.SignASN1(rand.Reader, s.certKey, digest[:])
	if err != nil {
		return nil, verrors.NewOpError("sign.SignCertificate", err)
	}
	if len(sig) > constants.CertSignatureCap {
		return nil, verrors.NewOpError("sign.SignCertificate", verrors.ErrSignatureTooLarge)
	}
	return sig, nil
}

// Sign signs the base fragment's payload and returns the fragment set for
// transmission: exactly one fragment on the classical path, one per chunk on
// the post-quantum path. The base fragment must carry the payload, sender id,
// sequence number, and certificate signature; Sign fills the scheme selector
// and all chunk header fields.
func (s *Signer) Sign(ctx context.Context, base *spdu.Fragment) ([]spdu.Fragment, error) {
	base.Scheme = s.scheme
	switch s.scheme {
	case constants.SchemeECDSA:
		return s.signECDSA(ctx, base)
	case constants.SchemeMLDSA:
		return s.signMLDSA(ctx, base)
	default:
		return nil, verrors.NewOpError("sign.Sign", verrors.ErrInvalidFragment)
	}
}

// signECDSA hashes the to-be-signed payload and emits a single fragment.
func (s *Signer) signECDSA(ctx context.Context, base *spdu.Fragment) ([]spdu.Fragment, error) {
	_, end := s.tracer.StartSpan(ctx, "sign.ecdsa", metrics.WithAttributes(
		map[string]interface{}{"sender": int(s.sender), "seq": int64(base.SequenceNumber)}))

	digest := sha256.Sum256(base.Payload.Encode())
	sig, err := ecdsa.SignASN1(rand.Reader, s.ecKey, digest[:])
	if err != nil {
		end(err)
		return nil, verrors.NewOpError("sign.signECDSA", err)
	}

	// A classical signature exceeding the chunk capacity means the capacity
	// constants are misconfigured. Not recoverable in-flow.
	if len(sig) > constants.MaxFragmentChunkSize {
		end(verrors.ErrSignatureTooLarge)
		return nil, verrors.NewOpError("sign.signECDSA", verrors.ErrSignatureTooLarge)
	}

	frag := *base
	frag.FragmentIndex = 0
	frag.FragmentCount = 1
	frag.SignatureTotalLen = uint32(len(sig))
	if err := frag.SetChunk(sig, 0, len(sig)); err != nil {
		end(err)
		return nil, err
	}

	end(nil)
	return []spdu.Fragment{frag}, nil
}

// signMLDSA signs the raw to-be-signed bytes (no pre-hash) and splits the
// signature into chunks of the clamped chunk size; the last chunk may be
// shorter. SignatureTotalLen carries the true transported length.
func (s *Signer) signMLDSA(ctx context.Context, base *spdu.Fragment) ([]spdu.Fragment, error) {
	_, end := s.tracer.StartSpan(ctx, "sign.mldsa", metrics.WithAttributes(
		map[string]interface{}{"sender": int(s.sender), "seq": int64(base.SequenceNumber)}))

	if s.pqKey == nil {
		end(verrors.ErrNoPrivateKey)
		return nil, verrors.NewOpError("sign.signMLDSA", verrors.ErrNoPrivateKey)
	}

	msg := base.Payload.Encode()
	sig := make([]byte, mldsa44.SignatureSize)
	if err := mldsa44.SignTo(s.pqKey, msg, nil, false, sig); err != nil {
		end(err)
		return nil, verrors.NewOpError("sign.signMLDSA", err)
	}

	wire, err := s.transform.Apply(sig)
	if err != nil {
		end(err)
		return nil, err
	}
	if len(wire) > constants.MaxSignatureTotalSize {
		end(verrors.ErrSignatureTooLarge)
		return nil, verrors.NewOpError("sign.signMLDSA", verrors.ErrSignatureTooLarge)
	}

	fragments, err := Chunk(base, wire, s.chunkSize)
	end(err)
	return fragments, err
}

// Chunk splits signature bytes into consecutive chunks of chunkSize and emits
// one fragment per chunk in index order, each carrying the same payload and
// header fields as base.
func Chunk(base *spdu.Fragment, sig []byte, chunkSize int) ([]spdu.Fragment, error) {
	chunkSize = constants.ClampFragmentBytes(chunkSize)
	count := (len(sig) + chunkSize - 1) / chunkSize
	if count == 0 {
		count = 1
	}

	fragments := make([]spdu.Fragment, 0, count)
	for idx := 0; idx < count; idx++ {
		frag := *base
		frag.FragmentIndex = uint16(idx)
		frag.FragmentCount = uint16(count)
		frag.SignatureTotalLen = uint32(len(sig))

		offset := idx * chunkSize
		length := len(sig) - offset
		if length > chunkSize {
			length = chunkSize
		}
		if err := frag.SetChunk(sig, offset, length); err != nil {
			return nil, err
		}
		fragments = append(fragments, frag)
	}
	return fragments, nil
}
