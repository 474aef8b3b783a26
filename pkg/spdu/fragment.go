// Package spdu defines the signed protocol data unit wire format: the
// fixed-size datagram fragment, the embedded explicit certificate, and the
// to-be-signed payload shared by all fragments of one message.
package spdu

import (
	"crypto/sha256"
	"time"

	"github.com/sara-star-quant/v2x-go/internal/constants"
	verrors "github.com/sara-star-quant/v2x-go/internal/errors"
)

// Certificate is a compact explicit certificate embedded in every SPDU.
// It binds a vehicle id to its P-256 public key and validity period, and is
// itself signed by the issuer key (the signature travels in the fragment,
// outside the certificate).
type Certificate struct {
	Subject   uint8
	Issuer    [16]byte // issuer name, zero padded
	NotBefore int64    // unix microseconds
	NotAfter  int64
	PublicKeyPoint [constants.ECPublicKeyPointSize]byte // uncompressed P-256 point
}

// CertificateSize is the encoded size of a Certificate.
const CertificateSize = 1 + 16 + 8 + 8 + constants.ECPublicKeyPointSize

// Digest returns the SHA-256 digest of the encoded certificate, the input to
// the issuer signature.
func (c *Certificate) Digest() [constants.DigestSize]byte {
	return sha256.Sum256(c.Encode())
}

// TBSData is the to-be-signed payload, identical across all fragments of one
// message: the BSM fields, the generation timestamp, and the certificate.
type TBSData struct {
	Latitude       float64
	Longitude      float64
	Elevation      float64
	Speed          float64
	Heading        float64
	GenerationTime int64 // unix microseconds
	Cert           Certificate
}

// TBSDataSize is the encoded size of TBSData.
const TBSDataSize = 5*8 + 8 + CertificateSize

// GeneratedAt returns the embedded generation timestamp as a time.Time.
func (t *TBSData) GeneratedAt() time.Time {
	return time.UnixMicro(t.GenerationTime)
}

// Fragment is the atomic wire unit: one datagram carrying a chunk of the
// message signature plus the shared header and payload fields.
type Fragment struct {
	SenderID       uint8
	SequenceNumber uint32
	Scheme         constants.Scheme
	FragmentIndex  uint16
	FragmentCount  uint16

	// SignatureTotalLen is the true byte length of the whole (possibly
	// multi-fragment) signature, not fragment_count times chunk size.
	SignatureTotalLen uint32
	ChunkOffset       uint32
	ChunkLength       uint32

	Payload TBSData

	// CertSig carries the issuer signature over the embedded certificate,
	// duplicated on every fragment of the message.
	CertSigLen uint16
	CertSig    [constants.CertSignatureCap]byte

	// SignatureChunk holds ChunkLength valid bytes starting at position 0;
	// trailing bytes are zero-filled and must not be interpreted.
	SignatureChunk [constants.MaxFragmentChunkSize]byte
}

// FlowKey is the 40-bit composite (sender id, sequence number) identifying
// one logical message across all concurrent flows.
type FlowKey uint64

// NewFlowKey builds a flow key with the sender id in the high byte and the
// sequence number in the low 32 bits.
func NewFlowKey(sender uint8, seq uint32) FlowKey {
	return FlowKey(uint64(sender)<<32 | uint64(seq))
}

// SenderID returns the sender component of the key.
func (k FlowKey) SenderID() uint8 {
	return uint8(k >> 32)
}

// Sequence returns the sequence-number component of the key.
func (k FlowKey) Sequence() uint32 {
	return uint32(k)
}

// FlowKey returns the flow key of the fragment.
func (f *Fragment) FlowKey() FlowKey {
	return NewFlowKey(f.SenderID, f.SequenceNumber)
}

// Chunk returns the valid signature bytes carried by the fragment.
func (f *Fragment) Chunk() []byte {
	return f.SignatureChunk[:f.ChunkLength]
}

// CertificateSignature returns the valid issuer-signature bytes.
func (f *Fragment) CertificateSignature() []byte {
	return f.CertSig[:f.CertSigLen]
}

// SetChunk copies sig[offset:offset+length] into the chunk buffer and fills
// the chunk header fields. Exceeding the chunk capacity is a programming
// contract violation and returns ErrChunkTooLarge.
func (f *Fragment) SetChunk(sig []byte, offset, length int) error {
	if length > constants.MaxFragmentChunkSize {
		return verrors.ErrChunkTooLarge
	}
	if offset+length > len(sig) {
		return verrors.ErrInvalidFragment
	}
	f.ChunkOffset = uint32(offset)
	f.ChunkLength = uint32(length)
	f.SignatureChunk = [constants.MaxFragmentChunkSize]byte{}
	copy(f.SignatureChunk[:], sig[offset:offset+length])
	return nil
}

// Validate checks the fragment's size invariants before encoding.
func (f *Fragment) Validate() error {
	if f.FragmentIndex >= f.FragmentCount {
		return verrors.ErrInvalidFragment
	}
	if f.ChunkLength > constants.MaxFragmentChunkSize {
		return verrors.ErrChunkTooLarge
	}
	if uint64(f.ChunkOffset)+uint64(f.ChunkLength) > uint64(f.SignatureTotalLen) {
		return verrors.ErrInvalidFragment
	}
	if f.SignatureTotalLen > constants.MaxSignatureTotalSize {
		return verrors.ErrSignatureTooLarge
	}
	if int(f.CertSigLen) > constants.CertSignatureCap {
		return verrors.ErrInvalidFragment
	}
	return nil
}
