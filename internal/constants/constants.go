// Package constants defines protocol sizes and security parameters for the
// v2x-go fragmented signed-message protocol.
//
// A signed protocol data unit (SPDU) is carried in one or more fixed-size
// datagram fragments. Classical ECDSA signatures always fit a single fragment;
// ML-DSA-44 lattice signatures (2420 bytes) are split across several.
package constants

import "time"

// Protocol identification.
const (
	// ProtocolName is used in log and trace attribution.
	ProtocolName = "v2x-spdu-v1"
)

// Fragment capacities.
//
// MaxSignatureTotalSize bounds fragment_count * chunk size: a signature longer
// than this cannot be transported and is a setup-time contract violation.
const (
	// MaxFragmentChunkSize is the capacity of one fragment's signature chunk
	// in bytes. A classical signature must fit entirely within it.
	MaxFragmentChunkSize = 512

	// MaxSignatureTotalSize is the maximum total signature length that may be
	// spread across the fragments of one message.
	MaxSignatureTotalSize = 3072

	// DefaultPQFragmentBytes is the default chunk size for splitting
	// post-quantum signatures. 0 in configuration means "use capacity".
	DefaultPQFragmentBytes = 256

	// CertSignatureCap is the capacity of the embedded certificate-signature
	// buffer. ASN.1 DER ECDSA P-256 signatures are at most 72 bytes.
	CertSignatureCap = 72
)

// ML-DSA-44 parameters (NIST FIPS 204). The post-quantum path signs the raw
// to-be-signed bytes; these sizes match circl's sign/mldsa/mldsa44.
const (
	// MLDSAPublicKeySize is the size of an ML-DSA-44 public key in bytes.
	MLDSAPublicKeySize = 1312

	// MLDSAPrivateKeySize is the size of an ML-DSA-44 private key in bytes.
	MLDSAPrivateKeySize = 2560

	// MLDSASignatureSize is the size of an ML-DSA-44 signature in bytes.
	MLDSASignatureSize = 2420
)

// ECDSA P-256 parameters.
const (
	// ECPublicKeyPointSize is the size of an uncompressed P-256 point.
	ECPublicKeyPointSize = 65

	// DigestSize is the size of the SHA-256 digest used for certificate and
	// classical message digests.
	DigestSize = 32
)

// Verification parameters.
const (
	// FreshnessWindow is the maximum allowed age of a message's embedded
	// generation timestamp at verification time.
	FreshnessWindow = 30000 * time.Millisecond
)

// Transmission timing.
const (
	// ResendDelay is the simulated lower-layer retransmission timer: dropped
	// fragments are resent once after this delay.
	ResendDelay = 5 * time.Millisecond

	// MessagePacing is the fixed inter-message delay on the transmit side.
	MessagePacing = 100 * time.Millisecond
)

// Default network endpoints.
const (
	// DefaultReceiverPort is the UDP port the receiver binds.
	DefaultReceiverPort = 4444

	// DefaultTestPort is the port used when running under --test.
	DefaultTestPort = 6666

	// TkGUIPort is the UDP endpoint of the desktop visualization relay.
	TkGUIPort = 9999

	// WebGUIPort is the UDP endpoint of the web visualization relay.
	WebGUIPort = 8888
)

// Scheme identifies the signing algorithm family of a message.
type Scheme uint8

const (
	// SchemeECDSA is classical ECDSA P-256 over SHA-256.
	SchemeECDSA Scheme = 0

	// SchemeMLDSA is post-quantum ML-DSA-44 over the raw payload bytes.
	SchemeMLDSA Scheme = 1
)

// String returns a human-readable scheme name.
func (s Scheme) String() string {
	switch s {
	case SchemeECDSA:
		return "ECDSA"
	case SchemeMLDSA:
		return "ML-DSA"
	default:
		return "Unknown"
	}
}

// IsSupported returns true if the scheme selector is known.
func (s Scheme) IsSupported() bool {
	return s == SchemeECDSA || s == SchemeMLDSA
}

// ClampFragmentBytes clamps a configured post-quantum chunk size to
// [1, MaxFragmentChunkSize]. 0 selects the full capacity.
func ClampFragmentBytes(requested int) int {
	if requested <= 0 {
		return MaxFragmentChunkSize
	}
	if requested > MaxFragmentChunkSize {
		return MaxFragmentChunkSize
	}
	return requested
}
