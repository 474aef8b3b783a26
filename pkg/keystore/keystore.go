// Package keystore provides the four logical key stores of the simulator,
// looked up by vehicle id: the vehicle's ECDSA P-256 signing key, the
// certificate-issuer ECDSA key, and the ML-DSA-44 private/public keys for the
// post-quantum path.
//
// Two implementations exist: FileStore reads the on-disk layout of recorded
// scenarios (PEM EC keys, hex ML-DSA keys), MemoryStore generates ephemeral
// material for tests and provisioning.
package keystore

import (
	"crypto/ecdsa"
	"encoding/hex"

	"github.com/cloudflare/circl/sign/mldsa/mldsa44"
	"golang.org/x/crypto/sha3"
)

// Store resolves key material by vehicle id. Lookups fail with an error when
// material is absent, malformed, or has the wrong length; callers treat these
// as fatal setup errors.
type Store interface {
	// VehicleKey returns the vehicle's ECDSA P-256 signing key.
	VehicleKey(id uint8) (*ecdsa.PrivateKey, error)

	// CertificateKey returns the certificate-issuer ECDSA key for the vehicle.
	CertificateKey(id uint8) (*ecdsa.PrivateKey, error)

	// MLDSAKey returns the vehicle's ML-DSA-44 private key (sender side).
	MLDSAKey(id uint8) (*mldsa44.PrivateKey, error)

	// MLDSAPublic returns the vehicle's ML-DSA-44 public key (verifier side).
	MLDSAPublic(id uint8) (*mldsa44.PublicKey, error)
}

// Fingerprint returns a short SHAKE-256 fingerprint of key material, for log
// attribution only.
func Fingerprint(material []byte) string {
	var sum [8]byte
	sha3.ShakeSum256(sum[:], material)
	return hex.EncodeToString(sum[:])
}
