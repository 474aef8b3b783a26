// memory.go implements an in-memory store with generated material, used by
// tests and by the provisioning helper that writes the on-disk layout.
package keystore

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cloudflare/circl/sign/mldsa/mldsa44"

	verrors "github.com/sara-star-quant/v2x-go/internal/errors"
)

type memoryEntry struct {
	vehicle *ecdsa.PrivateKey
	cert    *ecdsa.PrivateKey
	pqPriv  *mldsa44.PrivateKey
	pqPub   *mldsa44.PublicKey
}

// MemoryStore holds generated key material keyed by vehicle id.
// Safe for concurrent lookups once provisioned.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[uint8]*memoryEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[uint8]*memoryEntry)}
}

// Provision generates a full key set (vehicle ECDSA, issuer ECDSA, ML-DSA-44
// pair) for the vehicle id, replacing any existing entry.
func (s *MemoryStore) Provision(id uint8) error {
	vehicle, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return verrors.NewOpError("keystore.Provision", err)
	}
	cert, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return verrors.NewOpError("keystore.Provision", err)
	}
	pqPub, pqPriv, err := mldsa44.GenerateKey(rand.Reader)
	if err != nil {
		return verrors.NewOpError("keystore.Provision", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = &memoryEntry{vehicle: vehicle, cert: cert, pqPriv: pqPriv, pqPub: pqPub}
	return nil
}

func (s *MemoryStore) lookup(id uint8, op string) (*memoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, verrors.NewOpError(op,
			fmt.Errorf("%w: vehicle %d", verrors.ErrKeyNotFound, id))
	}
	return e, nil
}

// VehicleKey returns the vehicle's ECDSA signing key.
func (s *MemoryStore) VehicleKey(id uint8) (*ecdsa.PrivateKey, error) {
	e, err := s.lookup(id, "keystore.VehicleKey")
	if err != nil {
		return nil, err
	}
	return e.vehicle, nil
}

// CertificateKey returns the issuer ECDSA key for the vehicle.
func (s *MemoryStore) CertificateKey(id uint8) (*ecdsa.PrivateKey, error) {
	e, err := s.lookup(id, "keystore.CertificateKey")
	if err != nil {
		return nil, err
	}
	return e.cert, nil
}

// MLDSAKey returns the vehicle's ML-DSA-44 private key.
func (s *MemoryStore) MLDSAKey(id uint8) (*mldsa44.PrivateKey, error) {
	e, err := s.lookup(id, "keystore.MLDSAKey")
	if err != nil {
		return nil, err
	}
	return e.pqPriv, nil
}

// MLDSAPublic returns the vehicle's ML-DSA-44 public key.
func (s *MemoryStore) MLDSAPublic(id uint8) (*mldsa44.PublicKey, error) {
	e, err := s.lookup(id, "keystore.MLDSAPublic")
	if err != nil {
		return nil, err
	}
	return e.pqPub, nil
}

// WriteTo writes the provisioned material for a vehicle into the on-disk
// layout understood by FileStore.
func (s *MemoryStore) WriteTo(root string, id uint8) error {
	e, err := s.lookup(id, "keystore.WriteTo")
	if err != nil {
		return err
	}

	if err := writeECKey(filepath.Join(root, "keys", strconv.Itoa(int(id)), "p256.key"), e.vehicle); err != nil {
		return err
	}
	if err := writeECKey(filepath.Join(root, "cert_keys", strconv.Itoa(int(id)), "p256.key"), e.cert); err != nil {
		return err
	}

	privBytes, err := e.pqPriv.MarshalBinary()
	if err != nil {
		return verrors.NewOpError("keystore.WriteTo", err)
	}
	pubBytes, err := e.pqPub.MarshalBinary()
	if err != nil {
		return verrors.NewOpError("keystore.WriteTo", err)
	}
	dir := filepath.Join(root, "mldsa_keys", strconv.Itoa(int(id)))
	if err := writeHex(filepath.Join(dir, "mldsa44.key"), privBytes); err != nil {
		return err
	}
	return writeHex(filepath.Join(dir, "mldsa44.pub"), pubBytes)
}

func writeECKey(path string, key *ecdsa.PrivateKey) error {
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return verrors.NewOpError("keystore.writeECKey", err)
	}
	block := &pem.Block{Type: "EC PRIVATE KEY", Bytes: der}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return verrors.NewOpError("keystore.writeECKey", err)
	}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		return verrors.NewOpError("keystore.writeECKey", err)
	}
	return nil
}

func writeHex(path string, raw []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return verrors.NewOpError("keystore.writeHex", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(raw)), 0o600); err != nil {
		return verrors.NewOpError("keystore.writeHex", err)
	}
	return nil
}
