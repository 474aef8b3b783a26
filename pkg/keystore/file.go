// file.go implements the on-disk key layout:
//
//	keys/<id>/p256.key        PEM EC (or PKCS#8) private key
//	cert_keys/<id>/p256.key   PEM EC (or PKCS#8) issuer private key
//	mldsa_keys/<id>/mldsa44.key   hex-encoded ML-DSA-44 private key
//	mldsa_keys/<id>/mldsa44.pub   hex-encoded ML-DSA-44 public key
package keystore

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cloudflare/circl/sign/mldsa/mldsa44"

	"github.com/sara-star-quant/v2x-go/internal/constants"
	verrors "github.com/sara-star-quant/v2x-go/internal/errors"
)

// FileStore loads key material from a directory tree rooted at Root.
type FileStore struct {
	root string
}

// NewFileStore creates a store over the given root directory.
func NewFileStore(root string) *FileStore {
	if root == "" {
		root = "."
	}
	return &FileStore{root: root}
}

// VehicleKey loads keys/<id>/p256.key.
func (s *FileStore) VehicleKey(id uint8) (*ecdsa.PrivateKey, error) {
	return s.loadECKey(filepath.Join(s.root, "keys", strconv.Itoa(int(id)), "p256.key"))
}

// CertificateKey loads cert_keys/<id>/p256.key.
func (s *FileStore) CertificateKey(id uint8) (*ecdsa.PrivateKey, error) {
	return s.loadECKey(filepath.Join(s.root, "cert_keys", strconv.Itoa(int(id)), "p256.key"))
}

// MLDSAKey loads mldsa_keys/<id>/mldsa44.key.
func (s *FileStore) MLDSAKey(id uint8) (*mldsa44.PrivateKey, error) {
	raw, err := s.loadHex(
		filepath.Join(s.root, "mldsa_keys", strconv.Itoa(int(id)), "mldsa44.key"),
		constants.MLDSAPrivateKeySize)
	if err != nil {
		return nil, err
	}
	key := new(mldsa44.PrivateKey)
	if err := key.UnmarshalBinary(raw); err != nil {
		return nil, verrors.NewOpError("keystore.MLDSAKey", verrors.ErrMalformedKey)
	}
	return key, nil
}

// MLDSAPublic loads mldsa_keys/<id>/mldsa44.pub.
func (s *FileStore) MLDSAPublic(id uint8) (*mldsa44.PublicKey, error) {
	raw, err := s.loadHex(
		filepath.Join(s.root, "mldsa_keys", strconv.Itoa(int(id)), "mldsa44.pub"),
		constants.MLDSAPublicKeySize)
	if err != nil {
		return nil, err
	}
	key := new(mldsa44.PublicKey)
	if err := key.UnmarshalBinary(raw); err != nil {
		return nil, verrors.NewOpError("keystore.MLDSAPublic", verrors.ErrMalformedKey)
	}
	return key, nil
}

func (s *FileStore) loadECKey(path string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, verrors.NewOpError("keystore.loadECKey",
				fmt.Errorf("%w: %s", verrors.ErrKeyNotFound, path))
		}
		return nil, verrors.NewOpError("keystore.loadECKey", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, verrors.NewOpError("keystore.loadECKey",
			fmt.Errorf("%w: %s", verrors.ErrMalformedKey, path))
	}

	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return checkP256(key, path)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, verrors.NewOpError("keystore.loadECKey",
			fmt.Errorf("%w: %s", verrors.ErrMalformedKey, path))
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, verrors.NewOpError("keystore.loadECKey",
			fmt.Errorf("%w: %s is not an EC key", verrors.ErrMalformedKey, path))
	}
	return checkP256(key, path)
}

func checkP256(key *ecdsa.PrivateKey, path string) (*ecdsa.PrivateKey, error) {
	if key.Curve != elliptic.P256() {
		return nil, verrors.NewOpError("keystore.loadECKey",
			fmt.Errorf("%w: %s uses %s, want P-256", verrors.ErrMalformedKey, path, key.Curve.Params().Name))
	}
	return key, nil
}

func (s *FileStore) loadHex(path string, wantLen int) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, verrors.NewOpError("keystore.loadHex",
				fmt.Errorf("%w: %s", verrors.ErrKeyNotFound, path))
		}
		return nil, verrors.NewOpError("keystore.loadHex", err)
	}

	raw, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, verrors.NewOpError("keystore.loadHex",
			fmt.Errorf("%w: %s", verrors.ErrMalformedKey, path))
	}
	if len(raw) != wantLen {
		return nil, verrors.NewOpError("keystore.loadHex",
			fmt.Errorf("%w: %s has %d bytes, want %d", verrors.ErrInvalidKeyLength, path, len(raw), wantLen))
	}
	return raw, nil
}
