package keystore

import (
	"crypto"
	"errors"
	"os"
	"path/filepath"
	"testing"

	verrors "github.com/sara-star-quant/v2x-go/internal/errors"
)

func TestMemoryStoreProvision(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Provision(7); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	vk, err := s.VehicleKey(7)
	if err != nil {
		t.Fatalf("VehicleKey: %v", err)
	}
	ck, err := s.CertificateKey(7)
	if err != nil {
		t.Fatalf("CertificateKey: %v", err)
	}
	if vk.Equal(ck) {
		t.Error("vehicle and issuer keys should be independent")
	}

	priv, err := s.MLDSAKey(7)
	if err != nil {
		t.Fatalf("MLDSAKey: %v", err)
	}
	pub, err := s.MLDSAPublic(7)
	if err != nil {
		t.Fatalf("MLDSAPublic: %v", err)
	}
	if !priv.Public().(interface{ Equal(crypto.PublicKey) bool }).Equal(pub) {
		t.Error("ML-DSA public key does not match private key")
	}
}

func TestMemoryStoreUnknownVehicle(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.VehicleKey(1); !errors.Is(err, verrors.ErrKeyNotFound) {
		t.Errorf("err = %v, want ErrKeyNotFound", err)
	}
	if _, err := s.MLDSAPublic(1); !errors.Is(err, verrors.ErrKeyNotFound) {
		t.Errorf("err = %v, want ErrKeyNotFound", err)
	}
}

func TestWriteToFileStoreRoundTrip(t *testing.T) {
	root := t.TempDir()

	mem := NewMemoryStore()
	if err := mem.Provision(3); err != nil {
		t.Fatal(err)
	}
	if err := mem.WriteTo(root, 3); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	fs := NewFileStore(root)

	memVK, _ := mem.VehicleKey(3)
	fileVK, err := fs.VehicleKey(3)
	if err != nil {
		t.Fatalf("FileStore.VehicleKey: %v", err)
	}
	if !memVK.Equal(fileVK) {
		t.Error("vehicle key round trip mismatch")
	}

	memCK, _ := mem.CertificateKey(3)
	fileCK, err := fs.CertificateKey(3)
	if err != nil {
		t.Fatalf("FileStore.CertificateKey: %v", err)
	}
	if !memCK.Equal(fileCK) {
		t.Error("issuer key round trip mismatch")
	}

	memPub, _ := mem.MLDSAPublic(3)
	filePub, err := fs.MLDSAPublic(3)
	if err != nil {
		t.Fatalf("FileStore.MLDSAPublic: %v", err)
	}
	wantPub, _ := memPub.MarshalBinary()
	gotPub, _ := filePub.MarshalBinary()
	if string(wantPub) != string(gotPub) {
		t.Error("ML-DSA public key round trip mismatch")
	}

	if _, err := fs.MLDSAKey(3); err != nil {
		t.Fatalf("FileStore.MLDSAKey: %v", err)
	}
}

func TestFileStoreMissingKey(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	if _, err := fs.VehicleKey(9); !errors.Is(err, verrors.ErrKeyNotFound) {
		t.Errorf("err = %v, want ErrKeyNotFound", err)
	}
	if _, err := fs.MLDSAKey(9); !errors.Is(err, verrors.ErrKeyNotFound) {
		t.Errorf("err = %v, want ErrKeyNotFound", err)
	}
}

func TestFileStoreMalformedKey(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "keys", "5")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "p256.key"), []byte("not pem"), 0o600); err != nil {
		t.Fatal(err)
	}

	fs := NewFileStore(root)
	if _, err := fs.VehicleKey(5); !errors.Is(err, verrors.ErrMalformedKey) {
		t.Errorf("err = %v, want ErrMalformedKey", err)
	}
}

func TestFileStoreShortHexKey(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "mldsa_keys", "5")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "mldsa44.pub"), []byte("deadbeef"), 0o600); err != nil {
		t.Fatal(err)
	}

	fs := NewFileStore(root)
	if _, err := fs.MLDSAPublic(5); !errors.Is(err, verrors.ErrInvalidKeyLength) {
		t.Errorf("err = %v, want ErrInvalidKeyLength", err)
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("material-a"))
	b := Fingerprint([]byte("material-b"))

	if len(a) != 16 {
		t.Errorf("fingerprint length = %d, want 16 hex chars", len(a))
	}
	if a == b {
		t.Error("different material should fingerprint differently")
	}
	if a != Fingerprint([]byte("material-a")) {
		t.Error("fingerprint should be deterministic")
	}
}
