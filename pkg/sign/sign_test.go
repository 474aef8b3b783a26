package sign

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/cloudflare/circl/sign/mldsa/mldsa44"

	"github.com/sara-star-quant/v2x-go/internal/constants"
	verrors "github.com/sara-star-quant/v2x-go/internal/errors"
	"github.com/sara-star-quant/v2x-go/pkg/keystore"
	"github.com/sara-star-quant/v2x-go/pkg/metrics"
	"github.com/sara-star-quant/v2x-go/pkg/spdu"
)

func testStore(t *testing.T, ids ...uint8) *keystore.MemoryStore {
	t.Helper()
	s := keystore.NewMemoryStore()
	for _, id := range ids {
		if err := s.Provision(id); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func baseFragment(sender uint8, seq uint32) spdu.Fragment {
	return spdu.Fragment{
		SenderID:       sender,
		SequenceNumber: seq,
		Payload: spdu.TBSData{
			Latitude:       48.137,
			Longitude:      11.575,
			Elevation:      519.0,
			Speed:          50,
			Heading:        90,
			GenerationTime: 1_750_000_000_000_000,
		},
	}
}

func TestSignECDSASingleFragment(t *testing.T) {
	store := testStore(t, 1)
	signer, err := New(1, store, Options{Scheme: constants.SchemeECDSA})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	base := baseFragment(1, 5)
	fragments, err := signer.Sign(context.Background(), &base)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(fragments) != 1 {
		t.Fatalf("fragment count = %d, want 1", len(fragments))
	}

	f := fragments[0]
	if f.Scheme != constants.SchemeECDSA {
		t.Errorf("scheme = %v", f.Scheme)
	}
	if f.FragmentIndex != 0 || f.FragmentCount != 1 {
		t.Errorf("index/count = %d/%d", f.FragmentIndex, f.FragmentCount)
	}
	if f.SignatureTotalLen != f.ChunkLength {
		t.Errorf("total %d != chunk %d on single fragment", f.SignatureTotalLen, f.ChunkLength)
	}

	key, _ := store.VehicleKey(1)
	digest := sha256.Sum256(f.Payload.Encode())
	if !ecdsa.VerifyASN1(&key.PublicKey, digest[:], f.Chunk()) {
		t.Error("signature does not verify")
	}
}

func TestSignMLDSAFragments(t *testing.T) {
	store := testStore(t, 2)
	signer, err := New(2, store, Options{
		Scheme:          constants.SchemeMLDSA,
		PQFragmentBytes: 256,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	base := baseFragment(2, 9)
	fragments, err := signer.Sign(context.Background(), &base)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	wantCount := (mldsa44.SignatureSize + 255) / 256
	if len(fragments) != wantCount {
		t.Fatalf("fragment count = %d, want %d", len(fragments), wantCount)
	}

	assembled := make([]byte, fragments[0].SignatureTotalLen)
	for i := range fragments {
		f := &fragments[i]
		if int(f.FragmentIndex) != i || int(f.FragmentCount) != wantCount {
			t.Errorf("fragment %d header = %d/%d", i, f.FragmentIndex, f.FragmentCount)
		}
		if f.SignatureTotalLen != uint32(mldsa44.SignatureSize) {
			t.Errorf("SignatureTotalLen = %d, want %d", f.SignatureTotalLen, mldsa44.SignatureSize)
		}
		copy(assembled[f.ChunkOffset:], f.Chunk())
	}

	pub, _ := store.MLDSAPublic(2)
	if !mldsa44.Verify(pub, fragments[0].Payload.Encode(), nil, assembled) {
		t.Error("assembled signature does not verify")
	}
}

func TestSignMLDSALastChunkShorter(t *testing.T) {
	store := testStore(t, 2)
	signer, err := New(2, store, Options{
		Scheme:          constants.SchemeMLDSA,
		PQFragmentBytes: 512,
	})
	if err != nil {
		t.Fatal(err)
	}

	base := baseFragment(2, 0)
	fragments, err := signer.Sign(context.Background(), &base)
	if err != nil {
		t.Fatal(err)
	}
	// 2420 = 4*512 + 372
	last := fragments[len(fragments)-1]
	if last.ChunkLength != uint32(mldsa44.SignatureSize%512) {
		t.Errorf("last chunk length = %d, want %d", last.ChunkLength, mldsa44.SignatureSize%512)
	}
}

func TestNewMissingPQKey(t *testing.T) {
	store := keystore.NewMemoryStore()
	if err := store.Provision(3); err != nil {
		t.Fatal(err)
	}
	// A store without ML-DSA material: wrap the memory store and drop the key.
	if _, err := New(4, store, Options{Scheme: constants.SchemeMLDSA}); err == nil {
		t.Fatal("want error for unprovisioned vehicle")
	}

	partial := &noPQStore{Store: store}
	_, err := New(3, partial, Options{Scheme: constants.SchemeMLDSA})
	if !errors.Is(err, verrors.ErrNoPrivateKey) {
		t.Errorf("err = %v, want ErrNoPrivateKey", err)
	}
}

// noPQStore serves classical keys but has no post-quantum material.
type noPQStore struct {
	keystore.Store
}

func (s *noPQStore) MLDSAKey(id uint8) (*mldsa44.PrivateKey, error) {
	return nil, verrors.ErrKeyNotFound
}

func TestSignCertificate(t *testing.T) {
	store := testStore(t, 1)
	signer, err := New(1, store, Options{Scheme: constants.SchemeECDSA})
	if err != nil {
		t.Fatal(err)
	}

	point, err := signer.PublicKeyPoint()
	if err != nil {
		t.Fatalf("PublicKeyPoint: %v", err)
	}
	if point[0] != 4 {
		t.Errorf("point prefix = %d, want 4 (uncompressed)", point[0])
	}

	cert := spdu.Certificate{Subject: 1, PublicKeyPoint: point}
	sig, err := signer.SignCertificate(&cert)
	if err != nil {
		t.Fatalf("SignCertificate: %v", err)
	}
	if len(sig) > constants.CertSignatureCap {
		t.Errorf("signature length %d exceeds cap", len(sig))
	}

	issuer, _ := store.CertificateKey(1)
	digest := cert.Digest()
	if !ecdsa.VerifyASN1(&issuer.PublicKey, digest[:], sig) {
		t.Error("certificate signature does not verify")
	}
}

func TestChunk(t *testing.T) {
	base := baseFragment(1, 2)

	tests := []struct {
		name      string
		sigLen    int
		chunkSize int
		wantCount int
	}{
		{"exact multiple", 1024, 256, 4},
		{"remainder", 1000, 256, 4},
		{"single chunk", 100, 256, 1},
		{"zero size selects capacity", 1024, 0, 2},
		{"oversized clamps to capacity", 1024, 4096, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := make([]byte, tt.sigLen)
			for i := range sig {
				sig[i] = byte(i)
			}

			fragments, err := Chunk(&base, sig, tt.chunkSize)
			if err != nil {
				t.Fatalf("Chunk: %v", err)
			}
			if len(fragments) != tt.wantCount {
				t.Fatalf("count = %d, want %d", len(fragments), tt.wantCount)
			}

			assembled := make([]byte, tt.sigLen)
			total := 0
			for i := range fragments {
				f := &fragments[i]
				copy(assembled[f.ChunkOffset:], f.Chunk())
				total += int(f.ChunkLength)
			}
			if total != tt.sigLen {
				t.Errorf("chunk lengths sum to %d, want %d", total, tt.sigLen)
			}
			if !bytes.Equal(assembled, sig) {
				t.Error("assembled bytes differ from signature")
			}
		})
	}
}

func TestSignTracesSpans(t *testing.T) {
	store := testStore(t, 1)
	tracer := metrics.NewSimpleTracer()
	signer, err := New(1, store, Options{Scheme: constants.SchemeECDSA, Tracer: tracer})
	if err != nil {
		t.Fatal(err)
	}

	base := baseFragment(1, 0)
	if _, err := signer.Sign(context.Background(), &base); err != nil {
		t.Fatal(err)
	}

	spans := tracer.Spans()
	if len(spans) != 1 || spans[0].Name != "sign.ecdsa" {
		t.Errorf("spans = %+v", spans)
	}
}
