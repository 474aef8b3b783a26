package verify

import (
	"context"
	"testing"
	"time"

	"github.com/cloudflare/circl/sign/mldsa/mldsa44"

	"github.com/sara-star-quant/v2x-go/internal/constants"
	"github.com/sara-star-quant/v2x-go/pkg/keystore"
	"github.com/sara-star-quant/v2x-go/pkg/reassembly"
	"github.com/sara-star-quant/v2x-go/pkg/sign"
	"github.com/sara-star-quant/v2x-go/pkg/spdu"
)

// buildMessage signs and reassembles one message end to end, returning the
// verification inputs.
func buildMessage(t *testing.T, store keystore.Store, sender uint8, scheme constants.Scheme, generated time.Time) (*spdu.Fragment, []byte) {
	t.Helper()

	signer, err := sign.New(sender, store, sign.Options{Scheme: scheme, PQFragmentBytes: 256})
	if err != nil {
		t.Fatal(err)
	}

	point, err := signer.PublicKeyPoint()
	if err != nil {
		t.Fatal(err)
	}
	cert := spdu.Certificate{
		Subject:        sender,
		NotBefore:      generated.Add(-time.Hour).UnixMicro(),
		NotAfter:       generated.Add(time.Hour).UnixMicro(),
		PublicKeyPoint: point,
	}
	copy(cert.Issuer[:], "test-root-ca")
	certSig, err := signer.SignCertificate(&cert)
	if err != nil {
		t.Fatal(err)
	}

	base := spdu.Fragment{
		SenderID:       sender,
		SequenceNumber: 7,
		Payload: spdu.TBSData{
			Latitude:       48.137,
			Longitude:      11.575,
			Speed:          42,
			GenerationTime: generated.UnixMicro(),
			Cert:           cert,
		},
		CertSigLen: uint16(len(certSig)),
	}
	copy(base.CertSig[:], certSig)

	fragments, err := signer.Sign(context.Background(), &base)
	if err != nil {
		t.Fatal(err)
	}

	engine := reassembly.New()
	for i := range fragments {
		if msg, done := engine.Ingest(&fragments[i]); done {
			return &msg.Template, msg.Signature
		}
	}
	t.Fatal("message did not complete reassembly")
	return nil, nil
}

func provisioned(t *testing.T, ids ...uint8) *keystore.MemoryStore {
	t.Helper()
	store := keystore.NewMemoryStore()
	for _, id := range ids {
		if err := store.Provision(id); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func TestVerifyAcceptsValidMessage(t *testing.T) {
	for _, scheme := range []constants.Scheme{constants.SchemeECDSA, constants.SchemeMLDSA} {
		t.Run(scheme.String(), func(t *testing.T) {
			store := provisioned(t, 3)
			generated := time.Now()
			template, sig := buildMessage(t, store, 3, scheme, generated)

			p := New(store)
			res, err := p.Verify(context.Background(), template, sig, generated.Add(50*time.Millisecond))
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if !res.Accepted() {
				t.Errorf("valid message rejected: %+v", res)
			}
		})
	}
}

func TestVerifyCorruptSignature(t *testing.T) {
	for _, scheme := range []constants.Scheme{constants.SchemeECDSA, constants.SchemeMLDSA} {
		t.Run(scheme.String(), func(t *testing.T) {
			store := provisioned(t, 3)
			generated := time.Now()
			template, sig := buildMessage(t, store, 3, scheme, generated)

			corrupted := make([]byte, len(sig))
			copy(corrupted, sig)
			corrupted[len(corrupted)/2] ^= 0x01

			p := New(store)
			res, err := p.Verify(context.Background(), template, corrupted, generated)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if res.SigValid {
				t.Error("corrupt signature accepted")
			}
			if !res.CertValid {
				t.Error("certificate check should be independent of the message signature")
			}
			if res.Accepted() {
				t.Error("message accepted despite invalid signature")
			}
		})
	}
}

func TestVerifyTamperedPayload(t *testing.T) {
	store := provisioned(t, 3)
	generated := time.Now()
	template, sig := buildMessage(t, store, 3, constants.SchemeECDSA, generated)

	tampered := *template
	tampered.Payload.Speed += 10

	p := New(store)
	res, err := p.Verify(context.Background(), &tampered, sig, generated)
	if err != nil {
		t.Fatal(err)
	}
	if res.SigValid {
		t.Error("signature over tampered payload accepted")
	}
}

func TestVerifyFreshnessWindow(t *testing.T) {
	store := provisioned(t, 3)
	generated := time.Unix(1_750_000_000, 0)
	template, sig := buildMessage(t, store, 3, constants.SchemeECDSA, generated)

	p := New(store)

	tests := []struct {
		name        string
		completedAt time.Time
		wantFresh   bool
	}{
		{"instant", generated, true},
		{"just inside", generated.Add(constants.FreshnessWindow - time.Millisecond), true},
		{"at boundary", generated.Add(constants.FreshnessWindow), false},
		{"stale", generated.Add(constants.FreshnessWindow + time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Verify(context.Background(), template, sig, tt.completedAt)
			if err != nil {
				t.Fatal(err)
			}
			if res.Fresh != tt.wantFresh {
				t.Errorf("Fresh = %v, want %v", res.Fresh, tt.wantFresh)
			}
			if !res.CertValid || !res.SigValid {
				t.Error("freshness must not affect the other checks")
			}
		})
	}
}

func TestVerifyUnknownScheme(t *testing.T) {
	store := provisioned(t, 3)
	generated := time.Now()
	template, sig := buildMessage(t, store, 3, constants.SchemeECDSA, generated)

	unknown := *template
	unknown.Scheme = constants.Scheme(9)

	p := New(store)
	res, err := p.Verify(context.Background(), &unknown, sig, generated)
	if err != nil {
		t.Fatalf("unknown scheme must reject the message, not the run: %v", err)
	}
	if res.SigValid {
		t.Error("unknown scheme accepted")
	}
}

func TestVerifyUnknownSenderIsFatal(t *testing.T) {
	store := provisioned(t, 3)
	generated := time.Now()
	template, sig := buildMessage(t, store, 3, constants.SchemeECDSA, generated)

	stranger := *template
	stranger.SenderID = 200

	p := New(store)
	if _, err := p.Verify(context.Background(), &stranger, sig, generated); err == nil {
		t.Fatal("missing key material should be a fatal error")
	}
}

// pqCountingStore counts ML-DSA public key loads to observe caching.
type pqCountingStore struct {
	keystore.Store
	loads int
}

func (s *pqCountingStore) MLDSAPublic(id uint8) (*mldsa44.PublicKey, error) {
	s.loads++
	return s.Store.MLDSAPublic(id)
}

func TestVerifyCachesPQKeys(t *testing.T) {
	store := provisioned(t, 3)
	counting := &pqCountingStore{Store: store}

	generated := time.Now()
	template, sig := buildMessage(t, store, 3, constants.SchemeMLDSA, generated)

	p := New(counting)
	for i := 0; i < 3; i++ {
		if _, err := p.Verify(context.Background(), template, sig, generated); err != nil {
			t.Fatal(err)
		}
	}
	if counting.loads != 1 {
		t.Errorf("store loads = %d, want 1 (cached)", counting.loads)
	}

	p.ResetCache()
	if _, err := p.Verify(context.Background(), template, sig, generated); err != nil {
		t.Fatal(err)
	}
	if counting.loads != 2 {
		t.Errorf("store loads = %d after reset, want 2", counting.loads)
	}
}
