package constants

import "testing"

func TestClampFragmentBytes(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		want      int
	}{
		{"zero selects capacity", 0, MaxFragmentChunkSize},
		{"negative selects capacity", -5, MaxFragmentChunkSize},
		{"one", 1, 1},
		{"typical", 256, 256},
		{"at capacity", MaxFragmentChunkSize, MaxFragmentChunkSize},
		{"above capacity clamps", MaxFragmentChunkSize + 1, MaxFragmentChunkSize},
		{"far above capacity clamps", 1 << 20, MaxFragmentChunkSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampFragmentBytes(tt.requested); got != tt.want {
				t.Errorf("ClampFragmentBytes(%d) = %d, want %d", tt.requested, got, tt.want)
			}
		})
	}
}

func TestSchemeString(t *testing.T) {
	tests := []struct {
		scheme Scheme
		want   string
	}{
		{SchemeECDSA, "ECDSA"},
		{SchemeMLDSA, "ML-DSA"},
		{Scheme(7), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.scheme.String(); got != tt.want {
			t.Errorf("Scheme(%d).String() = %q, want %q", tt.scheme, got, tt.want)
		}
	}
}

func TestSchemeIsSupported(t *testing.T) {
	if !SchemeECDSA.IsSupported() {
		t.Error("SchemeECDSA should be supported")
	}
	if !SchemeMLDSA.IsSupported() {
		t.Error("SchemeMLDSA should be supported")
	}
	if Scheme(255).IsSupported() {
		t.Error("Scheme(255) should not be supported")
	}
}

func TestCapacityRelations(t *testing.T) {
	// The lattice signature must be transportable at the default chunk size.
	if MLDSASignatureSize > MaxSignatureTotalSize {
		t.Errorf("ML-DSA signature (%d) exceeds total capacity (%d)",
			MLDSASignatureSize, MaxSignatureTotalSize)
	}
	if DefaultPQFragmentBytes > MaxFragmentChunkSize {
		t.Errorf("default chunk size (%d) exceeds chunk capacity (%d)",
			DefaultPQFragmentBytes, MaxFragmentChunkSize)
	}
}
