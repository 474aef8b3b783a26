// compress.go implements the optional signature-byte transform applied before
// fragmentation. The core transports raw bytes; when compression is enabled
// both peers agree on it out of band, the transmitter applies it to the whole
// signature before chunking, and the receiver reverses it on the assembled
// buffer before verification.
package spdu

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	verrors "github.com/sara-star-quant/v2x-go/internal/errors"
)

// Compression selects the signature transform.
type Compression string

const (
	// CompressionNone transports raw signature bytes.
	CompressionNone Compression = "none"

	// CompressionZstd compresses the signature with zstandard.
	CompressionZstd Compression = "zstd"
)

// ParseCompression parses a configuration tag. An empty tag means none.
func ParseCompression(tag string) (Compression, error) {
	switch Compression(tag) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionZstd:
		return CompressionZstd, nil
	default:
		return "", verrors.NewOpError("spdu.ParseCompression",
			fmt.Errorf("unknown compression tag %q", tag))
	}
}

// SignatureTransform is the reversible transform applied to signature bytes
// around fragmentation.
type SignatureTransform interface {
	// Apply transforms the signature before fragmentation.
	Apply(sig []byte) ([]byte, error)

	// Reverse undoes the transform on the assembled signature buffer.
	Reverse(buf []byte) ([]byte, error)
}

// NewTransform builds the transform for a compression selection.
func NewTransform(c Compression) (SignatureTransform, error) {
	switch c {
	case CompressionNone:
		return identityTransform{}, nil
	case CompressionZstd:
		return newZstdTransform()
	default:
		return nil, verrors.NewOpError("spdu.NewTransform",
			fmt.Errorf("unknown compression %q", c))
	}
}

type identityTransform struct{}

func (identityTransform) Apply(sig []byte) ([]byte, error)   { return sig, nil }
func (identityTransform) Reverse(buf []byte) ([]byte, error) { return buf, nil }

type zstdTransform struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newZstdTransform() (*zstdTransform, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, verrors.NewOpError("spdu.NewTransform", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, verrors.NewOpError("spdu.NewTransform", err)
	}
	return &zstdTransform{enc: enc, dec: dec}, nil
}

func (t *zstdTransform) Apply(sig []byte) ([]byte, error) {
	return t.enc.EncodeAll(sig, nil), nil
}

func (t *zstdTransform) Reverse(buf []byte) ([]byte, error) {
	out, err := t.dec.DecodeAll(buf, nil)
	if err != nil {
		return nil, verrors.NewOpError("spdu.Transform.Reverse", err)
	}
	return out, nil
}
