// codec.go implements serialization and deserialization of SPDU fragments.
//
// Wire Format:
//
// A fragment is exactly one datagram, fixed size, big-endian:
//
//	+--------+-----+--------+-------+-------+--------+--------+--------+
//	| Sender | Seq | Scheme | FIdx  | FCnt  | SigLen | ChkOff | ChkLen |
//	| 1B     | 4B  | 1B     | 2B    | 2B    | 4B     | 4B     | 4B     |
//	+--------+-----+--------+-------+-------+--------+--------+--------+
//	| TBSData                | CertSigLen | CertSig | SignatureChunk   |
//	| 146B                   | 2B         | 72B     | 512B             |
//	+------------------------+------------+---------+------------------+
//
// TBSData: 5 float64 BSM fields, int64 generation time, then the 98-byte
// certificate (subject 1B, issuer 16B, notBefore 8B, notAfter 8B, point 65B).
// Unused tail bytes of CertSig and SignatureChunk are zero-filled on the wire.
package spdu

import (
	"encoding/binary"
	"math"

	"github.com/sara-star-quant/v2x-go/internal/constants"
	verrors "github.com/sara-star-quant/v2x-go/internal/errors"
)

// Wire sizes.
const (
	headerSize = 1 + 4 + 1 + 2 + 2 + 4 + 4 + 4

	// FragmentWireSize is the fixed size of one encoded fragment, equal to
	// the maximum datagram the transport must carry.
	FragmentWireSize = headerSize + TBSDataSize + 2 +
		constants.CertSignatureCap + constants.MaxFragmentChunkSize
)

// Encode serializes the certificate.
func (c *Certificate) Encode() []byte {
	buf := make([]byte, CertificateSize)
	c.encodeTo(buf)
	return buf
}

func (c *Certificate) encodeTo(buf []byte) {
	buf[0] = c.Subject
	copy(buf[1:17], c.Issuer[:])
	binary.BigEndian.PutUint64(buf[17:], uint64(c.NotBefore))
	binary.BigEndian.PutUint64(buf[25:], uint64(c.NotAfter))
	copy(buf[33:], c.PublicKeyPoint[:])
}

func decodeCertificate(buf []byte, c *Certificate) {
	c.Subject = buf[0]
	copy(c.Issuer[:], buf[1:17])
	c.NotBefore = int64(binary.BigEndian.Uint64(buf[17:]))
	c.NotAfter = int64(binary.BigEndian.Uint64(buf[25:]))
	copy(c.PublicKeyPoint[:], buf[33:33+constants.ECPublicKeyPointSize])
}

// Encode serializes the to-be-signed payload. Both signing paths operate on
// these bytes: the classical path hashes them, the post-quantum path signs
// them raw.
func (t *TBSData) Encode() []byte {
	buf := make([]byte, TBSDataSize)
	t.encodeTo(buf)
	return buf
}

func (t *TBSData) encodeTo(buf []byte) {
	binary.BigEndian.PutUint64(buf[0:], math.Float64bits(t.Latitude))
	binary.BigEndian.PutUint64(buf[8:], math.Float64bits(t.Longitude))
	binary.BigEndian.PutUint64(buf[16:], math.Float64bits(t.Elevation))
	binary.BigEndian.PutUint64(buf[24:], math.Float64bits(t.Speed))
	binary.BigEndian.PutUint64(buf[32:], math.Float64bits(t.Heading))
	binary.BigEndian.PutUint64(buf[40:], uint64(t.GenerationTime))
	t.Cert.encodeTo(buf[48:])
}

func decodeTBSData(buf []byte, t *TBSData) {
	t.Latitude = math.Float64frombits(binary.BigEndian.Uint64(buf[0:]))
	t.Longitude = math.Float64frombits(binary.BigEndian.Uint64(buf[8:]))
	t.Elevation = math.Float64frombits(binary.BigEndian.Uint64(buf[16:]))
	t.Speed = math.Float64frombits(binary.BigEndian.Uint64(buf[24:]))
	t.Heading = math.Float64frombits(binary.BigEndian.Uint64(buf[32:]))
	t.GenerationTime = int64(binary.BigEndian.Uint64(buf[40:]))
	decodeCertificate(buf[48:], &t.Cert)
}

// EncodeFragment serializes a fragment into a fixed-size datagram.
func EncodeFragment(f *Fragment) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, FragmentWireSize)
	offset := 0

	buf[offset] = f.SenderID
	offset++
	binary.BigEndian.PutUint32(buf[offset:], f.SequenceNumber)
	offset += 4
	buf[offset] = byte(f.Scheme)
	offset++
	binary.BigEndian.PutUint16(buf[offset:], f.FragmentIndex)
	offset += 2
	binary.BigEndian.PutUint16(buf[offset:], f.FragmentCount)
	offset += 2
	binary.BigEndian.PutUint32(buf[offset:], f.SignatureTotalLen)
	offset += 4
	binary.BigEndian.PutUint32(buf[offset:], f.ChunkOffset)
	offset += 4
	binary.BigEndian.PutUint32(buf[offset:], f.ChunkLength)
	offset += 4

	f.Payload.encodeTo(buf[offset:])
	offset += TBSDataSize

	binary.BigEndian.PutUint16(buf[offset:], f.CertSigLen)
	offset += 2
	copy(buf[offset:], f.CertSig[:])
	offset += constants.CertSignatureCap
	copy(buf[offset:], f.SignatureChunk[:])

	return buf, nil
}

// DecodeFragment deserializes a fragment from a received datagram. Fields
// that would overflow the fixed buffers are rejected; bound violations that
// only affect reassembly (index out of declared range, offset past buffer)
// are left to the reassembly engine, which ignores such fragments.
func DecodeFragment(data []byte) (*Fragment, error) {
	if len(data) < FragmentWireSize {
		return nil, verrors.ErrShortDatagram
	}

	f := &Fragment{}
	offset := 0

	f.SenderID = data[offset]
	offset++
	f.SequenceNumber = binary.BigEndian.Uint32(data[offset:])
	offset += 4
	f.Scheme = constants.Scheme(data[offset])
	offset++
	f.FragmentIndex = binary.BigEndian.Uint16(data[offset:])
	offset += 2
	f.FragmentCount = binary.BigEndian.Uint16(data[offset:])
	offset += 2
	f.SignatureTotalLen = binary.BigEndian.Uint32(data[offset:])
	offset += 4
	f.ChunkOffset = binary.BigEndian.Uint32(data[offset:])
	offset += 4
	f.ChunkLength = binary.BigEndian.Uint32(data[offset:])
	offset += 4

	if f.ChunkLength > constants.MaxFragmentChunkSize {
		return nil, verrors.ErrInvalidFragment
	}
	if f.SignatureTotalLen > constants.MaxSignatureTotalSize {
		return nil, verrors.ErrInvalidFragment
	}

	decodeTBSData(data[offset:], &f.Payload)
	offset += TBSDataSize

	f.CertSigLen = binary.BigEndian.Uint16(data[offset:])
	offset += 2
	if int(f.CertSigLen) > constants.CertSignatureCap {
		return nil, verrors.ErrInvalidFragment
	}
	copy(f.CertSig[:], data[offset:offset+constants.CertSignatureCap])
	offset += constants.CertSignatureCap
	copy(f.SignatureChunk[:], data[offset:offset+constants.MaxFragmentChunkSize])

	return f, nil
}
