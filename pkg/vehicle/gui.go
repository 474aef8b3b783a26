// gui.go forwards a compact record to the visualization endpoint after each
// completed reassembly. The record carries only fields derivable from the
// reassembled template and the verification result.
package vehicle

import (
	"encoding/binary"
	"math"

	"github.com/sara-star-quant/v2x-go/pkg/spdu"
)

// guiRecordVersion tags the packed record layout.
const guiRecordVersion = 7

// GUIRecordSize is the size of the packed visualization record.
const GUIRecordSize = 5*8 + 4

// Forwarder relays packed records to a visualization endpoint.
type Forwarder struct {
	ch Channel
}

// NewForwarder wraps a channel to the visualization endpoint.
func NewForwarder(ch Channel) *Forwarder {
	return &Forwarder{ch: ch}
}

// Forward sends the packed record for one completed message.
func (f *Forwarder) Forward(template *spdu.Fragment, valid bool) error {
	return f.ch.Send(EncodeGUIRecord(template, valid))
}

// Close releases the underlying channel.
func (f *Forwarder) Close() error {
	return f.ch.Close()
}

// EncodeGUIRecord packs position, kinematics, validity, and sender id into
// the fixed wire layout consumed by the visualization relays.
func EncodeGUIRecord(template *spdu.Fragment, valid bool) []byte {
	buf := make([]byte, GUIRecordSize)
	offset := 0
	for _, v := range []float64{
		template.Payload.Latitude,
		template.Payload.Longitude,
		template.Payload.Elevation,
		template.Payload.Speed,
		template.Payload.Heading,
	} {
		binary.BigEndian.PutUint64(buf[offset:], math.Float64bits(v))
		offset += 8
	}
	if valid {
		buf[offset] = 1
	}
	buf[offset+1] = 1 // received flag
	buf[offset+2] = guiRecordVersion
	buf[offset+3] = template.SenderID
	return buf
}
