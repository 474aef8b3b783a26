// channel.go defines the unreliable, unordered, message-oriented transport
// the simulator runs over. A fragment is exactly one datagram. UDP is the
// real transport; MemoryChannel serves tests.
package vehicle

import (
	"fmt"
	"net"
	"sync"

	verrors "github.com/sara-star-quant/v2x-go/internal/errors"
)

// Channel is one direction of the datagram transport. No acknowledgement, no
// flow control; Send and Receive errors are fatal to the run.
type Channel interface {
	// Send transmits one datagram.
	Send(datagram []byte) error

	// Receive blocks for the next datagram and copies it into buf,
	// returning the number of bytes.
	Receive(buf []byte) (int, error)

	// Close releases the channel.
	Close() error
}

// UDPChannel carries datagrams over a UDP socket.
type UDPChannel struct {
	conn *net.UDPConn
}

// DialUDP opens a send-side channel to the given address.
func DialUDP(addr string) (*UDPChannel, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, verrors.NewOpError("vehicle.DialUDP", err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, verrors.NewOpError("vehicle.DialUDP", err)
	}
	return &UDPChannel{conn: conn}, nil
}

// ListenUDP opens a receive-side channel bound to the given port.
func ListenUDP(port int) (*UDPChannel, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, verrors.NewOpError("vehicle.ListenUDP", err)
	}
	return &UDPChannel{conn: conn}, nil
}

// Send transmits one datagram on the connected socket.
func (c *UDPChannel) Send(datagram []byte) error {
	if _, err := c.conn.Write(datagram); err != nil {
		return verrors.NewOpError("vehicle.UDPChannel.Send", err)
	}
	return nil
}

// Receive blocks for the next inbound datagram.
func (c *UDPChannel) Receive(buf []byte) (int, error) {
	n, _, err := c.conn.ReadFromUDP(buf)
	if err != nil {
		return 0, verrors.NewOpError("vehicle.UDPChannel.Receive", err)
	}
	return n, nil
}

// Close closes the socket.
func (c *UDPChannel) Close() error {
	return c.conn.Close()
}

// LocalPort returns the bound local port.
func (c *UDPChannel) LocalPort() int {
	if addr, ok := c.conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.Port
	}
	return 0
}

// MemoryChannel is an in-process datagram channel for tests. Datagrams are
// delivered in send order per sender but may interleave across concurrent
// senders, like the UDP socket it stands in for.
type MemoryChannel struct {
	ch     chan []byte
	mu     sync.RWMutex
	closed bool
}

// NewMemoryChannel creates a channel buffering up to capacity datagrams.
func NewMemoryChannel(capacity int) *MemoryChannel {
	return &MemoryChannel{ch: make(chan []byte, capacity)}
}

// Send copies and enqueues one datagram.
func (m *MemoryChannel) Send(datagram []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return verrors.ErrChannelClosed
	}
	cp := make([]byte, len(datagram))
	copy(cp, datagram)
	m.ch <- cp
	return nil
}

// Receive blocks for the next datagram.
func (m *MemoryChannel) Receive(buf []byte) (int, error) {
	data, ok := <-m.ch
	if !ok {
		return 0, verrors.ErrChannelClosed
	}
	if len(data) > len(buf) {
		return 0, verrors.NewOpError("vehicle.MemoryChannel.Receive",
			fmt.Errorf("datagram of %d bytes exceeds buffer", len(data)))
	}
	return copy(buf, data), nil
}

// Close closes the channel; pending datagrams remain receivable.
func (m *MemoryChannel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.ch)
	}
	return nil
}
