package vehicle

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	verrors "github.com/sara-star-quant/v2x-go/internal/errors"
)

func TestMemoryChannelRoundTrip(t *testing.T) {
	ch := NewMemoryChannel(4)

	want := []byte{1, 2, 3, 4}
	if err := ch.Send(want); err != nil {
		t.Fatalf("Send: %v", err)
	}

	// Mutating the caller's slice must not affect the in-flight datagram.
	want[0] = 99

	buf := make([]byte, 16)
	n, err := ch.Receive(buf)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if !bytes.Equal(buf[:n], []byte{1, 2, 3, 4}) {
		t.Errorf("received %v", buf[:n])
	}
}

func TestMemoryChannelClosed(t *testing.T) {
	ch := NewMemoryChannel(4)
	if err := ch.Send([]byte{1}); err != nil {
		t.Fatal(err)
	}
	if err := ch.Close(); err != nil {
		t.Fatal(err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("Close should be idempotent: %v", err)
	}

	if err := ch.Send([]byte{2}); !errors.Is(err, verrors.ErrChannelClosed) {
		t.Errorf("Send after close: err = %v, want ErrChannelClosed", err)
	}

	// Pending datagrams drain after close.
	buf := make([]byte, 4)
	if n, err := ch.Receive(buf); err != nil || n != 1 {
		t.Errorf("drain after close = (%d, %v)", n, err)
	}
	if _, err := ch.Receive(buf); !errors.Is(err, verrors.ErrChannelClosed) {
		t.Errorf("Receive on drained closed channel: err = %v", err)
	}
}

func TestMemoryChannelShortBuffer(t *testing.T) {
	ch := NewMemoryChannel(1)
	if err := ch.Send(make([]byte, 100)); err != nil {
		t.Fatal(err)
	}
	if _, err := ch.Receive(make([]byte, 10)); err == nil {
		t.Error("want error when datagram exceeds buffer")
	}
}

func TestUDPChannelLoopback(t *testing.T) {
	recv, err := ListenUDP(0)
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer recv.Close()

	send, err := DialUDP(fmt.Sprintf("127.0.0.1:%d", recv.LocalPort()))
	if err != nil {
		t.Fatalf("DialUDP: %v", err)
	}
	defer send.Close()

	want := []byte("datagram")
	if err := send.Send(want); err != nil {
		t.Fatalf("Send: %v", err)
	}

	buf := make([]byte, 64)
	n, err := recv.Receive(buf)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if !bytes.Equal(buf[:n], want) {
		t.Errorf("received %q", buf[:n])
	}
}

