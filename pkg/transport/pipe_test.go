package transport

import (
	"bytes"
	"testing"
	"time"
)

func TestPipeDelivers(t *testing.T) {
	p := NewPipe()
	defer p.Close()

	payload := []byte{0xAA, 0xBB, 0xCC}
	if err := p.Send("", payload); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case got := <-p.Received():
		if !bytes.Equal(got, payload) {
			t.Errorf("received %x, want %x", got, payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("datagram not delivered")
	}
}

func TestPipeDropsEverythingAtFullRate(t *testing.T) {
	p := NewPipe()
	defer p.Close()
	p.SetDropRate(1.0)

	for i := 0; i < 10; i++ {
		if err := p.Send("", []byte{byte(i)}); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}

	select {
	case got := <-p.Received():
		t.Errorf("received %x despite full drop rate", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPipeSendAfterClose(t *testing.T) {
	p := NewPipe()
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := p.Send("", []byte{1}); err != ErrClosed {
		t.Errorf("Send() after close error = %v, want %v", err, ErrClosed)
	}
}
