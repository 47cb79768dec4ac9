package transport

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestUDPSendReceive(t *testing.T) {
	got := make(chan []byte, 1)
	receiver, err := NewUDP(UDPConfig{
		ListenAddr: "127.0.0.1:0",
		Handler: func(payload []byte, _ string) {
			got <- payload
		},
	})
	if err != nil {
		t.Fatalf("NewUDP() error = %v", err)
	}
	if err := receiver.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer receiver.Stop()

	sender, err := NewUDP(UDPConfig{ListenAddr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("NewUDP() error = %v", err)
	}
	defer sender.Stop()

	payload := []byte{0x01, 0x02, 0x03, 0x04}
	if err := sender.Send(receiver.LocalAddr().String(), payload); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case received := <-got:
		if !bytes.Equal(received, payload) {
			t.Errorf("received %x, want %x", received, payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("datagram not delivered")
	}
}

func TestUDPSendValidation(t *testing.T) {
	u, err := NewUDP(UDPConfig{ListenAddr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("NewUDP() error = %v", err)
	}

	if err := u.Send("not-an-address", []byte{1}); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("bad address error = %v, want %v", err, ErrInvalidAddress)
	}

	huge := make([]byte, MaxDatagramSize+1)
	if err := u.Send("127.0.0.1:1", huge); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("oversized error = %v, want %v", err, ErrMessageTooLarge)
	}

	if err := u.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := u.Send("127.0.0.1:1", []byte{1}); !errors.Is(err, ErrClosed) {
		t.Errorf("closed error = %v, want %v", err, ErrClosed)
	}
}
