package checkin

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/backkem/matter-bridge/pkg/crypto"
)

func TestBuildNonceLayout(t *testing.T) {
	nonce := BuildNonce(0x05, 0x1122334455667788, 0xAABBCCDD)
	if len(nonce) != crypto.NonceSize {
		t.Fatalf("nonce length = %d, want %d", len(nonce), crypto.NonceSize)
	}
	if nonce[0] != 0x05 {
		t.Errorf("fabric byte = %#x, want 0x05", nonce[0])
	}
	if got := binary.LittleEndian.Uint64(nonce[1:9]); got != 0x1122334455667788 {
		t.Errorf("monitored subject = %#x", got)
	}
	if got := binary.LittleEndian.Uint32(nonce[9:13]); got != 0xAABBCCDD {
		t.Errorf("counter = %#x", got)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	client := testClient(3, 0x42)

	msg, err := BuildMessage(client, 7, 5000)
	if err != nil {
		t.Fatalf("BuildMessage() error = %v", err)
	}
	if len(msg) != MessageSize {
		t.Fatalf("message length = %d, want %d", len(msg), MessageSize)
	}

	threshold, err := OpenMessage(client, 7, msg)
	if err != nil {
		t.Fatalf("OpenMessage() error = %v", err)
	}
	if threshold != 5000 {
		t.Errorf("threshold = %d, want 5000", threshold)
	}
}

func TestMessageRejectsTampering(t *testing.T) {
	client := testClient(3, 0x42)
	msg, err := BuildMessage(client, 7, 5000)
	if err != nil {
		t.Fatalf("BuildMessage() error = %v", err)
	}

	t.Run("FlippedBit", func(t *testing.T) {
		bad := append([]byte(nil), msg...)
		bad[2] ^= 0x01
		if _, err := OpenMessage(client, 7, bad); !errors.Is(err, crypto.ErrAuthFailed) {
			t.Errorf("OpenMessage() error = %v, want %v", err, crypto.ErrAuthFailed)
		}
	})

	t.Run("WrongCounter", func(t *testing.T) {
		if _, err := OpenMessage(client, 8, msg); !errors.Is(err, crypto.ErrAuthFailed) {
			t.Errorf("OpenMessage() error = %v, want %v", err, crypto.ErrAuthFailed)
		}
	})

	t.Run("WrongKey", func(t *testing.T) {
		other := testClient(3, 0x43)
		other.FabricIndex = client.FabricIndex
		other.MonitoredSubject = client.MonitoredSubject
		if _, err := OpenMessage(other, 7, msg); !errors.Is(err, crypto.ErrAuthFailed) {
			t.Errorf("OpenMessage() error = %v, want %v", err, crypto.ErrAuthFailed)
		}
	})

	t.Run("Truncated", func(t *testing.T) {
		if _, err := OpenMessage(client, 7, msg[:8]); !errors.Is(err, ErrMalformedMessage) {
			t.Errorf("OpenMessage() error = %v, want %v", err, ErrMalformedMessage)
		}
	})
}

func TestMessagesDifferPerCounter(t *testing.T) {
	client := testClient(1, 0x10)

	m1, err := BuildMessage(client, 1, 5000)
	if err != nil {
		t.Fatalf("BuildMessage() error = %v", err)
	}
	m2, err := BuildMessage(client, 2, 5000)
	if err != nil {
		t.Fatalf("BuildMessage() error = %v", err)
	}
	if bytes.Equal(m1, m2) {
		t.Error("distinct counters produced identical messages")
	}
}

func TestDeriveVerificationKey(t *testing.T) {
	key := make([]byte, crypto.KeySize)
	v1, err := DeriveVerificationKey(key)
	if err != nil {
		t.Fatalf("DeriveVerificationKey() error = %v", err)
	}
	if len(v1) != crypto.KeySize {
		t.Fatalf("derived key length = %d, want %d", len(v1), crypto.KeySize)
	}
	if bytes.Equal(v1, key) {
		t.Error("verification key equals shared key")
	}

	if _, err := DeriveVerificationKey(key[:8]); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("short key error = %v, want %v", err, ErrInvalidKey)
	}
}
