package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"
)

// RFC 5869 Appendix A, Test Case 1 (SHA-256).
func TestHKDFSHA256Vector(t *testing.T) {
	ikm, _ := hex.DecodeString("0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b")
	salt, _ := hex.DecodeString("000102030405060708090a0b0c")
	info, _ := hex.DecodeString("f0f1f2f3f4f5f6f7f8f9")
	want, _ := hex.DecodeString(
		"3cb25f25faacd57a90434f64d0362f2a2d2d0a90cf1a5a4c5db02d56ecc4c5bf34007208d5b887185865")

	got, err := HKDFSHA256(ikm, salt, info, 42)
	if err != nil {
		t.Fatalf("HKDFSHA256() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("HKDFSHA256() = %x, want %x", got, want)
	}
}

func TestHKDFSHA256Properties(t *testing.T) {
	secret := []byte("shared secret")

	out, err := HKDFSHA256(secret, nil, []byte("KeyVerification"), 16)
	if err != nil {
		t.Fatalf("HKDFSHA256() error = %v", err)
	}
	if len(out) != 16 {
		t.Fatalf("derived %d bytes, want 16", len(out))
	}

	again, err := HKDFSHA256(secret, nil, []byte("KeyVerification"), 16)
	if err != nil {
		t.Fatalf("HKDFSHA256() error = %v", err)
	}
	if !bytes.Equal(out, again) {
		t.Error("derivation is not deterministic")
	}

	other, err := HKDFSHA256(secret, nil, []byte("OtherContext"), 16)
	if err != nil {
		t.Fatalf("HKDFSHA256() error = %v", err)
	}
	if bytes.Equal(out, other) {
		t.Error("distinct info produced identical key material")
	}
}
