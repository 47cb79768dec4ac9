package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func testKey() []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func testNonce() []byte {
	nonce := make([]byte, NonceSize)
	for i := range nonce {
		nonce[i] = byte(0xA0 + i)
	}
	return nonce
}

func TestAESCCMRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		micSize   int
		plaintext []byte
		aad       []byte
	}{
		{"ShortMICNoAAD", MICSizeShort, []byte("check-in payload"), nil},
		{"ShortMICEmptyPlaintext", MICSizeShort, nil, nil},
		{"FullMICWithAAD", MICSizeFull, []byte("session payload"), []byte("header")},
		{"MultiBlock", MICSizeShort, bytes.Repeat([]byte{0x5A}, 100), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ccm, err := NewAESCCM(testKey(), tt.micSize)
			if err != nil {
				t.Fatalf("NewAESCCM() error = %v", err)
			}

			sealed, err := ccm.Seal(testNonce(), tt.plaintext, tt.aad)
			if err != nil {
				t.Fatalf("Seal() error = %v", err)
			}
			if len(sealed) != len(tt.plaintext)+tt.micSize {
				t.Fatalf("sealed length = %d, want %d", len(sealed), len(tt.plaintext)+tt.micSize)
			}

			opened, err := ccm.Open(testNonce(), sealed, tt.aad)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if !bytes.Equal(opened, tt.plaintext) {
				t.Errorf("Open() = %x, want %x", opened, tt.plaintext)
			}
		})
	}
}

func TestAESCCMAuthFailures(t *testing.T) {
	ccm, err := NewAESCCM(testKey(), MICSizeShort)
	if err != nil {
		t.Fatalf("NewAESCCM() error = %v", err)
	}
	sealed, err := ccm.Seal(testNonce(), []byte("payload"), nil)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	t.Run("TamperedCiphertext", func(t *testing.T) {
		bad := append([]byte(nil), sealed...)
		bad[0] ^= 0x01
		if _, err := ccm.Open(testNonce(), bad, nil); !errors.Is(err, ErrAuthFailed) {
			t.Errorf("Open() error = %v, want %v", err, ErrAuthFailed)
		}
	})

	t.Run("TamperedMIC", func(t *testing.T) {
		bad := append([]byte(nil), sealed...)
		bad[len(bad)-1] ^= 0x01
		if _, err := ccm.Open(testNonce(), bad, nil); !errors.Is(err, ErrAuthFailed) {
			t.Errorf("Open() error = %v, want %v", err, ErrAuthFailed)
		}
	})

	t.Run("WrongKey", func(t *testing.T) {
		other := testKey()
		other[0] ^= 0xFF
		ccm2, _ := NewAESCCM(other, MICSizeShort)
		if _, err := ccm2.Open(testNonce(), sealed, nil); !errors.Is(err, ErrAuthFailed) {
			t.Errorf("Open() error = %v, want %v", err, ErrAuthFailed)
		}
	})

	t.Run("WrongNonce", func(t *testing.T) {
		nonce := testNonce()
		nonce[0] ^= 0xFF
		if _, err := ccm.Open(nonce, sealed, nil); !errors.Is(err, ErrAuthFailed) {
			t.Errorf("Open() error = %v, want %v", err, ErrAuthFailed)
		}
	})

	t.Run("WrongAAD", func(t *testing.T) {
		if _, err := ccm.Open(testNonce(), sealed, []byte("extra")); !errors.Is(err, ErrAuthFailed) {
			t.Errorf("Open() error = %v, want %v", err, ErrAuthFailed)
		}
	})
}

func TestAESCCMParameterValidation(t *testing.T) {
	if _, err := NewAESCCM(make([]byte, 8), MICSizeShort); !errors.Is(err, ErrInvalidKeySize) {
		t.Errorf("short key error = %v, want %v", err, ErrInvalidKeySize)
	}
	if _, err := NewAESCCM(testKey(), 12); !errors.Is(err, ErrInvalidMICSize) {
		t.Errorf("unsupported MIC size error = %v, want %v", err, ErrInvalidMICSize)
	}

	ccm, _ := NewAESCCM(testKey(), MICSizeShort)
	if _, err := ccm.Seal(make([]byte, 12), nil, nil); !errors.Is(err, ErrInvalidNonceSize) {
		t.Errorf("short nonce error = %v, want %v", err, ErrInvalidNonceSize)
	}
	if _, err := ccm.Open(testNonce(), make([]byte, 4), nil); !errors.Is(err, ErrTooShort) {
		t.Errorf("short ciphertext error = %v, want %v", err, ErrTooShort)
	}
}

func TestAESCCMDistinctMICSizes(t *testing.T) {
	short, _ := NewAESCCM(testKey(), MICSizeShort)
	full, _ := NewAESCCM(testKey(), MICSizeFull)

	s1, err := short.Seal(testNonce(), []byte("x"), nil)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	s2, err := full.Seal(testNonce(), []byte("x"), nil)
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if len(s2)-len(s1) != MICSizeFull-MICSizeShort {
		t.Errorf("MIC size difference = %d, want %d", len(s2)-len(s1), MICSizeFull-MICSizeShort)
	}
}
