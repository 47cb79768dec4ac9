// Package crypto provides the symmetric primitives the bridge needs:
// AES-128-CCM (NIST 800-38C, RFC 3610) and HKDF-SHA256 (RFC 5869).
// CCM is used with 13-byte nonces; the MIC length is selectable because
// check-in messages authenticate with an 8-byte MIC while session
// traffic uses 16.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"errors"
)

const (
	// KeySize is the AES-128 key size in bytes.
	KeySize = 16

	// NonceSize is the CCM nonce size in bytes.
	NonceSize = 13

	// MICSizeFull is the full 16-byte authentication tag.
	MICSizeFull = 16

	// MICSizeShort is the truncated 8-byte tag used by check-in messages.
	MICSizeShort = 8

	blockSize = 16

	// lenSize is L, the CCM length-field width. With a 13-byte nonce,
	// L = 15 - 13 = 2.
	lenSize = 2
)

var (
	ErrInvalidKeySize   = errors.New("crypto: key must be 16 bytes")
	ErrInvalidNonceSize = errors.New("crypto: nonce must be 13 bytes")
	ErrInvalidMICSize   = errors.New("crypto: MIC must be 8 or 16 bytes")
	ErrTooShort         = errors.New("crypto: ciphertext shorter than MIC")
	ErrAuthFailed       = errors.New("crypto: message authentication failed")
)

// AESCCM is an AES-128-CCM instance with a fixed 13-byte nonce and a
// configurable MIC size.
type AESCCM struct {
	block   cipher.Block
	micSize int
}

// NewAESCCM creates an AES-128-CCM cipher. micSize must be
// MICSizeShort or MICSizeFull.
func NewAESCCM(key []byte, micSize int) (*AESCCM, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	if micSize != MICSizeShort && micSize != MICSizeFull {
		return nil, ErrInvalidMICSize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return &AESCCM{block: block, micSize: micSize}, nil
}

// MICSize returns the configured authentication tag length.
func (c *AESCCM) MICSize() int { return c.micSize }

// Seal encrypts and authenticates plaintext, returning ciphertext || MIC.
// The nonce must be unique per encryption under the same key.
func (c *AESCCM) Seal(nonce, plaintext, aad []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonceSize
	}

	tag := c.cbcMAC(nonce, plaintext, aad)
	s0 := c.counterBlock(nonce, 0)

	out := make([]byte, len(plaintext)+c.micSize)
	for i := 0; i < c.micSize; i++ {
		out[len(plaintext)+i] = tag[i] ^ s0[i]
	}
	c.ctrXOR(nonce, out[:len(plaintext)], plaintext)
	return out, nil
}

// Open verifies and decrypts ciphertext || MIC, returning the plaintext.
func (c *AESCCM) Open(nonce, ciphertext, aad []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonceSize
	}
	if len(ciphertext) < c.micSize {
		return nil, ErrTooShort
	}

	body := ciphertext[:len(ciphertext)-c.micSize]
	encTag := ciphertext[len(ciphertext)-c.micSize:]

	s0 := c.counterBlock(nonce, 0)
	recvTag := make([]byte, c.micSize)
	for i := range recvTag {
		recvTag[i] = encTag[i] ^ s0[i]
	}

	plaintext := make([]byte, len(body))
	c.ctrXOR(nonce, plaintext, body)

	want := c.cbcMAC(nonce, plaintext, aad)
	if subtle.ConstantTimeCompare(recvTag, want[:c.micSize]) != 1 {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// cbcMAC computes the CCM CBC-MAC over B_0, the encoded AAD, and the
// plaintext (NIST 800-38C Section 6.1).
func (c *AESCCM) cbcMAC(nonce, plaintext, aad []byte) []byte {
	var b0 [blockSize]byte
	flags := byte(lenSize - 1)
	flags |= byte((c.micSize-2)/2) << 3
	if len(aad) > 0 {
		flags |= 1 << 6
	}
	b0[0] = flags
	copy(b0[1:1+NonceSize], nonce)
	binary.BigEndian.PutUint16(b0[blockSize-lenSize:], uint16(len(plaintext)))

	mac := make([]byte, blockSize)
	c.block.Encrypt(mac, b0[:])

	if len(aad) > 0 {
		// AAD under 2^16-2^8 bytes is length-prefixed with two bytes.
		var first [blockSize]byte
		binary.BigEndian.PutUint16(first[:2], uint16(len(aad)))
		n := copy(first[2:], aad)
		xorEncrypt(c.block, mac, first[:])
		c.macBlocks(mac, aad[n:])
	}
	c.macBlocks(mac, plaintext)
	return mac
}

// macBlocks folds data into the running CBC-MAC, zero-padding the final
// block.
func (c *AESCCM) macBlocks(mac, data []byte) {
	for len(data) > 0 {
		var block [blockSize]byte
		n := copy(block[:], data)
		data = data[n:]
		xorEncrypt(c.block, mac, block[:])
	}
}

func xorEncrypt(block cipher.Block, mac, in []byte) {
	for i := 0; i < blockSize; i++ {
		mac[i] ^= in[i]
	}
	block.Encrypt(mac, mac)
}

// counterBlock builds A_i for the given counter value.
func (c *AESCCM) counterBlock(nonce []byte, counter uint16) []byte {
	var a [blockSize]byte
	a[0] = lenSize - 1
	copy(a[1:1+NonceSize], nonce)
	binary.BigEndian.PutUint16(a[blockSize-lenSize:], counter)

	s := make([]byte, blockSize)
	c.block.Encrypt(s, a[:])
	return s
}

// ctrXOR applies the CTR keystream starting at counter 1.
func (c *AESCCM) ctrXOR(nonce []byte, dst, src []byte) {
	counter := uint16(1)
	for i := 0; i < len(src); i += blockSize {
		ks := c.counterBlock(nonce, counter)
		counter++

		end := i + blockSize
		if end > len(src) {
			end = len(src)
		}
		for j := i; j < end; j++ {
			dst[j] = src[j] ^ ks[j-i]
		}
	}
}
