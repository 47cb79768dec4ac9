package checkin

import (
	"encoding/binary"

	"github.com/backkem/matter-bridge/pkg/crypto"
)

// Check-in message layout. The plaintext payload is the check-in counter
// followed by the active mode threshold, both little-endian. The payload
// is sealed with AES-128-CCM under the client's shared key, an empty
// AAD, and a truncated 8-byte MIC.
const (
	payloadSize = 6

	// MessageSize is the full on-wire size: payload plus MIC.
	MessageSize = payloadSize + crypto.MICSizeShort
)

// BuildNonce assembles the 13-byte CCM nonce: the fabric index, the
// monitored subject (little-endian), and the counter (little-endian).
func BuildNonce(fabricIndex uint8, monitoredSubject uint64, counter uint32) []byte {
	nonce := make([]byte, crypto.NonceSize)
	nonce[0] = fabricIndex
	binary.LittleEndian.PutUint64(nonce[1:9], monitoredSubject)
	binary.LittleEndian.PutUint32(nonce[9:13], counter)
	return nonce
}

// BuildMessage seals one check-in message for a client.
func BuildMessage(client RegisteredClient, counter uint32, activeModeThreshold uint16) ([]byte, error) {
	ccm, err := crypto.NewAESCCM(client.SharedKey, crypto.MICSizeShort)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, payloadSize)
	binary.LittleEndian.PutUint32(payload[0:4], counter)
	binary.LittleEndian.PutUint16(payload[4:6], activeModeThreshold)

	nonce := BuildNonce(client.FabricIndex, client.MonitoredSubject, counter)
	return ccm.Seal(nonce, payload, nil)
}

// OpenMessage verifies and decodes a check-in message the way a
// receiving controller would, given the counter it expects. It returns
// the active mode threshold. The embedded counter must match the one
// authenticated in the nonce.
func OpenMessage(client RegisteredClient, counter uint32, message []byte) (uint16, error) {
	if len(message) != MessageSize {
		return 0, ErrMalformedMessage
	}

	ccm, err := crypto.NewAESCCM(client.SharedKey, crypto.MICSizeShort)
	if err != nil {
		return 0, err
	}

	nonce := BuildNonce(client.FabricIndex, client.MonitoredSubject, counter)
	payload, err := ccm.Open(nonce, message, nil)
	if err != nil {
		return 0, err
	}
	if len(payload) != payloadSize {
		return 0, ErrMalformedMessage
	}

	if binary.LittleEndian.Uint32(payload[0:4]) != counter {
		return 0, ErrMalformedMessage
	}
	return binary.LittleEndian.Uint16(payload[4:6]), nil
}
