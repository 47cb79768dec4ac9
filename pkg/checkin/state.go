// Package checkin implements the intermittently-connected-device
// check-in protocol: a persistent registry of controllers to notify, an
// authenticated 14-byte wire message, and the engine that emits
// check-ins on a constant interval.
package checkin

import "github.com/backkem/matter-bridge/pkg/crypto"

// MaxClientsPerFabric bounds registrations per fabric.
const MaxClientsPerFabric = 4

// ClientType distinguishes long-lived from provisional registrations.
type ClientType uint8

const (
	// ClientPermanent clients receive periodic check-ins until they
	// unregister.
	ClientPermanent ClientType = iota

	// ClientEphemeral clients are announced at startup but receive no
	// periodic check-ins.
	ClientEphemeral
)

// String returns a human-readable client type name.
func (t ClientType) String() string {
	switch t {
	case ClientPermanent:
		return "permanent"
	case ClientEphemeral:
		return "ephemeral"
	default:
		return "unknown"
	}
}

// RegisteredClient is one controller registered to receive check-ins.
// A client is identified by (FabricIndex, CheckInNodeID); registering
// the same identity again replaces the previous entry.
type RegisteredClient struct {
	FabricIndex      uint8      `cbor:"1,keyasint"`
	CheckInNodeID    uint64     `cbor:"2,keyasint"`
	MonitoredSubject uint64     `cbor:"3,keyasint"`
	SharedKey        []byte     `cbor:"4,keyasint"`
	VerificationKey  []byte     `cbor:"5,keyasint"`
	Type             ClientType `cbor:"6,keyasint"`
	ControllerAddr   string     `cbor:"7,keyasint"`

	// StayActiveUntil is the end of a promised active window in Unix
	// milliseconds, zero when none is open. Persisted so the window
	// keeps suppressing periodic check-ins across a restart.
	StayActiveUntil int64 `cbor:"8,keyasint,omitempty"`
}

// State is the persisted registry state: the check-in counter and the
// registered clients. The counter is advanced and persisted before a
// message is emitted, so a crash can skip counter values but never
// reuse one.
type State struct {
	Counter uint32             `cbor:"1,keyasint"`
	Clients []RegisteredClient `cbor:"2,keyasint"`
}

// clone deep-copies the state so a mutation can be persisted before it
// becomes visible.
func (s *State) clone() *State {
	out := &State{Counter: s.Counter}
	out.Clients = make([]RegisteredClient, len(s.Clients))
	for i, c := range s.Clients {
		c.SharedKey = append([]byte(nil), c.SharedKey...)
		c.VerificationKey = append([]byte(nil), c.VerificationKey...)
		out.Clients[i] = c
	}
	return out
}

// findClient returns the index of the client with the given identity,
// or -1.
func (s *State) findClient(fabricIndex uint8, nodeID uint64) int {
	for i, c := range s.Clients {
		if c.FabricIndex == fabricIndex && c.CheckInNodeID == nodeID {
			return i
		}
	}
	return -1
}

// fabricCount returns the number of clients registered for a fabric.
func (s *State) fabricCount(fabricIndex uint8) int {
	n := 0
	for _, c := range s.Clients {
		if c.FabricIndex == fabricIndex {
			n++
		}
	}
	return n
}

// DeriveVerificationKey derives the key-verification material for a
// registration from its shared key.
func DeriveVerificationKey(sharedKey []byte) ([]byte, error) {
	if len(sharedKey) != crypto.KeySize {
		return nil, ErrInvalidKey
	}
	return crypto.HKDFSHA256(sharedKey, nil, []byte("CheckInVerificationKey"), crypto.KeySize)
}
