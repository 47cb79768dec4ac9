// Package transport carries check-in datagrams to registered controllers.
// Delivery is best effort: a lost datagram is recovered by the next
// check-in interval, never by retransmission here.
package transport

// MaxDatagramSize bounds an outgoing datagram.
const MaxDatagramSize = 1280

// Sender delivers one datagram to a controller address. Implementations
// must be safe for concurrent use.
type Sender interface {
	Send(addr string, payload []byte) error
}

// PayloadHandler receives an incoming datagram and the sender's address.
type PayloadHandler func(payload []byte, addr string)
