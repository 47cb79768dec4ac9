package transport

import (
	"net"
	"sync"
	"time"

	"github.com/pion/logging"
)

// UDP is a datagram transport over a net.PacketConn. Outgoing datagrams
// go to string addresses ("host:port"); an optional read loop delivers
// incoming datagrams to the configured handler.
type UDP struct {
	conn    net.PacketConn
	handler PayloadHandler
	closeCh chan struct{}
	wg      sync.WaitGroup
	log     logging.LeveledLogger

	mu      sync.RWMutex
	started bool
	closed  bool
}

// UDPConfig configures the UDP transport.
type UDPConfig struct {
	// Conn is an optional pre-existing PacketConn. If nil, a new
	// connection is created on ListenAddr.
	Conn net.PacketConn

	// ListenAddr is the local address to bind (e.g., ":5540"). Ignored
	// if Conn is provided; empty means an ephemeral port.
	ListenAddr string

	// Handler, if set, receives incoming datagrams once Start is called.
	Handler PayloadHandler

	// LoggerFactory creates the transport's logger. If nil, logging is
	// disabled.
	LoggerFactory logging.LoggerFactory
}

// NewUDP creates a UDP transport.
func NewUDP(config UDPConfig) (*UDP, error) {
	u := &UDP{
		conn:    config.Conn,
		handler: config.Handler,
		closeCh: make(chan struct{}),
	}

	if config.LoggerFactory != nil {
		u.log = config.LoggerFactory.NewLogger("transport-udp")
	}

	if u.conn == nil {
		addr := config.ListenAddr
		if addr == "" {
			addr = ":0"
		}
		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			return nil, err
		}
		u.conn = conn
	}

	return u, nil
}

// Start begins the read loop. Without a handler, Start is a no-op: the
// transport is send-only.
func (u *UDP) Start() error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return ErrClosed
	}
	if u.started {
		u.mu.Unlock()
		return ErrAlreadyStarted
	}
	u.started = true
	u.mu.Unlock()

	if u.handler == nil {
		return nil
	}

	if u.log != nil {
		u.log.Infof("starting UDP transport on %s", u.conn.LocalAddr())
	}

	u.wg.Add(1)
	go u.readLoop()
	return nil
}

// Stop closes the transport and waits for the read loop to exit.
func (u *UDP) Stop() error {
	u.mu.Lock()
	if u.closed {
		u.mu.Unlock()
		return ErrClosed
	}
	u.closed = true
	u.mu.Unlock()

	close(u.closeCh)
	u.conn.SetReadDeadline(time.Now())
	u.conn.Close()
	u.wg.Wait()
	return nil
}

// Send implements Sender: one datagram to addr, best effort.
func (u *UDP) Send(addr string, payload []byte) error {
	u.mu.RLock()
	if u.closed {
		u.mu.RUnlock()
		return ErrClosed
	}
	u.mu.RUnlock()

	if len(payload) > MaxDatagramSize {
		return ErrMessageTooLarge
	}

	dst, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return ErrInvalidAddress
	}

	if u.log != nil {
		u.log.Debugf("sending %d bytes to %v", len(payload), dst)
	}

	if _, err := u.conn.WriteTo(payload, dst); err != nil {
		if u.log != nil {
			u.log.Warnf("send failed: %v", err)
		}
		return err
	}
	return nil
}

// LocalAddr returns the bound local address.
func (u *UDP) LocalAddr() net.Addr {
	return u.conn.LocalAddr()
}

func (u *UDP) readLoop() {
	defer u.wg.Done()

	buf := make([]byte, MaxDatagramSize)
	for {
		select {
		case <-u.closeCh:
			return
		default:
		}

		n, addr, err := u.conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-u.closeCh:
				return
			default:
				if u.log != nil {
					u.log.Warnf("UDP read error: %v", err)
				}
				continue
			}
		}
		if n == 0 {
			continue
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])
		u.handler(payload, addr.String())
	}
}

var _ Sender = (*UDP)(nil)
