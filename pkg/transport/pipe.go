package transport

import (
	"math/rand"
	"sync"
	"time"

	"github.com/pion/transport/v3/test"
)

// Pipe is an in-memory Sender for tests: datagrams written on the send
// side arrive on the Received channel without real network I/O. A
// configurable drop rate simulates the lossy networks check-in delivery
// has to tolerate.
type Pipe struct {
	bridge   *test.Bridge
	received chan []byte
	stopCh   chan struct{}
	wg       sync.WaitGroup

	mu       sync.RWMutex
	dropRate float64
	rng      *rand.Rand
	closed   bool
}

// NewPipe creates a pipe with delivery running in the background.
func NewPipe() *Pipe {
	p := &Pipe{
		bridge:   test.NewBridge(),
		received: make(chan []byte, 64),
		stopCh:   make(chan struct{}),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	p.wg.Add(2)
	go p.tickLoop()
	go p.readLoop()
	return p
}

// SetDropRate sets the probability (0.0 to 1.0) that a sent datagram is
// silently discarded.
func (p *Pipe) SetDropRate(rate float64) {
	p.mu.Lock()
	p.dropRate = rate
	p.mu.Unlock()
}

// Send implements Sender. The addr is ignored: a pipe has one peer.
func (p *Pipe) Send(_ string, payload []byte) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	drop := p.dropRate > 0 && p.rng.Float64() < p.dropRate
	p.mu.Unlock()

	if len(payload) > MaxDatagramSize {
		return ErrMessageTooLarge
	}
	if drop {
		return nil
	}

	_, err := p.bridge.GetConn0().Write(payload)
	return err
}

// Received returns the channel of datagrams that arrived at the peer.
func (p *Pipe) Received() <-chan []byte {
	return p.received
}

// Close shuts the pipe down and stops the delivery goroutines.
func (p *Pipe) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	close(p.stopCh)
	p.bridge.GetConn0().Close()
	p.bridge.GetConn1().Close()
	p.wg.Wait()
	return nil
}

func (p *Pipe) tickLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.bridge.Tick()
		}
	}
}

func (p *Pipe) readLoop() {
	defer p.wg.Done()

	buf := make([]byte, MaxDatagramSize)
	for {
		n, err := p.bridge.GetConn1().Read(buf)
		if err != nil {
			return
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])

		select {
		case p.received <- payload:
		case <-p.stopCh:
			return
		}
	}
}

var _ Sender = (*Pipe)(nil)
