package checkin

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pion/logging"

	"github.com/backkem/matter-bridge/pkg/transport"
)

// Engine defaults.
const (
	// DefaultCheckInInterval is the constant spacing between periodic
	// check-ins to a permanent client.
	DefaultCheckInInterval = 15 * time.Minute

	// DefaultActiveModeThreshold is how long the device stays in active
	// mode after a check-in, advertised in every message.
	DefaultActiveModeThreshold = 5 * time.Second

	// DefaultStayActiveMax caps the active window a StayActiveRequest
	// can be promised.
	DefaultStayActiveMax = 30 * time.Second
)

// EngineState is one client's position in the check-in cycle.
type EngineState uint8

const (
	// StateIdle: no check-in due; also the state while a stay-active
	// window suppresses periodic check-ins.
	StateIdle EngineState = iota

	// StateSending: a check-in message is being built and emitted.
	StateSending

	// StateBackedOff: the constant back-off interval until the next
	// check-in is running.
	StateBackedOff
)

// String returns a human-readable state name.
func (s EngineState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateBackedOff:
		return "backed-off"
	default:
		return "unknown"
	}
}

type clientKey struct {
	FabricIndex uint8
	NodeID      uint64
}

type clientRun struct {
	state EngineState
	stop  chan struct{}
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	// Registry holds the registered clients and the counter. Required.
	Registry *Registry

	// Sender delivers check-in datagrams. Required.
	Sender transport.Sender

	// CheckInInterval is the constant back-off between periodic
	// check-ins. Zero means DefaultCheckInInterval.
	CheckInInterval time.Duration

	// ActiveModeThreshold is advertised in every message. Zero means
	// DefaultActiveModeThreshold.
	ActiveModeThreshold time.Duration

	// StayActiveMax caps promised stay-active windows. Zero means
	// DefaultStayActiveMax.
	StayActiveMax time.Duration

	// LoggerFactory creates the engine's logger. If nil, logging is
	// disabled.
	LoggerFactory logging.LoggerFactory
}

// Engine emits check-in messages: an announcement to every registered
// client at startup, then one to each permanent client per interval.
// Send failures are logged and absorbed; the counter on the wire is
// always persisted before the datagram leaves.
type Engine struct {
	registry  *Registry
	sender    transport.Sender
	interval  time.Duration
	threshold time.Duration
	stayMax   time.Duration
	log       logging.LeveledLogger

	mu      sync.Mutex
	clients map[clientKey]*clientRun
	started bool
	stopped bool
	wg      sync.WaitGroup
}

// NewEngine creates an engine. Call Start to announce and begin the
// periodic cycle.
func NewEngine(config EngineConfig) *Engine {
	e := &Engine{
		registry:  config.Registry,
		sender:    config.Sender,
		interval:  config.CheckInInterval,
		threshold: config.ActiveModeThreshold,
		stayMax:   config.StayActiveMax,
		clients:   make(map[clientKey]*clientRun),
	}
	if e.interval <= 0 {
		e.interval = DefaultCheckInInterval
	}
	if e.threshold <= 0 {
		e.threshold = DefaultActiveModeThreshold
	}
	if e.stayMax <= 0 {
		e.stayMax = DefaultStayActiveMax
	}
	if config.LoggerFactory != nil {
		e.log = config.LoggerFactory.NewLogger("checkin")
	}
	return e
}

// ActiveModeThreshold returns the advertised threshold.
func (e *Engine) ActiveModeThreshold() time.Duration { return e.threshold }

// CheckInInterval returns the periodic check-in interval, which is also
// the longest a registered client waits for a check-in.
func (e *Engine) CheckInInterval() time.Duration { return e.interval }

// Start announces to every persisted client, then begins the periodic
// cycle for permanent clients. A restart therefore re-notifies every
// controller that survived in the registry.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = true
	e.mu.Unlock()

	for _, client := range e.registry.Clients() {
		e.sendCheckIn(client)
		if client.Type == ClientPermanent {
			e.startClient(client)
		}
	}
	return nil
}

// Stop halts all periodic cycles and waits for them to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	for _, run := range e.clients {
		close(run.stop)
	}
	e.clients = make(map[clientKey]*clientRun)
	e.mu.Unlock()

	e.wg.Wait()
}

// Register adds or replaces a client registration, sends an immediate
// check-in, and starts the periodic cycle for permanent clients.
func (e *Engine) Register(client RegisteredClient) error {
	if err := e.registry.Register(client); err != nil {
		return err
	}

	e.stopClient(clientKey{client.FabricIndex, client.CheckInNodeID})
	e.sendCheckIn(client)
	if client.Type == ClientPermanent {
		e.startClient(client)
	}
	return nil
}

// Unregister removes a registration and stops its periodic cycle.
func (e *Engine) Unregister(fabricIndex uint8, nodeID uint64) error {
	if err := e.registry.Unregister(fabricIndex, nodeID); err != nil {
		return err
	}
	e.stopClient(clientKey{fabricIndex, nodeID})
	return nil
}

// RemoveFabric drops a fabric's registrations and their cycles.
func (e *Engine) RemoveFabric(fabricIndex uint8) error {
	for _, client := range e.registry.ClientsForFabric(fabricIndex) {
		e.stopClient(clientKey{client.FabricIndex, client.CheckInNodeID})
	}
	return e.registry.RemoveFabric(fabricIndex)
}

// StayActive promises an active window: periodic check-ins to the client
// are suppressed until it expires. The promise is the requested duration
// clamped to the configured maximum, and is persisted on the client
// record before it is acknowledged, so the window survives a restart.
func (e *Engine) StayActive(fabricIndex uint8, nodeID uint64, requested time.Duration) (time.Duration, error) {
	promised := requested
	if promised > e.stayMax {
		promised = e.stayMax
	}

	until := time.Now().Add(promised)
	if err := e.registry.SetStayActiveUntil(fabricIndex, nodeID, until); err != nil {
		return 0, err
	}

	if e.log != nil {
		e.log.Debugf("stay-active %v promised to node 0x%016X on fabric %d", promised, nodeID, fabricIndex)
	}
	return promised, nil
}

// ClientState reports where a client sits in the check-in cycle.
func (e *Engine) ClientState(fabricIndex uint8, nodeID uint64) EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()

	if run, ok := e.clients[clientKey{fabricIndex, nodeID}]; ok {
		return run.state
	}
	return StateIdle
}

func (e *Engine) startClient(client RegisteredClient) {
	key := clientKey{client.FabricIndex, client.CheckInNodeID}
	run := &clientRun{state: StateBackedOff, stop: make(chan struct{})}

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	if old, ok := e.clients[key]; ok {
		close(old.stop)
	}
	e.clients[key] = run
	e.mu.Unlock()

	e.wg.Add(1)
	go e.runClient(key, run)
}

func (e *Engine) stopClient(key clientKey) {
	e.mu.Lock()
	if run, ok := e.clients[key]; ok {
		close(run.stop)
		delete(e.clients, key)
	}
	e.mu.Unlock()
}

// runClient is one permanent client's cycle: wait the constant back-off,
// send unless a stay-active window is open, repeat.
func (e *Engine) runClient(key clientKey, run *clientRun) {
	defer e.wg.Done()

	bo := backoff.NewConstantBackOff(e.interval)
	timer := time.NewTimer(bo.NextBackOff())
	defer timer.Stop()

	for {
		select {
		case <-run.stop:
			return
		case <-timer.C:
		}

		client, err := e.registry.Client(key.FabricIndex, key.NodeID)
		if err != nil {
			return
		}

		// The persisted record is the one source of truth for the
		// stay-active window, so a window promised before a restart
		// still suppresses check-ins after it.
		skip := time.Now().Before(time.UnixMilli(client.StayActiveUntil))
		e.mu.Lock()
		if skip {
			run.state = StateIdle
		} else {
			run.state = StateSending
		}
		e.mu.Unlock()

		if !skip {
			e.sendCheckIn(client)
			e.mu.Lock()
			run.state = StateBackedOff
			e.mu.Unlock()
		}

		timer.Reset(bo.NextBackOff())
	}
}

// sendCheckIn persists the next counter, builds the message, and sends
// it. Failures leave the counter consumed: a skipped counter value is
// harmless, a reused one is not.
func (e *Engine) sendCheckIn(client RegisteredClient) {
	counter, err := e.registry.NextCounter()
	if err != nil {
		if e.log != nil {
			e.log.Errorf("counter persist failed, check-in suppressed: %v", err)
		}
		return
	}

	threshold := uint16(e.threshold.Milliseconds())
	msg, err := BuildMessage(client, counter, threshold)
	if err != nil {
		if e.log != nil {
			e.log.Errorf("check-in build failed for node 0x%016X: %v", client.CheckInNodeID, err)
		}
		return
	}

	if err := e.sender.Send(client.ControllerAddr, msg); err != nil {
		if e.log != nil {
			e.log.Warnf("check-in send to %s failed: %v", client.ControllerAddr, err)
		}
		return
	}

	if e.log != nil {
		e.log.Debugf("check-in %d sent to node 0x%016X at %s", counter, client.CheckInNodeID, client.ControllerAddr)
	}
}
