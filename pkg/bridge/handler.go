package bridge

import "sync"

// Handler is the contract every boolean data source implements to expose
// its state to the bridge, independent of the source's nature (message
// bus, simulation, hardware).
//
// The bridge calls SetChangeNotifier exactly once per resource at
// composition time. When the data source's own state changes
// asynchronously, it invokes the registered callback; that callback is the
// sole path into the dispatcher's version-bump/notify sequence.
type Handler interface {
	// CurrentState returns the source's current boolean state.
	CurrentState() bool

	// OnCommand applies a command issued by a remote controller.
	// Read-only sources return ErrUnsupportedWrite.
	OnCommand(value bool) error

	// SetChangeNotifier registers the callback invoked on asynchronous
	// state changes. Called once at composition time.
	SetChangeNotifier(notify func())
}

// MeasurementHandler is the contract for numeric measurement sources
// (temperature, humidity). Values are in the cluster's native unit
// (e.g., hundredths of a degree for TemperatureMeasurement).
type MeasurementHandler interface {
	// CurrentValue returns the current measured value.
	CurrentValue() int16

	// SetChangeNotifier registers the change callback. Called once at
	// composition time.
	SetChangeNotifier(notify func())
}

// BoolState is a ready-made Handler for sources that hold a single boolean
// and push changes. Data-source packages embed or wrap it instead of
// re-implementing the notifier plumbing.
type BoolState struct {
	mu     sync.RWMutex
	state  bool
	notify func()

	// Writable, if set, is called from OnCommand to forward controller
	// commands back to the source (e.g., publish to the bus). Nil means
	// the source is read-only.
	Writable func(value bool) error
}

// CurrentState implements Handler.
func (b *BoolState) CurrentState() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// OnCommand implements Handler. The state changes without firing the
// change notifier: command-driven mutations advance the version on the
// dispatch path, the notifier is reserved for asynchronous source pushes.
func (b *BoolState) OnCommand(value bool) error {
	b.mu.RLock()
	writable := b.Writable
	b.mu.RUnlock()

	if writable == nil {
		return ErrUnsupportedWrite
	}
	if err := writable(value); err != nil {
		return err
	}

	b.mu.Lock()
	b.state = value
	b.mu.Unlock()
	return nil
}

// SetChangeNotifier implements Handler.
func (b *BoolState) SetChangeNotifier(notify func()) {
	b.mu.Lock()
	b.notify = notify
	b.mu.Unlock()
}

// Set updates the state and fires the change notifier if the value
// actually changed. Safe for concurrent use.
func (b *BoolState) Set(value bool) {
	b.mu.Lock()
	changed := b.state != value
	b.state = value
	notify := b.notify
	b.mu.Unlock()

	if changed && notify != nil {
		notify()
	}
}

// Toggle flips the state and returns the new value.
func (b *BoolState) Toggle() bool {
	b.mu.Lock()
	b.state = !b.state
	value := b.state
	notify := b.notify
	b.mu.Unlock()

	if notify != nil {
		notify()
	}
	return value
}

// MeasuredState is the MeasurementHandler analog of BoolState.
type MeasuredState struct {
	mu     sync.RWMutex
	value  int16
	notify func()
}

// CurrentValue implements MeasurementHandler.
func (m *MeasuredState) CurrentValue() int16 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value
}

// SetChangeNotifier implements MeasurementHandler.
func (m *MeasuredState) SetChangeNotifier(notify func()) {
	m.mu.Lock()
	m.notify = notify
	m.mu.Unlock()
}

// Set updates the measurement and fires the change notifier on change.
func (m *MeasuredState) Set(value int16) {
	m.mu.Lock()
	changed := m.value != value
	m.value = value
	notify := m.notify
	m.mu.Unlock()

	if changed && notify != nil {
		notify()
	}
}

// Verify the helpers satisfy their contracts.
var (
	_ Handler            = (*BoolState)(nil)
	_ MeasurementHandler = (*MeasuredState)(nil)
)
