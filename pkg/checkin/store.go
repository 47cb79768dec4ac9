package checkin

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pion/logging"

	"github.com/backkem/matter-bridge/pkg/crypto"
)

// Storage persists registry state. Load returns (nil, nil) when no state
// has been saved yet.
type Storage interface {
	Load() (*State, error)
	Save(state *State) error
}

// FileStorage persists state as a CBOR file. Saves go through a
// temporary file and rename, so a crash mid-write leaves the previous
// state intact.
type FileStorage struct {
	path string
}

// NewFileStorage creates file-backed storage at path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Load implements Storage.
func (f *FileStorage) Load() (*State, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var state State
	if err := cbor.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return &state, nil
}

// Save implements Storage.
func (f *FileStorage) Save(state *State) error {
	data, err := cbor.Marshal(state)
	if err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

// MemoryStorage is an in-memory Storage for tests. It round-trips
// through CBOR so it exercises the same encoding as FileStorage.
type MemoryStorage struct {
	mu   sync.Mutex
	data []byte

	// FailNextSave, when set, makes the next Save return an error.
	FailNextSave error
}

// NewMemoryStorage creates empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Load implements Storage.
func (m *MemoryStorage) Load() (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return nil, nil
	}
	var state State
	if err := cbor.Unmarshal(m.data, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return &state, nil
}

// Save implements Storage.
func (m *MemoryStorage) Save(state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNextSave != nil {
		err := m.FailNextSave
		m.FailNextSave = nil
		return err
	}

	data, err := cbor.Marshal(state)
	if err != nil {
		return err
	}
	m.data = data
	return nil
}

// Registry is the durable client registry. Every mutation is persisted
// before it is acknowledged: the in-memory state only advances once the
// storage write succeeded, so a failed save leaves the registry exactly
// as it was.
type Registry struct {
	storage Storage
	log     logging.LeveledLogger

	mu    sync.RWMutex
	state *State
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// Storage persists the registry. Required.
	Storage Storage

	// LoggerFactory creates the registry's logger. If nil, logging is
	// disabled.
	LoggerFactory logging.LoggerFactory
}

// OpenRegistry loads persisted state, starting empty when none exists.
// Corrupt state is surfaced, not silently discarded.
func OpenRegistry(config RegistryConfig) (*Registry, error) {
	state, err := config.Storage.Load()
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &State{}
	}

	r := &Registry{storage: config.Storage, state: state}
	if config.LoggerFactory != nil {
		r.log = config.LoggerFactory.NewLogger("checkin")
	}
	if r.log != nil {
		r.log.Infof("registry loaded: %d clients, counter %d", len(state.Clients), state.Counter)
	}
	return r, nil
}

// Register adds a client, replacing any existing registration with the
// same (fabric, node) identity. A fabric at its client limit rejects new
// identities with ErrTooManyClients.
func (r *Registry) Register(client RegisteredClient) error {
	if len(client.SharedKey) != crypto.KeySize {
		return ErrInvalidKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.state.clone()
	if i := next.findClient(client.FabricIndex, client.CheckInNodeID); i >= 0 {
		next.Clients[i] = client
	} else {
		if next.fabricCount(client.FabricIndex) >= MaxClientsPerFabric {
			return ErrTooManyClients
		}
		next.Clients = append(next.Clients, client)
	}

	if err := r.storage.Save(next); err != nil {
		return err
	}
	r.state = next

	if r.log != nil {
		r.log.Infof("registered %s client node 0x%016X on fabric %d",
			client.Type, client.CheckInNodeID, client.FabricIndex)
	}
	return nil
}

// Unregister removes a client registration.
func (r *Registry) Unregister(fabricIndex uint8, nodeID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.state.clone()
	i := next.findClient(fabricIndex, nodeID)
	if i < 0 {
		return ErrClientNotFound
	}
	next.Clients = append(next.Clients[:i], next.Clients[i+1:]...)

	if err := r.storage.Save(next); err != nil {
		return err
	}
	r.state = next

	if r.log != nil {
		r.log.Infof("unregistered client node 0x%016X on fabric %d", nodeID, fabricIndex)
	}
	return nil
}

// RemoveFabric drops every registration belonging to a fabric. Used when
// the fabric itself is removed from the node.
func (r *Registry) RemoveFabric(fabricIndex uint8) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.state.clone()
	kept := next.Clients[:0]
	for _, c := range next.Clients {
		if c.FabricIndex != fabricIndex {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(next.Clients) {
		return nil
	}
	next.Clients = kept

	if err := r.storage.Save(next); err != nil {
		return err
	}
	r.state = next
	return nil
}

// SetStayActiveUntil records the end of a client's promised active
// window. A zero until clears the window.
func (r *Registry) SetStayActiveUntil(fabricIndex uint8, nodeID uint64, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.state.clone()
	i := next.findClient(fabricIndex, nodeID)
	if i < 0 {
		return ErrClientNotFound
	}
	if until.IsZero() {
		next.Clients[i].StayActiveUntil = 0
	} else {
		next.Clients[i].StayActiveUntil = until.UnixMilli()
	}

	if err := r.storage.Save(next); err != nil {
		return err
	}
	r.state = next
	return nil
}

// Client returns the registration for (fabricIndex, nodeID).
func (r *Registry) Client(fabricIndex uint8, nodeID uint64) (RegisteredClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.state.findClient(fabricIndex, nodeID)
	if i < 0 {
		return RegisteredClient{}, ErrClientNotFound
	}
	return r.state.Clients[i], nil
}

// Clients returns a snapshot of all registrations.
func (r *Registry) Clients() []RegisteredClient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.clone().Clients
}

// ClientsForFabric returns the registrations scoped to one fabric.
func (r *Registry) ClientsForFabric(fabricIndex uint8) []RegisteredClient {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []RegisteredClient
	for _, c := range r.state.clone().Clients {
		if c.FabricIndex == fabricIndex {
			out = append(out, c)
		}
	}
	return out
}

// Counter returns the current check-in counter.
func (r *Registry) Counter() uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Counter
}

// NextCounter advances and persists the check-in counter, returning the
// value to use for the next message. The persisted counter is always at
// or ahead of any counter that went on the wire.
func (r *Registry) NextCounter() (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.state.clone()
	next.Counter++

	if err := r.storage.Save(next); err != nil {
		return 0, err
	}
	r.state = next
	return next.Counter, nil
}
