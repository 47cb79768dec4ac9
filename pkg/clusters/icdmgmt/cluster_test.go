package icdmgmt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/backkem/matter-bridge/pkg/bridge"
	"github.com/backkem/matter-bridge/pkg/checkin"
)

type nullSender struct {
	mu   sync.Mutex
	sent int
}

func (s *nullSender) Send(_ string, _ []byte) error {
	s.mu.Lock()
	s.sent++
	s.mu.Unlock()
	return nil
}

func (s *nullSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

func newTestCluster(t *testing.T) (*Cluster, *checkin.Registry, *nullSender) {
	t.Helper()

	registry, err := checkin.OpenRegistry(checkin.RegistryConfig{Storage: checkin.NewMemoryStorage()})
	if err != nil {
		t.Fatalf("OpenRegistry() error = %v", err)
	}
	sender := &nullSender{}
	engine := checkin.NewEngine(checkin.EngineConfig{
		Registry:        registry,
		Sender:          sender,
		CheckInInterval: time.Hour,
	})
	t.Cleanup(engine.Stop)
	if err := engine.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	c := New(Config{EndpointID: 0, Engine: engine, Registry: registry})
	return c, registry, sender
}

func invoke(t *testing.T, c *Cluster, cmd bridge.CommandID, subject bridge.Subject, fields interface{}) ([]byte, bool, error) {
	t.Helper()
	args, err := cbor.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	return c.InvokeCommand(context.Background(), bridge.InvokeRequest{
		Path:    bridge.CommandPath{Endpoint: 0, Cluster: ClusterID, Command: cmd},
		Subject: subject,
		Args:    args,
	})
}

func registerFields(node uint64) RegisterClientFields {
	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(node) + byte(i)
	}
	return RegisterClientFields{
		CheckInNodeID:    node,
		MonitoredSubject: node,
		Key:              key,
		ClientType:       uint8(checkin.ClientPermanent),
	}
}

func TestRegisterClient(t *testing.T) {
	c, registry, sender := newTestCluster(t)
	subject := bridge.Subject{FabricIndex: 1, NodeID: 0x100, Addr: "10.0.0.9:5541"}

	resp, changed, err := invoke(t, c, CmdRegisterClient, subject, registerFields(0x100))
	if err != nil {
		t.Fatalf("RegisterClient error = %v", err)
	}
	if !changed {
		t.Error("RegisterClient reported no state change")
	}

	var fields RegisterClientResponseFields
	if err := cbor.Unmarshal(resp, &fields); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if fields.ICDCounter != registry.Counter() {
		t.Errorf("response counter = %d, registry counter = %d", fields.ICDCounter, registry.Counter())
	}

	// Registration stored the peer's address and derived a verification
	// key, and an immediate check-in went out.
	client, err := registry.Client(1, 0x100)
	if err != nil {
		t.Fatalf("Client() error = %v", err)
	}
	if client.ControllerAddr != "10.0.0.9:5541" {
		t.Errorf("ControllerAddr = %q", client.ControllerAddr)
	}
	if len(client.VerificationKey) != 16 {
		t.Errorf("verification key length = %d, want 16", len(client.VerificationKey))
	}
	if sender.count() != 1 {
		t.Errorf("check-ins sent = %d, want 1", sender.count())
	}
}

func TestRegisterClientLimit(t *testing.T) {
	c, _, _ := newTestCluster(t)
	subject := bridge.Subject{FabricIndex: 1, Addr: "10.0.0.9:5541"}

	for i := 0; i < checkin.MaxClientsPerFabric; i++ {
		if _, _, err := invoke(t, c, CmdRegisterClient, subject, registerFields(uint64(0x100+i))); err != nil {
			t.Fatalf("RegisterClient #%d error = %v", i, err)
		}
	}

	_, _, err := invoke(t, c, CmdRegisterClient, subject, registerFields(0x999))
	if !errors.Is(err, bridge.ErrResourceExhausted) {
		t.Errorf("over-limit error = %v, want %v", err, bridge.ErrResourceExhausted)
	}
}

func TestUnregisterClient(t *testing.T) {
	c, registry, _ := newTestCluster(t)
	subject := bridge.Subject{FabricIndex: 1, NodeID: 0x100, Addr: "10.0.0.9:5541"}

	if _, _, err := invoke(t, c, CmdRegisterClient, subject, registerFields(0x100)); err != nil {
		t.Fatalf("RegisterClient error = %v", err)
	}

	t.Run("WrongVerificationKey", func(t *testing.T) {
		_, _, err := invoke(t, c, CmdUnregisterClient, subject, UnregisterClientFields{
			CheckInNodeID:   0x100,
			VerificationKey: make([]byte, 16),
		})
		if !errors.Is(err, bridge.ErrInvalidArgument) {
			t.Errorf("error = %v, want %v", err, bridge.ErrInvalidArgument)
		}
	})

	t.Run("CorrectVerificationKey", func(t *testing.T) {
		client, _ := registry.Client(1, 0x100)
		_, changed, err := invoke(t, c, CmdUnregisterClient, subject, UnregisterClientFields{
			CheckInNodeID:   0x100,
			VerificationKey: client.VerificationKey,
		})
		if err != nil {
			t.Fatalf("UnregisterClient error = %v", err)
		}
		if !changed {
			t.Error("UnregisterClient reported no state change")
		}
	})

	t.Run("AlreadyGone", func(t *testing.T) {
		_, _, err := invoke(t, c, CmdUnregisterClient, subject, UnregisterClientFields{CheckInNodeID: 0x100})
		if !errors.Is(err, bridge.ErrNotFound) {
			t.Errorf("error = %v, want %v", err, bridge.ErrNotFound)
		}
	})
}

func TestStayActiveRequest(t *testing.T) {
	c, _, _ := newTestCluster(t)
	subject := bridge.Subject{FabricIndex: 1, NodeID: 0x100, Addr: "10.0.0.9:5541"}

	if _, _, err := invoke(t, c, CmdRegisterClient, subject, registerFields(0x100)); err != nil {
		t.Fatalf("RegisterClient error = %v", err)
	}

	resp, changed, err := invoke(t, c, CmdStayActiveRequest, subject, StayActiveRequestFields{
		StayActiveDurationMs: 120_000,
	})
	if err != nil {
		t.Fatalf("StayActiveRequest error = %v", err)
	}
	if changed {
		t.Error("StayActiveRequest reported a state change")
	}

	var fields StayActiveResponseFields
	if err := cbor.Unmarshal(resp, &fields); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	want := uint32(checkin.DefaultStayActiveMax.Milliseconds())
	if fields.PromisedActiveDurationMs != want {
		t.Errorf("promised = %d ms, want clamp to %d", fields.PromisedActiveDurationMs, want)
	}
}

func TestRegisteredClientsIsFabricScoped(t *testing.T) {
	c, _, _ := newTestCluster(t)

	invoke(t, c, CmdRegisterClient, bridge.Subject{FabricIndex: 1, Addr: "a:1"}, registerFields(0x100))
	invoke(t, c, CmdRegisterClient, bridge.Subject{FabricIndex: 2, Addr: "b:1"}, registerFields(0x200))

	v, err := c.ReadAttribute(context.Background(), bridge.ReadRequest{
		Path:    bridge.AttributePath{Endpoint: 0, Cluster: ClusterID, Attribute: AttrRegisteredClients},
		Subject: bridge.Subject{FabricIndex: 1},
	})
	if err != nil {
		t.Fatalf("ReadAttribute() error = %v", err)
	}

	list := v.([]ClientInfo)
	if len(list) != 1 {
		t.Fatalf("fabric 1 sees %d clients, want 1", len(list))
	}
	if list[0].CheckInNodeID != 0x100 {
		t.Errorf("CheckInNodeID = %#x, want 0x100", list[0].CheckInNodeID)
	}
}

func TestMalformedCommandArgs(t *testing.T) {
	c, _, _ := newTestCluster(t)

	_, _, err := c.InvokeCommand(context.Background(), bridge.InvokeRequest{
		Path: bridge.CommandPath{Endpoint: 0, Cluster: ClusterID, Command: CmdRegisterClient},
		Args: []byte{0xFF, 0x00},
	})
	if !errors.Is(err, bridge.ErrInvalidArgument) {
		t.Errorf("error = %v, want %v", err, bridge.ErrInvalidArgument)
	}
}
