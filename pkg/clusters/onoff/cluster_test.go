package onoff

import (
	"context"
	"errors"
	"testing"

	"github.com/backkem/matter-bridge/pkg/bridge"
)

func newTestCluster(writable func(bool) error) (*Cluster, *bridge.BoolState) {
	state := &bridge.BoolState{Writable: writable}
	c := New(Config{EndpointID: 1, Handler: state})
	return c, state
}

func invoke(t *testing.T, c *Cluster, cmd bridge.CommandID) bool {
	t.Helper()
	_, changed, err := c.InvokeCommand(context.Background(), bridge.InvokeRequest{
		Path: bridge.CommandPath{Endpoint: 1, Cluster: ClusterID, Command: cmd},
	})
	if err != nil {
		t.Fatalf("InvokeCommand(%#x) error = %v", cmd, err)
	}
	return changed
}

func readOnOff(t *testing.T, c *Cluster) bool {
	t.Helper()
	v, err := c.ReadAttribute(context.Background(), bridge.ReadRequest{
		Path: bridge.AttributePath{Endpoint: 1, Cluster: ClusterID, Attribute: AttrOnOff},
	})
	if err != nil {
		t.Fatalf("ReadAttribute(OnOff) error = %v", err)
	}
	return v.(bool)
}

func TestOnOffToggle(t *testing.T) {
	var published []bool
	c, _ := newTestCluster(func(on bool) error {
		published = append(published, on)
		return nil
	})

	if readOnOff(t, c) {
		t.Fatal("initial state should be off")
	}

	if !invoke(t, c, CmdOn) {
		t.Error("On from off should report changed")
	}
	if !readOnOff(t, c) {
		t.Error("state should be on after On")
	}

	if invoke(t, c, CmdOn) {
		t.Error("On while on should not report changed")
	}

	if !invoke(t, c, CmdToggle) {
		t.Error("Toggle should report changed")
	}
	if readOnOff(t, c) {
		t.Error("state should be off after Toggle")
	}

	if invoke(t, c, CmdOff) {
		t.Error("Off while off should not report changed")
	}

	want := []bool{true, false}
	if len(published) != len(want) {
		t.Fatalf("published %d commands, want %d", len(published), len(want))
	}
	for i, on := range want {
		if published[i] != on {
			t.Errorf("published[%d] = %v, want %v", i, published[i], on)
		}
	}
}

func TestOnOffCommandFailure(t *testing.T) {
	errDevice := errors.New("device unreachable")
	c, state := newTestCluster(func(bool) error { return errDevice })

	_, changed, err := c.InvokeCommand(context.Background(), bridge.InvokeRequest{
		Path: bridge.CommandPath{Endpoint: 1, Cluster: ClusterID, Command: CmdOn},
	})
	if !errors.Is(err, errDevice) {
		t.Fatalf("InvokeCommand error = %v, want %v", err, errDevice)
	}
	if changed {
		t.Error("failed command should not report changed")
	}
	if state.CurrentState() {
		t.Error("failed command should leave state untouched")
	}
}

func TestOnOffReadOnlyHandler(t *testing.T) {
	c, _ := newTestCluster(nil)

	_, _, err := c.InvokeCommand(context.Background(), bridge.InvokeRequest{
		Path: bridge.CommandPath{Endpoint: 1, Cluster: ClusterID, Command: CmdOn},
	})
	if !errors.Is(err, bridge.ErrUnsupportedWrite) {
		t.Fatalf("InvokeCommand error = %v, want ErrUnsupportedWrite", err)
	}
}

func TestOnOffRejections(t *testing.T) {
	c, _ := newTestCluster(nil)

	if err := c.WriteAttribute(context.Background(), bridge.WriteRequest{
		Path:  bridge.AttributePath{Endpoint: 1, Cluster: ClusterID, Attribute: AttrOnOff},
		Value: true,
	}); !errors.Is(err, bridge.ErrUnsupportedWrite) {
		t.Errorf("WriteAttribute error = %v, want ErrUnsupportedWrite", err)
	}

	if _, _, err := c.InvokeCommand(context.Background(), bridge.InvokeRequest{
		Path: bridge.CommandPath{Endpoint: 1, Cluster: ClusterID, Command: 0x40},
	}); !errors.Is(err, bridge.ErrUnsupportedCommand) {
		t.Errorf("InvokeCommand error = %v, want ErrUnsupportedCommand", err)
	}

	if _, err := c.ReadAttribute(context.Background(), bridge.ReadRequest{
		Path: bridge.AttributePath{Endpoint: 1, Cluster: ClusterID, Attribute: 0x4000},
	}); !errors.Is(err, bridge.ErrUnsupportedAttribute) {
		t.Errorf("ReadAttribute error = %v, want ErrUnsupportedAttribute", err)
	}
}

func TestOnOffAsyncNotifier(t *testing.T) {
	c, state := newTestCluster(nil)

	var fired int
	c.SetChangeNotifier(func() { fired++ })

	state.Set(true)
	if fired != 1 {
		t.Fatalf("notifier fired %d times, want 1", fired)
	}
	if !readOnOff(t, c) {
		t.Error("state should reflect async push")
	}
}
