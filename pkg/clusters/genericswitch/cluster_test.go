package genericswitch

import (
	"context"
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"github.com/backkem/matter-bridge/pkg/bridge"
	"github.com/backkem/matter-bridge/pkg/events"
)

func newTestCluster(t *testing.T) (*Cluster, *events.Queue) {
	t.Helper()
	q := events.NewQueue(events.QueueConfig{
		Resource:  bridge.ResourcePath{Endpoint: 1, Cluster: ClusterID},
		Sequencer: events.NewSequencer(),
	})
	return New(Config{EndpointID: 1, Events: q}), q
}

func readAttr(t *testing.T, c *Cluster, attr bridge.AttributeID) bridge.Value {
	t.Helper()
	v, err := c.ReadAttribute(context.Background(), bridge.ReadRequest{
		Path: bridge.AttributePath{Endpoint: 1, Cluster: ClusterID, Attribute: attr},
	})
	if err != nil {
		t.Fatalf("ReadAttribute(%#x) error = %v", attr, err)
	}
	return v
}

func TestClusterDefaults(t *testing.T) {
	c, _ := newTestCluster(t)

	if got := readAttr(t, c, AttrNumberOfPositions); got.(uint64) != 2 {
		t.Errorf("NumberOfPositions = %v, want 2", got)
	}
	if got := readAttr(t, c, AttrCurrentPosition); got.(uint64) != 0 {
		t.Errorf("CurrentPosition = %v, want 0", got)
	}
	if got := readAttr(t, c, AttrMultiPressMax); got.(uint64) != 2 {
		t.Errorf("MultiPressMax = %v, want 2", got)
	}

	wantFeatures := uint64(FeatureMomentarySwitch | FeatureMomentarySwitchRelease |
		FeatureMomentarySwitchLongPress | FeatureMomentarySwitchMultiPress)
	if got := readAttr(t, c, bridge.GlobalAttrFeatureMap); got.(uint64) != wantFeatures {
		t.Errorf("FeatureMap = %#x, want %#x", got, wantFeatures)
	}
}

func TestPressReleaseEmitsEvents(t *testing.T) {
	c, q := newTestCluster(t)

	var notified int
	c.SetChangeNotifier(func() { notified++ })

	c.Press(1)
	if got := readAttr(t, c, AttrCurrentPosition); got.(uint64) != 1 {
		t.Errorf("CurrentPosition after press = %v, want 1", got)
	}

	c.Release(1)
	if got := readAttr(t, c, AttrCurrentPosition); got.(uint64) != 0 {
		t.Errorf("CurrentPosition after release = %v, want 0", got)
	}

	if notified != 2 {
		t.Errorf("notifier fired %d times, want 2", notified)
	}

	recs := q.Drain()
	if len(recs) != 2 {
		t.Fatalf("drained %d events, want 2", len(recs))
	}
	if recs[0].Path.Event != EventInitialPress {
		t.Errorf("first event = %#x, want InitialPress", recs[0].Path.Event)
	}
	if recs[1].Path.Event != EventShortRelease {
		t.Errorf("second event = %#x, want ShortRelease", recs[1].Path.Event)
	}

	var press PositionPayload
	if err := cbor.Unmarshal(recs[0].Payload, &press); err != nil {
		t.Fatalf("decode InitialPress payload: %v", err)
	}
	if press.Position != 1 {
		t.Errorf("InitialPress position = %d, want 1", press.Position)
	}

	var release ReleasePayload
	if err := cbor.Unmarshal(recs[1].Payload, &release); err != nil {
		t.Fatalf("decode ShortRelease payload: %v", err)
	}
	if release.PreviousPosition != 1 {
		t.Errorf("ShortRelease previous position = %d, want 1", release.PreviousPosition)
	}
}

func TestHoldSequence(t *testing.T) {
	c, q := newTestCluster(t)

	c.Press(1)
	c.LongPress(1)
	c.LongRelease(1)

	recs := q.Drain()
	want := []bridge.EventID{EventInitialPress, EventLongPress, EventLongRelease}
	if len(recs) != len(want) {
		t.Fatalf("drained %d events, want %d", len(recs), len(want))
	}
	for i, id := range want {
		if recs[i].Path.Event != id {
			t.Errorf("event[%d] = %#x, want %#x", i, recs[i].Path.Event, id)
		}
	}
}

func TestMultiPressClampsToMax(t *testing.T) {
	c, q := newTestCluster(t)

	c.MultiPress(1, 5)

	recs := q.Drain()
	if len(recs) != 1 {
		t.Fatalf("drained %d events, want 1", len(recs))
	}
	var payload MultiPressCompletePayload
	if err := cbor.Unmarshal(recs[0].Payload, &payload); err != nil {
		t.Fatalf("decode MultiPressComplete payload: %v", err)
	}
	if payload.TotalPresses != 2 {
		t.Errorf("TotalPresses = %d, want clamp to 2", payload.TotalPresses)
	}
	if payload.PreviousPosition != 1 {
		t.Errorf("PreviousPosition = %d, want 1", payload.PreviousPosition)
	}
}

func TestClusterRejectsWritesAndCommands(t *testing.T) {
	c, _ := newTestCluster(t)

	err := c.WriteAttribute(context.Background(), bridge.WriteRequest{
		Path:  bridge.AttributePath{Endpoint: 1, Cluster: ClusterID, Attribute: AttrCurrentPosition},
		Value: uint64(1),
	})
	if !errors.Is(err, bridge.ErrUnsupportedWrite) {
		t.Errorf("WriteAttribute() error = %v, want %v", err, bridge.ErrUnsupportedWrite)
	}

	_, _, err = c.InvokeCommand(context.Background(), bridge.InvokeRequest{
		Path: bridge.CommandPath{Endpoint: 1, Cluster: ClusterID, Command: 0x00},
	})
	if !errors.Is(err, bridge.ErrUnsupportedCommand) {
		t.Errorf("InvokeCommand() error = %v, want %v", err, bridge.ErrUnsupportedCommand)
	}
}
