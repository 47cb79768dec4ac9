package booleanstate

import (
	"context"
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"github.com/backkem/matter-bridge/pkg/bridge"
	"github.com/backkem/matter-bridge/pkg/events"
)

func TestReadStateValue(t *testing.T) {
	handler := &bridge.BoolState{}
	c := New(Config{EndpointID: 1, Handler: handler})

	read := func() bool {
		v, err := c.ReadAttribute(context.Background(), bridge.ReadRequest{
			Path: bridge.AttributePath{Endpoint: 1, Cluster: ClusterID, Attribute: AttrStateValue},
		})
		if err != nil {
			t.Fatalf("ReadAttribute() error = %v", err)
		}
		return v.(bool)
	}

	if read() {
		t.Error("initial state = true, want false")
	}
	handler.Set(true)
	if !read() {
		t.Error("state after Set(true) = false")
	}
}

func TestChangeQueuesStateChangeEvent(t *testing.T) {
	handler := &bridge.BoolState{}
	q := events.NewQueue(events.QueueConfig{
		Resource:  bridge.ResourcePath{Endpoint: 1, Cluster: ClusterID},
		Sequencer: events.NewSequencer(),
	})
	c := New(Config{EndpointID: 1, Handler: handler, Events: q})

	var notified int
	c.SetChangeNotifier(func() { notified++ })

	handler.Set(true)
	handler.Set(true) // no change, no event
	handler.Set(false)

	if notified != 2 {
		t.Errorf("notifier fired %d times, want 2", notified)
	}

	recs := q.Drain()
	if len(recs) != 2 {
		t.Fatalf("drained %d events, want 2", len(recs))
	}
	for i, wantState := range []bool{true, false} {
		if recs[i].Path.Event != EventStateChange {
			t.Errorf("event[%d] ID = %#x, want StateChange", i, recs[i].Path.Event)
		}
		var payload StateChangePayload
		if err := cbor.Unmarshal(recs[i].Payload, &payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload.StateValue != wantState {
			t.Errorf("event[%d] StateValue = %v, want %v", i, payload.StateValue, wantState)
		}
	}
}

func TestReadOnlyCluster(t *testing.T) {
	c := New(Config{EndpointID: 1, Handler: &bridge.BoolState{}})

	err := c.WriteAttribute(context.Background(), bridge.WriteRequest{
		Path:  bridge.AttributePath{Endpoint: 1, Cluster: ClusterID, Attribute: AttrStateValue},
		Value: true,
	})
	if !errors.Is(err, bridge.ErrUnsupportedWrite) {
		t.Errorf("WriteAttribute() error = %v, want %v", err, bridge.ErrUnsupportedWrite)
	}

	_, err = c.ReadAttribute(context.Background(), bridge.ReadRequest{
		Path: bridge.AttributePath{Endpoint: 1, Cluster: ClusterID, Attribute: 0x42},
	})
	if !errors.Is(err, bridge.ErrUnsupportedAttribute) {
		t.Errorf("unknown attribute error = %v, want %v", err, bridge.ErrUnsupportedAttribute)
	}
}
