// Package booleanstate implements the Boolean State cluster (0x0045).
//
// The cluster exposes a single read-only boolean backed by a Capability
// Handler (e.g., a contact sensor) and emits a StateChange event whenever
// the backing state flips.
package booleanstate

import (
	"context"

	"github.com/fxamacker/cbor/v2"

	"github.com/backkem/matter-bridge/pkg/bridge"
	"github.com/backkem/matter-bridge/pkg/events"
)

// Cluster constants.
const (
	ClusterID       bridge.ClusterID = 0x0045
	ClusterRevision uint16           = 1
)

// Attribute IDs.
const (
	AttrStateValue bridge.AttributeID = 0x0000
)

// Event IDs.
const (
	EventStateChange bridge.EventID = 0x00
)

// StateChangePayload is the CBOR-encoded StateChange event payload.
type StateChangePayload struct {
	StateValue bool `cbor:"0,keyasint"`
}

// Config provides dependencies for the Boolean State cluster.
type Config struct {
	// EndpointID is the endpoint this cluster belongs to.
	EndpointID bridge.EndpointID

	// Handler is the data source backing StateValue. Required.
	Handler bridge.Handler

	// Events receives StateChange records (optional).
	Events *events.Queue
}

// Cluster implements the Boolean State cluster (0x0045).
type Cluster struct {
	*bridge.ClusterBase
	handler bridge.Handler
	events  *events.Queue
}

// New creates a Boolean State cluster over the given handler.
func New(cfg Config) *Cluster {
	return &Cluster{
		ClusterBase: bridge.NewClusterBase(ClusterID, cfg.EndpointID, ClusterRevision),
		handler:     cfg.Handler,
		events:      cfg.Events,
	}
}

// AttributeList implements bridge.Cluster.
func (c *Cluster) AttributeList() []bridge.AttributeID {
	return bridge.MergeAttributeLists([]bridge.AttributeID{AttrStateValue})
}

// AcceptedCommandList implements bridge.Cluster.
func (c *Cluster) AcceptedCommandList() []bridge.CommandID {
	return nil
}

// ReadAttribute implements bridge.Cluster.
func (c *Cluster) ReadAttribute(_ context.Context, req bridge.ReadRequest) (bridge.Value, error) {
	if v, ok := c.ReadGlobalAttribute(req.Path.Attribute, c.AttributeList(), c.AcceptedCommandList()); ok {
		return v, nil
	}

	switch req.Path.Attribute {
	case AttrStateValue:
		return c.handler.CurrentState(), nil
	default:
		return nil, bridge.ErrUnsupportedAttribute
	}
}

// WriteAttribute implements bridge.Cluster. StateValue is read-only.
func (c *Cluster) WriteAttribute(_ context.Context, _ bridge.WriteRequest) error {
	return bridge.ErrUnsupportedWrite
}

// InvokeCommand implements bridge.Cluster. The cluster has no commands.
func (c *Cluster) InvokeCommand(_ context.Context, _ bridge.InvokeRequest) ([]byte, bool, error) {
	return nil, false, bridge.ErrUnsupportedCommand
}

// SetChangeNotifier implements bridge.ChangeNotifiable: the handler's
// change callback queues the StateChange event before the dispatcher's
// version-bump runs.
func (c *Cluster) SetChangeNotifier(notify func()) {
	c.handler.SetChangeNotifier(func() {
		c.recordStateChange()
		notify()
	})
}

func (c *Cluster) recordStateChange() {
	if c.events == nil {
		return
	}
	payload, err := cbor.Marshal(StateChangePayload{StateValue: c.handler.CurrentState()})
	if err != nil {
		return
	}
	c.events.Record(c.EventPath(EventStateChange), events.PriorityInfo, payload)
}

var (
	_ bridge.Cluster          = (*Cluster)(nil)
	_ bridge.ChangeNotifiable = (*Cluster)(nil)
)
