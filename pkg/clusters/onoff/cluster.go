// Package onoff implements the On/Off cluster (0x0006) for bridged
// switchable devices such as smart plugs. The backing Capability Handler
// both reports state and forwards controller commands to the real device.
package onoff

import (
	"context"

	"github.com/backkem/matter-bridge/pkg/bridge"
)

// Cluster constants.
const (
	ClusterID       bridge.ClusterID = 0x0006
	ClusterRevision uint16           = 6
)

// Attribute IDs.
const (
	AttrOnOff bridge.AttributeID = 0x0000
)

// Command IDs.
const (
	CmdOff    bridge.CommandID = 0x00
	CmdOn     bridge.CommandID = 0x01
	CmdToggle bridge.CommandID = 0x02
)

// Config provides dependencies for the On/Off cluster.
type Config struct {
	// EndpointID is the endpoint this cluster belongs to.
	EndpointID bridge.EndpointID

	// Handler is the data source. Its OnCommand forwards the desired
	// state to the device. Required.
	Handler bridge.Handler
}

// Cluster implements the On/Off cluster (0x0006).
type Cluster struct {
	*bridge.ClusterBase
	handler bridge.Handler
}

// New creates an On/Off cluster over the given handler.
func New(cfg Config) *Cluster {
	return &Cluster{
		ClusterBase: bridge.NewClusterBase(ClusterID, cfg.EndpointID, ClusterRevision),
		handler:     cfg.Handler,
	}
}

// AttributeList implements bridge.Cluster.
func (c *Cluster) AttributeList() []bridge.AttributeID {
	return bridge.MergeAttributeLists([]bridge.AttributeID{AttrOnOff})
}

// AcceptedCommandList implements bridge.Cluster.
func (c *Cluster) AcceptedCommandList() []bridge.CommandID {
	return []bridge.CommandID{CmdOff, CmdOn, CmdToggle}
}

// ReadAttribute implements bridge.Cluster.
func (c *Cluster) ReadAttribute(_ context.Context, req bridge.ReadRequest) (bridge.Value, error) {
	if v, ok := c.ReadGlobalAttribute(req.Path.Attribute, c.AttributeList(), c.AcceptedCommandList()); ok {
		return v, nil
	}

	switch req.Path.Attribute {
	case AttrOnOff:
		return c.handler.CurrentState(), nil
	default:
		return nil, bridge.ErrUnsupportedAttribute
	}
}

// WriteAttribute implements bridge.Cluster. OnOff changes only through
// commands.
func (c *Cluster) WriteAttribute(_ context.Context, _ bridge.WriteRequest) error {
	return bridge.ErrUnsupportedWrite
}

// InvokeCommand implements bridge.Cluster.
func (c *Cluster) InvokeCommand(_ context.Context, req bridge.InvokeRequest) ([]byte, bool, error) {
	var target bool
	switch req.Path.Command {
	case CmdOff:
		target = false
	case CmdOn:
		target = true
	case CmdToggle:
		target = !c.handler.CurrentState()
	default:
		return nil, false, bridge.ErrUnsupportedCommand
	}

	if c.handler.CurrentState() == target {
		return nil, false, nil
	}
	if err := c.handler.OnCommand(target); err != nil {
		return nil, false, err
	}
	return nil, true, nil
}

// SetChangeNotifier implements bridge.ChangeNotifiable.
func (c *Cluster) SetChangeNotifier(notify func()) {
	c.handler.SetChangeNotifier(notify)
}

var (
	_ bridge.Cluster          = (*Cluster)(nil)
	_ bridge.ChangeNotifiable = (*Cluster)(nil)
)
