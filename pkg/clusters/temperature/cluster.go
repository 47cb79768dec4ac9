// Package temperature implements the Temperature Measurement cluster
// (0x0402). Values are in hundredths of a degree Celsius.
package temperature

import (
	"context"

	"github.com/backkem/matter-bridge/pkg/bridge"
)

// Cluster constants.
const (
	ClusterID       bridge.ClusterID = 0x0402
	ClusterRevision uint16           = 4
)

// Attribute IDs.
const (
	AttrMeasuredValue    bridge.AttributeID = 0x0000
	AttrMinMeasuredValue bridge.AttributeID = 0x0001
	AttrMaxMeasuredValue bridge.AttributeID = 0x0002
)

// Default measurement bounds in hundredths of a degree.
const (
	DefaultMin int16 = -4000
	DefaultMax int16 = 12500
)

// Config provides dependencies for the Temperature Measurement cluster.
type Config struct {
	// EndpointID is the endpoint this cluster belongs to.
	EndpointID bridge.EndpointID

	// Handler is the measurement source. Required.
	Handler bridge.MeasurementHandler

	// Min and Max bound the measurable range. Both zero means the
	// defaults.
	Min int16
	Max int16
}

// Cluster implements the Temperature Measurement cluster (0x0402).
type Cluster struct {
	*bridge.ClusterBase
	handler bridge.MeasurementHandler
	min     int16
	max     int16
}

// New creates a Temperature Measurement cluster over the given handler.
func New(cfg Config) *Cluster {
	c := &Cluster{
		ClusterBase: bridge.NewClusterBase(ClusterID, cfg.EndpointID, ClusterRevision),
		handler:     cfg.Handler,
		min:         cfg.Min,
		max:         cfg.Max,
	}
	if c.min == 0 && c.max == 0 {
		c.min = DefaultMin
		c.max = DefaultMax
	}
	return c
}

// AttributeList implements bridge.Cluster.
func (c *Cluster) AttributeList() []bridge.AttributeID {
	return bridge.MergeAttributeLists([]bridge.AttributeID{
		AttrMeasuredValue,
		AttrMinMeasuredValue,
		AttrMaxMeasuredValue,
	})
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
	case AttrMeasuredValue:
		return int64(c.handler.CurrentValue()), nil
	case AttrMinMeasuredValue:
		return int64(c.min), nil
	case AttrMaxMeasuredValue:
		return int64(c.max), nil
	default:
		return nil, bridge.ErrUnsupportedAttribute
	}
}

// WriteAttribute implements bridge.Cluster. All attributes are read-only.
func (c *Cluster) WriteAttribute(_ context.Context, _ bridge.WriteRequest) error {
	return bridge.ErrUnsupportedWrite
}

// InvokeCommand implements bridge.Cluster. The cluster has no commands.
func (c *Cluster) InvokeCommand(_ context.Context, _ bridge.InvokeRequest) ([]byte, bool, error) {
	return nil, false, bridge.ErrUnsupportedCommand
}

// SetChangeNotifier implements bridge.ChangeNotifiable.
func (c *Cluster) SetChangeNotifier(notify func()) {
	c.handler.SetChangeNotifier(notify)
}

var (
	_ bridge.Cluster          = (*Cluster)(nil)
	_ bridge.ChangeNotifiable = (*Cluster)(nil)
)
