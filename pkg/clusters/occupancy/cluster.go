// Package occupancy implements the Occupancy Sensing cluster (0x0406).
package occupancy

import (
	"context"

	"github.com/backkem/matter-bridge/pkg/bridge"
)

// Cluster constants.
const (
	ClusterID       bridge.ClusterID = 0x0406
	ClusterRevision uint16           = 4
)

// Attribute IDs.
const (
	AttrOccupancy               bridge.AttributeID = 0x0000
	AttrOccupancySensorType     bridge.AttributeID = 0x0001
	AttrOccupancySensorTypeBits bridge.AttributeID = 0x0002
)

// Occupancy bitmap bits.
const (
	OccupiedBit uint8 = 1 << 0
)

// SensorType identifies the sensing technology.
type SensorType uint8

const (
	SensorTypePIR SensorType = iota
	SensorTypeUltrasonic
	SensorTypePIRAndUltrasonic
	SensorTypePhysicalContact
)

// String returns the sensor type name.
func (t SensorType) String() string {
	switch t {
	case SensorTypePIR:
		return "PIR"
	case SensorTypeUltrasonic:
		return "Ultrasonic"
	case SensorTypePIRAndUltrasonic:
		return "PIRAndUltrasonic"
	case SensorTypePhysicalContact:
		return "PhysicalContact"
	default:
		return "Unknown"
	}
}

// Config provides dependencies for the Occupancy Sensing cluster.
type Config struct {
	// EndpointID is the endpoint this cluster belongs to.
	EndpointID bridge.EndpointID

	// Handler is the data source: occupied maps to true. Required.
	Handler bridge.Handler

	// SensorType describes the sensing technology. Defaults to PIR.
	SensorType SensorType
}

// Cluster implements the Occupancy Sensing cluster (0x0406).
type Cluster struct {
	*bridge.ClusterBase
	handler    bridge.Handler
	sensorType SensorType
}

// New creates an Occupancy Sensing cluster over the given handler.
func New(cfg Config) *Cluster {
	return &Cluster{
		ClusterBase: bridge.NewClusterBase(ClusterID, cfg.EndpointID, ClusterRevision),
		handler:     cfg.Handler,
		sensorType:  cfg.SensorType,
	}
}

// AttributeList implements bridge.Cluster.
func (c *Cluster) AttributeList() []bridge.AttributeID {
	return bridge.MergeAttributeLists([]bridge.AttributeID{
		AttrOccupancy,
		AttrOccupancySensorType,
		AttrOccupancySensorTypeBits,
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
	case AttrOccupancy:
		var bits uint8
		if c.handler.CurrentState() {
			bits |= OccupiedBit
		}
		return uint64(bits), nil

	case AttrOccupancySensorType:
		return uint64(c.sensorType), nil

	case AttrOccupancySensorTypeBits:
		switch c.sensorType {
		case SensorTypeUltrasonic:
			return uint64(1 << 1), nil
		case SensorTypePIRAndUltrasonic:
			return uint64(1<<0 | 1<<1), nil
		case SensorTypePhysicalContact:
			return uint64(1 << 2), nil
		default:
			return uint64(1 << 0), nil
		}

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
