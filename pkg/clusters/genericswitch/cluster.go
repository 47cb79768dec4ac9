// Package genericswitch implements the Generic Switch cluster (0x003B)
// for momentary switches. Input sources drive the cluster through Press,
// Release, LongPress, LongRelease, and MultiPress; each transition
// queues the corresponding event and updates CurrentPosition.
package genericswitch

import (
	"context"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/backkem/matter-bridge/pkg/bridge"
	"github.com/backkem/matter-bridge/pkg/events"
)

// Cluster constants.
const (
	ClusterID       bridge.ClusterID = 0x003B
	ClusterRevision uint16           = 1
)

// Attribute IDs.
const (
	AttrNumberOfPositions bridge.AttributeID = 0x0000
	AttrCurrentPosition   bridge.AttributeID = 0x0001
	AttrMultiPressMax     bridge.AttributeID = 0x0002
)

// Event IDs.
const (
	EventSwitchLatched      bridge.EventID = 0x00
	EventInitialPress       bridge.EventID = 0x01
	EventLongPress          bridge.EventID = 0x02
	EventShortRelease       bridge.EventID = 0x03
	EventLongRelease        bridge.EventID = 0x04
	EventMultiPressOngoing  bridge.EventID = 0x05
	EventMultiPressComplete bridge.EventID = 0x06
)

// Feature bits.
type Feature uint32

const (
	// FeatureLatchingSwitch: the switch holds its position (LS).
	FeatureLatchingSwitch Feature = 1 << 0

	// FeatureMomentarySwitch: the switch returns to neutral (MS).
	FeatureMomentarySwitch Feature = 1 << 1

	// FeatureMomentarySwitchRelease: release events are emitted (MSR).
	FeatureMomentarySwitchRelease Feature = 1 << 2

	// FeatureMomentarySwitchLongPress: long presses are detected (MSL).
	FeatureMomentarySwitchLongPress Feature = 1 << 3

	// FeatureMomentarySwitchMultiPress: multi-presses are counted (MSM).
	FeatureMomentarySwitchMultiPress Feature = 1 << 4
)

// PositionPayload is the CBOR event payload carrying the new position.
type PositionPayload struct {
	Position uint8 `cbor:"0,keyasint"`
}

// ReleasePayload carries the position that was released.
type ReleasePayload struct {
	PreviousPosition uint8 `cbor:"0,keyasint"`
}

// MultiPressCompletePayload closes a multi-press sequence.
type MultiPressCompletePayload struct {
	PreviousPosition uint8 `cbor:"0,keyasint"`
	TotalPresses     uint8 `cbor:"1,keyasint"`
}

// Config provides dependencies for the Generic Switch cluster.
type Config struct {
	// EndpointID is the endpoint this cluster belongs to.
	EndpointID bridge.EndpointID

	// NumberOfPositions is the position count. Zero means 2.
	NumberOfPositions uint8

	// MultiPressMax is the longest recognized press sequence. Zero
	// means 2.
	MultiPressMax uint8

	// FeatureMap indicates supported features. Zero means a momentary
	// switch with release, long-press, and multi-press support.
	FeatureMap Feature

	// Events receives the switch event records. Required for event
	// emission; without it only CurrentPosition tracking remains.
	Events *events.Queue
}

// Cluster implements the Generic Switch cluster (0x003B).
type Cluster struct {
	*bridge.ClusterBase
	positions     uint8
	multiPressMax uint8
	events        *events.Queue

	mu       sync.Mutex
	position uint8
	notify   func()
}

// New creates a Generic Switch cluster.
func New(cfg Config) *Cluster {
	c := &Cluster{
		ClusterBase:   bridge.NewClusterBase(ClusterID, cfg.EndpointID, ClusterRevision),
		positions:     cfg.NumberOfPositions,
		multiPressMax: cfg.MultiPressMax,
		events:        cfg.Events,
	}
	if c.positions == 0 {
		c.positions = 2
	}
	if c.multiPressMax == 0 {
		c.multiPressMax = 2
	}
	features := cfg.FeatureMap
	if features == 0 {
		features = FeatureMomentarySwitch |
			FeatureMomentarySwitchRelease |
			FeatureMomentarySwitchLongPress |
			FeatureMomentarySwitchMultiPress
	}
	c.SetFeatureMap(uint32(features))
	return c
}

// AttributeList implements bridge.Cluster.
func (c *Cluster) AttributeList() []bridge.AttributeID {
	return bridge.MergeAttributeLists([]bridge.AttributeID{
		AttrNumberOfPositions,
		AttrCurrentPosition,
		AttrMultiPressMax,
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
	case AttrNumberOfPositions:
		return uint64(c.positions), nil
	case AttrCurrentPosition:
		c.mu.Lock()
		defer c.mu.Unlock()
		return uint64(c.position), nil
	case AttrMultiPressMax:
		return uint64(c.multiPressMax), nil
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
	c.mu.Lock()
	c.notify = notify
	c.mu.Unlock()
}

// Press reports the switch moving to position. Emits InitialPress.
func (c *Cluster) Press(position uint8) {
	c.setPosition(position)
	c.record(EventInitialPress, PositionPayload{Position: position})
}

// Release reports the momentary switch returning to neutral after a
// short press. Emits ShortRelease.
func (c *Cluster) Release(previousPosition uint8) {
	c.setPosition(0)
	c.record(EventShortRelease, ReleasePayload{PreviousPosition: previousPosition})
}

// LongPress reports the switch being held at position. Emits LongPress.
func (c *Cluster) LongPress(position uint8) {
	c.setPosition(position)
	c.record(EventLongPress, PositionPayload{Position: position})
}

// LongRelease reports the end of a hold. Emits LongRelease.
func (c *Cluster) LongRelease(previousPosition uint8) {
	c.setPosition(0)
	c.record(EventLongRelease, ReleasePayload{PreviousPosition: previousPosition})
}

// MultiPress reports a completed sequence of count presses at position.
// Counts beyond MultiPressMax are reported as MultiPressMax.
func (c *Cluster) MultiPress(position uint8, count uint8) {
	if count > c.multiPressMax {
		count = c.multiPressMax
	}
	c.setPosition(0)
	c.record(EventMultiPressComplete, MultiPressCompletePayload{
		PreviousPosition: position,
		TotalPresses:     count,
	})
}

func (c *Cluster) setPosition(position uint8) {
	if position >= c.positions {
		position = c.positions - 1
	}

	c.mu.Lock()
	changed := c.position != position
	c.position = position
	notify := c.notify
	c.mu.Unlock()

	if changed && notify != nil {
		notify()
	}
}

func (c *Cluster) record(id bridge.EventID, payload interface{}) {
	if c.events == nil {
		return
	}
	data, err := cbor.Marshal(payload)
	if err != nil {
		return
	}
	c.events.Record(c.EventPath(id), events.PriorityInfo, data)
}

var (
	_ bridge.Cluster          = (*Cluster)(nil)
	_ bridge.ChangeNotifiable = (*Cluster)(nil)
)
