package bridge

import (
	"context"
	"crypto/rand"
	"encoding/binary"
)

// Global attribute IDs present on every cluster (Spec 7.13).
const (
	GlobalAttrGeneratedCommandList AttributeID = 0xFFF8
	GlobalAttrAcceptedCommandList  AttributeID = 0xFFF9
	GlobalAttrAttributeList        AttributeID = 0xFFFB
	GlobalAttrFeatureMap           AttributeID = 0xFFFC
	GlobalAttrClusterRevision      AttributeID = 0xFFFD
)

// Cluster is a server-side cluster instance: the functional building block
// of the data model containing attributes, commands, and events.
//
// Implementations do not synchronize their protocol-visible state
// themselves; the Dispatcher serializes every operation against the
// owning resource's lock.
type Cluster interface {
	// ID returns the cluster ID.
	ID() ClusterID

	// EndpointID returns the endpoint this cluster belongs to.
	EndpointID() EndpointID

	// ClusterRevision returns the implemented cluster revision (0xFFFD).
	ClusterRevision() uint16

	// FeatureMap returns the supported features bitmap (0xFFFC).
	FeatureMap() uint32

	// AttributeList returns the IDs of all supported attributes,
	// including globals.
	AttributeList() []AttributeID

	// AcceptedCommandList returns the IDs of accepted commands.
	AcceptedCommandList() []CommandID

	// ReadAttribute reads a specific attribute. The cluster handles
	// global attributes itself (use ClusterBase.ReadGlobalAttribute).
	ReadAttribute(ctx context.Context, req ReadRequest) (Value, error)

	// WriteAttribute writes a specific attribute. A successful write is
	// assumed to change observable state.
	WriteAttribute(ctx context.Context, req WriteRequest) error

	// InvokeCommand executes a command. The changed result reports
	// whether observable state was mutated, so the dispatcher knows
	// whether to advance the data version.
	InvokeCommand(ctx context.Context, req InvokeRequest) (resp []byte, changed bool, err error)
}

// ChangeNotifiable is implemented by clusters whose backing data source
// pushes asynchronous state changes. The dispatcher calls
// SetChangeNotifier exactly once when the cluster is registered; the
// cluster forwards the callback to its Capability Handler.
type ChangeNotifiable interface {
	SetChangeNotifier(notify func())
}

// ChangeListener is notified after a resource's data version advances.
// Used for subscription dirty-marking.
type ChangeListener interface {
	OnResourceChanged(path ResourcePath, version DataVersion)
}

// ClusterBase provides common functionality for cluster implementations.
// Embed it to get standard behavior for identity and global attributes.
type ClusterBase struct {
	id         ClusterID
	endpointID EndpointID
	revision   uint16
	featureMap uint32
}

// NewClusterBase creates a cluster base with the given identity.
func NewClusterBase(id ClusterID, endpointID EndpointID, revision uint16) *ClusterBase {
	return &ClusterBase{
		id:         id,
		endpointID: endpointID,
		revision:   revision,
	}
}

// ID returns the cluster ID.
func (c *ClusterBase) ID() ClusterID { return c.id }

// EndpointID returns the endpoint this cluster belongs to.
func (c *ClusterBase) EndpointID() EndpointID { return c.endpointID }

// ClusterRevision returns the cluster revision.
func (c *ClusterBase) ClusterRevision() uint16 { return c.revision }

// FeatureMap returns the feature map.
func (c *ClusterBase) FeatureMap() uint32 { return c.featureMap }

// SetFeatureMap sets the feature map bits.
func (c *ClusterBase) SetFeatureMap(features uint32) { c.featureMap = features }

// Path returns the concrete resource path for this cluster.
func (c *ClusterBase) Path() ResourcePath {
	return ResourcePath{Endpoint: c.endpointID, Cluster: c.id}
}

// EventPath returns a concrete event path for an event on this cluster.
func (c *ClusterBase) EventPath(eventID EventID) EventPath {
	return EventPath{Endpoint: c.endpointID, Cluster: c.id, Event: eventID}
}

// ReadGlobalAttribute handles reading of global attributes. Returns true
// if the attribute was handled, false if it's cluster-specific.
func (c *ClusterBase) ReadGlobalAttribute(attrID AttributeID, attrList []AttributeID, cmdList []CommandID) (Value, bool) {
	switch attrID {
	case GlobalAttrClusterRevision:
		return uint64(c.revision), true
	case GlobalAttrFeatureMap:
		return uint64(c.featureMap), true
	case GlobalAttrAttributeList:
		return attrList, true
	case GlobalAttrAcceptedCommandList:
		return cmdList, true
	case GlobalAttrGeneratedCommandList:
		return []CommandID{}, true
	default:
		return nil, false
	}
}

// MergeAttributeLists appends the global attribute IDs to a cluster's own.
func MergeAttributeLists(clusterAttrs []AttributeID) []AttributeID {
	globals := []AttributeID{
		GlobalAttrGeneratedCommandList,
		GlobalAttrAcceptedCommandList,
		GlobalAttrAttributeList,
		GlobalAttrFeatureMap,
		GlobalAttrClusterRevision,
	}
	result := make([]AttributeID, 0, len(clusterAttrs)+len(globals))
	result = append(result, clusterAttrs...)
	result = append(result, globals...)
	return result
}

// randomDataVersion generates a random initial data version per Spec
// 7.10.3, so a rebooted node is never mistaken for an unchanged one.
func randomDataVersion() DataVersion {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 1
	}
	return DataVersion(binary.LittleEndian.Uint32(buf[:]))
}
