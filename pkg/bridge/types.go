// Package bridge implements the versioned state-dispatch core of the
// device bridge: it routes read/write/invoke requests to cluster
// implementations, owns the per-resource data versions, and turns
// asynchronous data-source changes into versioned, subscribable facts.
package bridge

// EndpointID identifies an endpoint within the bridged node.
type EndpointID uint16

// ClusterID identifies a cluster (e.g., 0x003B for GenericSwitch).
type ClusterID uint32

// AttributeID identifies an attribute within a cluster.
type AttributeID uint32

// CommandID identifies a command within a cluster.
type CommandID uint32

// EventID identifies an event within a cluster.
type EventID uint32

// DataVersion is the per-resource monotonic change counter (Spec 7.10.3).
// It increments by exactly one on every successful mutation of the
// resource's observable state and is never reused while the process lives.
type DataVersion uint32

// Value holds an attribute value or command field crossing the dispatch
// boundary. Concrete types are bool, uint64, int64, string, []byte, or a
// typed slice/struct for list attributes. Wire encoding is the protocol
// stack's concern, not this package's.
type Value interface{}

// ResourcePath addresses a resource: an (endpoint, cluster) pair.
type ResourcePath struct {
	Endpoint EndpointID
	Cluster  ClusterID
}

// AttributePath addresses a concrete attribute.
type AttributePath struct {
	Endpoint  EndpointID
	Cluster   ClusterID
	Attribute AttributeID
}

// Resource returns the resource component of the path.
func (p AttributePath) Resource() ResourcePath {
	return ResourcePath{Endpoint: p.Endpoint, Cluster: p.Cluster}
}

// CommandPath addresses a concrete command.
type CommandPath struct {
	Endpoint EndpointID
	Cluster  ClusterID
	Command  CommandID
}

// Resource returns the resource component of the path.
func (p CommandPath) Resource() ResourcePath {
	return ResourcePath{Endpoint: p.Endpoint, Cluster: p.Cluster}
}

// EventPath addresses an event source.
type EventPath struct {
	Endpoint EndpointID
	Cluster  ClusterID
	Event    EventID
}

// Resource returns the resource component of the path.
func (p EventPath) Resource() ResourcePath {
	return ResourcePath{Endpoint: p.Endpoint, Cluster: p.Cluster}
}

// Subject describes the remote peer issuing a request. FabricIndex scopes
// fabric-filtered attributes (e.g., the ICD client list); zero means the
// request is not fabric-scoped. Addr is the peer's network address as
// seen by the transport, when known.
type Subject struct {
	FabricIndex uint8
	NodeID      uint64
	Addr        string
}

// ReadRequest carries parameters for an attribute read.
type ReadRequest struct {
	Path    AttributePath
	Subject Subject
}

// WriteRequest carries parameters for an attribute write.
type WriteRequest struct {
	Path    AttributePath
	Subject Subject
	Value   Value
}

// InvokeRequest carries parameters for a command invocation. Args holds the
// CBOR-encoded command fields; clusters decode into their own structs.
type InvokeRequest struct {
	Path    CommandPath
	Subject Subject
	Args    []byte
}
