// Package icdmgmt implements the ICD Management cluster (0x0046) with
// the check-in protocol feature: controllers register for check-ins,
// unregister, and request stay-active windows through it.
package icdmgmt

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/backkem/matter-bridge/pkg/bridge"
	"github.com/backkem/matter-bridge/pkg/checkin"
)

// Cluster constants.
const (
	ClusterID       bridge.ClusterID = 0x0046
	ClusterRevision uint16           = 2
)

// Attribute IDs.
const (
	AttrIdleModeDuration    bridge.AttributeID = 0x0000
	AttrActiveModeDuration  bridge.AttributeID = 0x0001
	AttrActiveModeThreshold bridge.AttributeID = 0x0002
	AttrRegisteredClients   bridge.AttributeID = 0x0003
	AttrICDCounter          bridge.AttributeID = 0x0004
	AttrClientsPerFabric    bridge.AttributeID = 0x0005
	AttrMaxCheckInBackOff   bridge.AttributeID = 0x0009
)

// Command IDs.
const (
	CmdRegisterClient         bridge.CommandID = 0x00
	CmdRegisterClientResponse bridge.CommandID = 0x01
	CmdUnregisterClient       bridge.CommandID = 0x02
	CmdStayActiveRequest      bridge.CommandID = 0x03
	CmdStayActiveResponse     bridge.CommandID = 0x04
)

// Feature bits.
type Feature uint32

const (
	// FeatureCheckInProtocol: the node emits check-in messages (CIP).
	FeatureCheckInProtocol Feature = 1 << 0
)

// Default mode durations.
const (
	DefaultIdleModeDuration   = 300 * time.Second
	DefaultActiveModeDuration = 500 * time.Millisecond
)

// RegisterClientFields is the CBOR-encoded RegisterClient request.
type RegisterClientFields struct {
	CheckInNodeID    uint64 `cbor:"0,keyasint"`
	MonitoredSubject uint64 `cbor:"1,keyasint"`
	Key              []byte `cbor:"2,keyasint"`
	VerificationKey  []byte `cbor:"3,keyasint,omitempty"`
	ClientType       uint8  `cbor:"4,keyasint"`
}

// RegisterClientResponseFields is the CBOR-encoded response.
type RegisterClientResponseFields struct {
	ICDCounter uint32 `cbor:"0,keyasint"`
}

// UnregisterClientFields is the CBOR-encoded UnregisterClient request.
type UnregisterClientFields struct {
	CheckInNodeID   uint64 `cbor:"0,keyasint"`
	VerificationKey []byte `cbor:"1,keyasint,omitempty"`
}

// StayActiveRequestFields is the CBOR-encoded StayActiveRequest.
type StayActiveRequestFields struct {
	StayActiveDurationMs uint32 `cbor:"0,keyasint"`
}

// StayActiveResponseFields is the CBOR-encoded response.
type StayActiveResponseFields struct {
	PromisedActiveDurationMs uint32 `cbor:"0,keyasint"`
}

// ClientInfo is one entry of the fabric-scoped RegisteredClients list.
// Key material never appears here.
type ClientInfo struct {
	CheckInNodeID    uint64
	MonitoredSubject uint64
	ClientType       uint8
}

// Config provides dependencies for the ICD Management cluster.
type Config struct {
	// EndpointID is the endpoint this cluster belongs to.
	EndpointID bridge.EndpointID

	// Engine drives check-in emission. Required.
	Engine *checkin.Engine

	// Registry holds the registered clients. Required.
	Registry *checkin.Registry

	// IdleModeDuration and ActiveModeDuration describe the device's
	// duty cycle. Zero means the defaults.
	IdleModeDuration   time.Duration
	ActiveModeDuration time.Duration
}

// Cluster implements the ICD Management cluster (0x0046).
type Cluster struct {
	*bridge.ClusterBase
	engine   *checkin.Engine
	registry *checkin.Registry
	idle     time.Duration
	active   time.Duration
}

// New creates an ICD Management cluster.
func New(cfg Config) *Cluster {
	c := &Cluster{
		ClusterBase: bridge.NewClusterBase(ClusterID, cfg.EndpointID, ClusterRevision),
		engine:      cfg.Engine,
		registry:    cfg.Registry,
		idle:        cfg.IdleModeDuration,
		active:      cfg.ActiveModeDuration,
	}
	if c.idle <= 0 {
		c.idle = DefaultIdleModeDuration
	}
	if c.active <= 0 {
		c.active = DefaultActiveModeDuration
	}
	c.SetFeatureMap(uint32(FeatureCheckInProtocol))
	return c
}

// AttributeList implements bridge.Cluster.
func (c *Cluster) AttributeList() []bridge.AttributeID {
	return bridge.MergeAttributeLists([]bridge.AttributeID{
		AttrIdleModeDuration,
		AttrActiveModeDuration,
		AttrActiveModeThreshold,
		AttrRegisteredClients,
		AttrICDCounter,
		AttrClientsPerFabric,
		AttrMaxCheckInBackOff,
	})
}

// AcceptedCommandList implements bridge.Cluster.
func (c *Cluster) AcceptedCommandList() []bridge.CommandID {
	return []bridge.CommandID{CmdRegisterClient, CmdUnregisterClient, CmdStayActiveRequest}
}

// ReadAttribute implements bridge.Cluster. RegisteredClients is fabric
// filtered: a fabric only sees its own registrations, without keys.
func (c *Cluster) ReadAttribute(_ context.Context, req bridge.ReadRequest) (bridge.Value, error) {
	if v, ok := c.ReadGlobalAttribute(req.Path.Attribute, c.AttributeList(), c.AcceptedCommandList()); ok {
		return v, nil
	}

	switch req.Path.Attribute {
	case AttrIdleModeDuration:
		return uint64(c.idle.Seconds()), nil

	case AttrActiveModeDuration:
		return uint64(c.active.Milliseconds()), nil

	case AttrActiveModeThreshold:
		return uint64(c.engine.ActiveModeThreshold().Milliseconds()), nil

	case AttrRegisteredClients:
		var list []ClientInfo
		for _, client := range c.registry.ClientsForFabric(req.Subject.FabricIndex) {
			list = append(list, ClientInfo{
				CheckInNodeID:    client.CheckInNodeID,
				MonitoredSubject: client.MonitoredSubject,
				ClientType:       uint8(client.Type),
			})
		}
		return list, nil

	case AttrICDCounter:
		return uint64(c.registry.Counter()), nil

	case AttrClientsPerFabric:
		return uint64(checkin.MaxClientsPerFabric), nil

	case AttrMaxCheckInBackOff:
		return uint64(c.engine.CheckInInterval().Seconds()), nil

	default:
		return nil, bridge.ErrUnsupportedAttribute
	}
}

// WriteAttribute implements bridge.Cluster. All attributes are read-only.
func (c *Cluster) WriteAttribute(_ context.Context, _ bridge.WriteRequest) error {
	return bridge.ErrUnsupportedWrite
}

// InvokeCommand implements bridge.Cluster.
func (c *Cluster) InvokeCommand(_ context.Context, req bridge.InvokeRequest) ([]byte, bool, error) {
	switch req.Path.Command {
	case CmdRegisterClient:
		return c.handleRegister(req)
	case CmdUnregisterClient:
		return c.handleUnregister(req)
	case CmdStayActiveRequest:
		return c.handleStayActive(req)
	default:
		return nil, false, bridge.ErrUnsupportedCommand
	}
}

func (c *Cluster) handleRegister(req bridge.InvokeRequest) ([]byte, bool, error) {
	var fields RegisterClientFields
	if err := cbor.Unmarshal(req.Args, &fields); err != nil {
		return nil, false, bridge.ErrInvalidArgument
	}

	verify := fields.VerificationKey
	if verify == nil {
		derived, err := checkin.DeriveVerificationKey(fields.Key)
		if err != nil {
			return nil, false, bridge.ErrConstraintError
		}
		verify = derived
	}

	client := checkin.RegisteredClient{
		FabricIndex:      req.Subject.FabricIndex,
		CheckInNodeID:    fields.CheckInNodeID,
		MonitoredSubject: fields.MonitoredSubject,
		SharedKey:        fields.Key,
		VerificationKey:  verify,
		Type:             checkin.ClientType(fields.ClientType),
		ControllerAddr:   req.Subject.Addr,
	}

	if err := c.engine.Register(client); err != nil {
		switch err {
		case checkin.ErrTooManyClients:
			return nil, false, bridge.ErrResourceExhausted
		case checkin.ErrInvalidKey:
			return nil, false, bridge.ErrConstraintError
		default:
			return nil, false, err
		}
	}

	resp, err := cbor.Marshal(RegisterClientResponseFields{ICDCounter: c.registry.Counter()})
	if err != nil {
		return nil, true, err
	}
	return resp, true, nil
}

func (c *Cluster) handleUnregister(req bridge.InvokeRequest) ([]byte, bool, error) {
	var fields UnregisterClientFields
	if err := cbor.Unmarshal(req.Args, &fields); err != nil {
		return nil, false, bridge.ErrInvalidArgument
	}

	if fields.VerificationKey != nil {
		client, err := c.registry.Client(req.Subject.FabricIndex, fields.CheckInNodeID)
		if err != nil {
			return nil, false, bridge.ErrNotFound
		}
		if subtle.ConstantTimeCompare(client.VerificationKey, fields.VerificationKey) != 1 {
			return nil, false, bridge.ErrInvalidArgument
		}
	}

	if err := c.engine.Unregister(req.Subject.FabricIndex, fields.CheckInNodeID); err != nil {
		if err == checkin.ErrClientNotFound {
			return nil, false, bridge.ErrNotFound
		}
		return nil, false, err
	}
	return nil, true, nil
}

func (c *Cluster) handleStayActive(req bridge.InvokeRequest) ([]byte, bool, error) {
	var fields StayActiveRequestFields
	if err := cbor.Unmarshal(req.Args, &fields); err != nil {
		return nil, false, bridge.ErrInvalidArgument
	}

	promised, err := c.engine.StayActive(
		req.Subject.FabricIndex,
		req.Subject.NodeID,
		time.Duration(fields.StayActiveDurationMs)*time.Millisecond,
	)
	if err != nil {
		if err == checkin.ErrClientNotFound {
			return nil, false, bridge.ErrNotFound
		}
		return nil, false, err
	}

	resp, err := cbor.Marshal(StayActiveResponseFields{
		PromisedActiveDurationMs: uint32(promised.Milliseconds()),
	})
	if err != nil {
		return nil, false, err
	}
	return resp, false, nil
}

var _ bridge.Cluster = (*Cluster)(nil)
