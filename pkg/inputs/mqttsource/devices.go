package mqttsource

import (
	"github.com/backkem/matter-bridge/pkg/bridge"
	"github.com/backkem/matter-bridge/pkg/clusters/genericswitch"
)

// ContactSensor wires a zigbee2mqtt contact sensor topic to a boolean
// handler. StateValue true means the contact is closed.
func (c *Client) ContactSensor(topic string) (*bridge.BoolState, error) {
	state := &bridge.BoolState{}
	err := c.Subscribe(topic, func(payload []byte) {
		contact, err := ParseBoolField(payload, "contact")
		if err != nil {
			if c.log != nil {
				c.log.Warnf("contact payload on %s: %v", topic, err)
			}
			return
		}
		state.Set(contact)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// OccupancySensor wires an occupancy sensor topic to a boolean handler.
func (c *Client) OccupancySensor(topic string) (*bridge.BoolState, error) {
	state := &bridge.BoolState{}
	err := c.Subscribe(topic, func(payload []byte) {
		occupied, err := ParseBoolField(payload, "occupancy")
		if err != nil {
			if c.log != nil {
				c.log.Warnf("occupancy payload on %s: %v", topic, err)
			}
			return
		}
		state.Set(occupied)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// TemperatureSensor wires a temperature topic to a measurement handler.
// Readings arrive in degrees and are stored in hundredths.
func (c *Client) TemperatureSensor(topic string) (*bridge.MeasuredState, error) {
	state := &bridge.MeasuredState{}
	err := c.Subscribe(topic, func(payload []byte) {
		degrees, err := ParseNumberField(payload, "temperature")
		if err != nil {
			if c.log != nil {
				c.log.Warnf("temperature payload on %s: %v", topic, err)
			}
			return
		}
		state.Set(int16(degrees * 100))
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Switchable wires a controllable device (plug, light) topic to a
// boolean handler whose OnCommand publishes back to topic/set.
func (c *Client) Switchable(topic string) (*bridge.BoolState, error) {
	state := &bridge.BoolState{}
	state.Writable = func(on bool) error {
		return c.PublishState(topic, on)
	}
	err := c.Subscribe(topic, func(payload []byte) {
		on, err := ParseBoolField(payload, "state")
		if err != nil {
			if c.log != nil {
				c.log.Warnf("state payload on %s: %v", topic, err)
			}
			return
		}
		state.Set(on)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// RemoteSwitch feeds a remote's action topic into a Generic Switch
// cluster: single presses become press/release pairs, doubles become
// multi-press sequences, holds become long press/release.
func (c *Client) RemoteSwitch(topic string, cluster *genericswitch.Cluster) error {
	return c.Subscribe(topic, func(payload []byte) {
		action, err := ParseSwitchAction(payload)
		if err != nil {
			if c.log != nil {
				c.log.Warnf("action payload on %s: %v", topic, err)
			}
			return
		}
		DispatchSwitchAction(cluster, action)
	})
}

// DispatchSwitchAction translates one decoded gesture into cluster
// transitions.
func DispatchSwitchAction(cluster *genericswitch.Cluster, action SwitchAction) {
	switch action.Kind {
	case ActionSingle:
		cluster.Press(action.Position)
		cluster.Release(action.Position)
	case ActionDouble:
		cluster.Press(action.Position)
		cluster.MultiPress(action.Position, 2)
	case ActionHold:
		cluster.LongPress(action.Position)
	case ActionRelease:
		cluster.LongRelease(action.Position)
	}
}
