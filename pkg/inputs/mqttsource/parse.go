package mqttsource

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrUnparseablePayload is returned when a payload matches no known shape.
var ErrUnparseablePayload = errors.New("mqttsource: unparseable payload")

// ParseBoolField extracts a named boolean field from a zigbee2mqtt JSON
// payload ({"contact":true}). Bare payloads ("ON", "true") are accepted
// too, since plain switches publish those.
func ParseBoolField(payload []byte, field string) (bool, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err == nil {
		raw, ok := obj[field]
		if !ok {
			return false, ErrUnparseablePayload
		}
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return b, nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return parseBoolWord(s)
		}
		return false, ErrUnparseablePayload
	}
	return parseBoolWord(string(payload))
}

func parseBoolWord(s string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ON", "TRUE", "1":
		return true, nil
	case "OFF", "FALSE", "0":
		return false, nil
	default:
		return false, ErrUnparseablePayload
	}
}

// ParseNumberField extracts a numeric field ({"temperature":21.5}).
func ParseNumberField(payload []byte, field string) (float64, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return 0, ErrUnparseablePayload
	}
	raw, ok := obj[field]
	if !ok {
		return 0, ErrUnparseablePayload
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, ErrUnparseablePayload
	}
	return v, nil
}

// SwitchAction is one decoded remote-button action.
type SwitchAction struct {
	// Kind is the gesture: single, double, hold, or release.
	Kind ActionKind

	// Position is the switch position the gesture happened on.
	Position uint8
}

// ActionKind classifies a button gesture.
type ActionKind uint8

const (
	ActionSingle ActionKind = iota
	ActionDouble
	ActionHold
	ActionRelease
)

// String returns the gesture name.
func (k ActionKind) String() string {
	switch k {
	case ActionSingle:
		return "single"
	case ActionDouble:
		return "double"
	case ActionHold:
		return "hold"
	case ActionRelease:
		return "release"
	default:
		return "unknown"
	}
}

// buttonPositions maps remote button names to switch positions.
var buttonPositions = map[string]uint8{
	"plus":   1,
	"center": 2,
	"minus":  3,
}

// ParseSwitchAction decodes a zigbee2mqtt action payload
// ({"action":"single_plus"}) or a bare action string into a gesture.
func ParseSwitchAction(payload []byte) (SwitchAction, error) {
	action := strings.TrimSpace(string(payload))

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err == nil {
		raw, ok := obj["action"]
		if !ok {
			return SwitchAction{}, ErrUnparseablePayload
		}
		if err := json.Unmarshal(raw, &action); err != nil {
			return SwitchAction{}, ErrUnparseablePayload
		}
	}

	kind, button, found := strings.Cut(action, "_")
	if !found {
		return SwitchAction{}, ErrUnparseablePayload
	}
	position, ok := buttonPositions[button]
	if !ok {
		return SwitchAction{}, ErrUnparseablePayload
	}

	switch kind {
	case "single":
		return SwitchAction{Kind: ActionSingle, Position: position}, nil
	case "double":
		return SwitchAction{Kind: ActionDouble, Position: position}, nil
	case "hold":
		return SwitchAction{Kind: ActionHold, Position: position}, nil
	case "release":
		return SwitchAction{Kind: ActionRelease, Position: position}, nil
	default:
		return SwitchAction{}, ErrUnparseablePayload
	}
}
