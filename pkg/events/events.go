// Package events provides the pending-event pipeline: clusters queue
// event records as they happen, a global sequencer stamps them with a
// total order, and the aggregator drains all queues into a single
// report-ready list.
package events

import (
	"time"

	"github.com/backkem/matter-bridge/pkg/bridge"
)

// Priority classifies an event record.
type Priority uint8

// Event priorities in increasing urgency.
const (
	PriorityDebug Priority = iota
	PriorityInfo
	PriorityCritical
)

// String returns a human-readable priority name.
func (p Priority) String() string {
	switch p {
	case PriorityDebug:
		return "DEBUG"
	case PriorityInfo:
		return "INFO"
	case PriorityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Record is one occurred event, stamped with its position in the node-wide
// event order. Payload holds the CBOR-encoded event fields.
type Record struct {
	Path      bridge.EventPath
	Seq       uint64
	Priority  Priority
	Timestamp time.Time
	Payload   []byte
}
