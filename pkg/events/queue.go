package events

import (
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/backkem/matter-bridge/pkg/bridge"
)

// DefaultQueueCapacity bounds a queue when no capacity is configured.
const DefaultQueueCapacity = 16

// QueueConfig configures a Queue.
type QueueConfig struct {
	// Resource is the (endpoint, cluster) pair this queue belongs to.
	Resource bridge.ResourcePath

	// Sequencer stamps records with the node-wide event order. Required.
	Sequencer *Sequencer

	// Capacity bounds the queue. Zero means DefaultQueueCapacity.
	Capacity int

	// OnRecord, if set, is called after a record is queued, outside the
	// queue lock. Typically the subscription notifier.
	OnRecord func(rec Record)

	// LoggerFactory creates the queue's logger. If nil, logging is
	// disabled.
	LoggerFactory logging.LoggerFactory
}

// Queue is a bounded per-resource event buffer. When full, the oldest
// record is dropped to make room: event loss is bounded and silent to
// the protocol, but logged.
type Queue struct {
	resource  bridge.ResourcePath
	sequencer *Sequencer
	capacity  int
	onRecord  func(rec Record)
	log       logging.LeveledLogger

	mu      sync.Mutex
	pending []Record
	dropped uint64
}

// NewQueue creates an empty bounded queue.
func NewQueue(config QueueConfig) *Queue {
	capacity := config.Capacity
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	q := &Queue{
		resource:  config.Resource,
		sequencer: config.Sequencer,
		capacity:  capacity,
		onRecord:  config.OnRecord,
	}
	if config.LoggerFactory != nil {
		q.log = config.LoggerFactory.NewLogger("events")
	}
	return q
}

// Resource returns the resource path this queue belongs to.
func (q *Queue) Resource() bridge.ResourcePath {
	return q.resource
}

// Record stamps the event with the next node-wide sequence number and
// appends it. If the queue is full, the oldest pending record is dropped.
// Returns the stamped record.
//
// The sequence number is taken under the queue lock so queue order and
// sequence order always agree: a drained batch is strictly ascending.
func (q *Queue) Record(path bridge.EventPath, priority Priority, payload []byte) Record {
	q.mu.Lock()
	rec := Record{
		Path:      path,
		Seq:       q.sequencer.Next(),
		Priority:  priority,
		Timestamp: time.Now(),
		Payload:   payload,
	}

	var dropped bool
	var droppedSeq uint64
	if len(q.pending) >= q.capacity {
		dropped = true
		droppedSeq = q.pending[0].Seq
		q.pending = q.pending[1:]
		q.dropped++
	}
	q.pending = append(q.pending, rec)
	q.mu.Unlock()

	if dropped && q.log != nil {
		q.log.Warnf("queue full at endpoint %d cluster 0x%04X, dropped event seq %d",
			q.resource.Endpoint, q.resource.Cluster, droppedSeq)
	}

	if q.onRecord != nil {
		q.onRecord(rec)
	}
	return rec
}

// Drain removes and returns all pending records in queue order.
func (q *Queue) Drain() []Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := q.pending
	q.pending = nil
	return pending
}

// Len returns the number of pending records.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Dropped returns how many records were lost to overflow.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
