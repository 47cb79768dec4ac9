package events

import (
	"sort"
	"sync"

	"github.com/backkem/matter-bridge/pkg/bridge"
)

// Aggregator collects the per-resource queues and drains them into a
// single list for report assembly. Cross-resource order is stable:
// queues are visited in (endpoint, cluster) order and each queue's
// records keep their internal order.
type Aggregator struct {
	mu     sync.RWMutex
	queues map[bridge.ResourcePath]*Queue
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		queues: make(map[bridge.ResourcePath]*Queue),
	}
}

// Register adds a queue. Registering a second queue for the same resource
// replaces the first.
func (a *Aggregator) Register(q *Queue) {
	a.mu.Lock()
	a.queues[q.Resource()] = q
	a.mu.Unlock()
}

// QueueFor returns the queue registered for a resource, or nil.
func (a *Aggregator) QueueFor(path bridge.ResourcePath) *Queue {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.queues[path]
}

// sortedQueues snapshots the registered queues in (endpoint, cluster)
// order.
func (a *Aggregator) sortedQueues() []*Queue {
	a.mu.RLock()
	queues := make([]*Queue, 0, len(a.queues))
	for _, q := range a.queues {
		queues = append(queues, q)
	}
	a.mu.RUnlock()

	sort.Slice(queues, func(i, j int) bool {
		pi, pj := queues[i].Resource(), queues[j].Resource()
		if pi.Endpoint != pj.Endpoint {
			return pi.Endpoint < pj.Endpoint
		}
		return pi.Cluster < pj.Cluster
	})
	return queues
}

// Drain empties every registered queue and returns the combined records.
func (a *Aggregator) Drain() []Record {
	var all []Record
	for _, q := range a.sortedQueues() {
		all = append(all, q.Drain()...)
	}
	return all
}

// DrainMatching empties only the queues whose resource path satisfies
// match and returns the combined records.
func (a *Aggregator) DrainMatching(match func(path bridge.ResourcePath) bool) []Record {
	var all []Record
	for _, q := range a.sortedQueues() {
		if match == nil || match(q.Resource()) {
			all = append(all, q.Drain()...)
		}
	}
	return all
}

// Pending reports the total number of queued records.
func (a *Aggregator) Pending() int {
	total := 0
	for _, q := range a.sortedQueues() {
		total += q.Len()
	}
	return total
}
