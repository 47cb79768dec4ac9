package subscribe

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pion/logging"

	"github.com/backkem/matter-bridge/pkg/bridge"
	"github.com/backkem/matter-bridge/pkg/events"
)

// NotifierConfig configures a Notifier.
type NotifierConfig struct {
	// OnDirty, if set, is called when a subscription transitions from
	// clean to dirty, outside all notifier locks. Typically wakes the
	// report loop.
	OnDirty func(subscriptionID string)

	// LoggerFactory creates the notifier's logger. If nil, logging is
	// disabled.
	LoggerFactory logging.LoggerFactory
}

// Notifier owns the active subscriptions and marks them dirty as
// resources change and events queue up. It is the dispatcher's change
// listener and every queue's record hook.
type Notifier struct {
	onDirty func(subscriptionID string)
	log     logging.LeveledLogger

	mu   sync.RWMutex
	subs map[string]*Subscription
}

// NewNotifier creates a notifier with no subscriptions.
func NewNotifier(config NotifierConfig) *Notifier {
	n := &Notifier{
		onDirty: config.OnDirty,
		subs:    make(map[string]*Subscription),
	}
	if config.LoggerFactory != nil {
		n.log = config.LoggerFactory.NewLogger("subscribe")
	}
	return n
}

// Subscribe registers a new subscription for peer covering filter.
func (n *Notifier) Subscribe(peer PeerID, filter Filter) *Subscription {
	sub := &Subscription{
		ID:       uuid.NewString(),
		Peer:     peer,
		Filter:   filter,
		baseline: make(map[bridge.ResourcePath]bridge.DataVersion),
	}

	n.mu.Lock()
	n.subs[sub.ID] = sub
	n.mu.Unlock()

	if n.log != nil {
		n.log.Infof("subscription %s for fabric %d node 0x%016X", sub.ID, peer.FabricIndex, peer.NodeID)
	}
	return sub
}

// Unsubscribe removes a subscription. Unknown IDs are ignored.
func (n *Notifier) Unsubscribe(id string) {
	n.mu.Lock()
	delete(n.subs, id)
	n.mu.Unlock()
}

// Get returns the subscription with the given ID, or nil.
func (n *Notifier) Get(id string) *Subscription {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.subs[id]
}

// OnResourceChanged implements bridge.ChangeListener: every subscription
// whose filter covers the changed resource goes dirty.
func (n *Notifier) OnResourceChanged(path bridge.ResourcePath, _ bridge.DataVersion) {
	n.markMatching(path)
}

// OnEventQueued is the queue record hook: a queued event dirties the
// subscriptions covering its resource.
func (n *Notifier) OnEventQueued(rec events.Record) {
	n.markMatching(rec.Path.Resource())
}

func (n *Notifier) markMatching(path bridge.ResourcePath) {
	n.mu.RLock()
	var woken []string
	for id, sub := range n.subs {
		if !sub.Filter.Matches(path) {
			continue
		}
		if !sub.Dirty() {
			woken = append(woken, id)
		}
		sub.markDirty()
	}
	n.mu.RUnlock()

	if n.onDirty != nil {
		for _, id := range woken {
			n.onDirty(id)
		}
	}
}
