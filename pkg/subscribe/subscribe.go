// Package subscribe tracks remote subscriptions and assembles change
// reports. The notifier listens for resource version advances and queued
// events, marking interested subscriptions dirty; the assembler turns a
// dirty subscription into a report of changed attributes and pending
// events.
package subscribe

import (
	"sync"

	"github.com/backkem/matter-bridge/pkg/bridge"
)

// PeerID identifies the remote subscriber.
type PeerID struct {
	FabricIndex uint8
	NodeID      uint64
}

// Filter selects the resources a subscription covers. An empty resource
// list is a wildcard covering every resource.
type Filter struct {
	Resources []bridge.ResourcePath
}

// Matches reports whether the filter covers path.
func (f Filter) Matches(path bridge.ResourcePath) bool {
	if len(f.Resources) == 0 {
		return true
	}
	for _, r := range f.Resources {
		if r == path {
			return true
		}
	}
	return false
}

// Subscription is one remote peer's standing interest in a set of
// resources. The baseline records the data version last reported per
// resource; the assembler only re-reads resources whose version moved
// past it.
type Subscription struct {
	ID     string
	Peer   PeerID
	Filter Filter

	mu       sync.Mutex
	dirty    bool
	baseline map[bridge.ResourcePath]bridge.DataVersion
}

// Dirty reports whether an unreported change is pending.
func (s *Subscription) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Subscription) markDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// clearDirty resets the dirty mark. Called at the start of assembly, not
// at commit: a change that lands while the assembler is reading must
// leave the subscription dirty for the next round.
func (s *Subscription) clearDirty() {
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
}

// baselineFor returns the last reported version and whether one exists.
func (s *Subscription) baselineFor(path bridge.ResourcePath) (bridge.DataVersion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.baseline[path]
	return v, ok
}

// commit records the reported versions. The dirty mark is untouched;
// see clearDirty.
func (s *Subscription) commit(versions map[bridge.ResourcePath]bridge.DataVersion) {
	s.mu.Lock()
	for path, v := range versions {
		s.baseline[path] = v
	}
	s.mu.Unlock()
}
