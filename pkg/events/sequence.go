package events

import "sync/atomic"

// Sequencer issues node-wide monotonic event numbers. Numbers start at 1
// and never repeat within a process lifetime; they are not persisted
// across restarts.
type Sequencer struct {
	last atomic.Uint64
}

// NewSequencer creates a sequencer whose first issued number is 1.
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Next returns the next event number.
func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current returns the most recently issued number, or 0 if none.
func (s *Sequencer) Current() uint64 {
	return s.last.Load()
}
