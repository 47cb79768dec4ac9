// Package sim provides simulated data sources for demos and development:
// a contact sensor that toggles on an interval and a temperature sensor
// on a bounded random walk.
package sim

import (
	"math/rand"
	"sync"
	"time"

	"github.com/pion/logging"

	"github.com/backkem/matter-bridge/pkg/bridge"
)

// DefaultInterval spaces simulated updates.
const DefaultInterval = 30 * time.Second

// Config configures the simulator.
type Config struct {
	// Interval between simulated updates. Zero means DefaultInterval.
	Interval time.Duration

	// LoggerFactory creates the simulator's logger. If nil, logging is
	// disabled.
	LoggerFactory logging.LoggerFactory
}

// Simulator drives its handlers from timers instead of a real bus.
type Simulator struct {
	interval time.Duration
	log      logging.LeveledLogger

	mu      sync.Mutex
	stopped bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New creates a simulator. Sources start ticking immediately.
func New(config Config) *Simulator {
	s := &Simulator{
		interval: config.Interval,
		stopCh:   make(chan struct{}),
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("sim")
	}
	return s
}

// Stop halts all simulated sources.
func (s *Simulator) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Simulator) run(tick func()) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				tick()
			}
		}
	}()
}

// ContactSensor returns a boolean handler that toggles every interval.
func (s *Simulator) ContactSensor() *bridge.BoolState {
	state := &bridge.BoolState{}
	s.run(func() {
		v := state.Toggle()
		if s.log != nil {
			s.log.Debugf("simulated contact -> %v", v)
		}
	})
	return state
}

// TemperatureSensor returns a measurement handler random-walking around
// start, in hundredths of a degree, staying within [min, max].
func (s *Simulator) TemperatureSensor(start, min, max int16) *bridge.MeasuredState {
	state := &bridge.MeasuredState{}
	state.Set(start)

	current := start
	s.run(func() {
		step := int16(rand.Intn(101) - 50)
		next := current + step
		if next < min {
			next = min
		}
		if next > max {
			next = max
		}
		current = next
		state.Set(next)
		if s.log != nil {
			s.log.Debugf("simulated temperature -> %d", next)
		}
	})
	return state
}
