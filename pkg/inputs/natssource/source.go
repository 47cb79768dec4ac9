// Package natssource feeds the bridge from devices publishing telemetry
// on NATS subjects. Payloads use the same JSON shapes as the MQTT
// sources, so both buses can back the same clusters.
package natssource

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/pion/logging"

	"github.com/backkem/matter-bridge/pkg/bridge"
	"github.com/backkem/matter-bridge/pkg/inputs/mqttsource"
)

// Config configures the NATS source.
type Config struct {
	// URL is the NATS server address (e.g., nats.DefaultURL).
	URL string

	// Name identifies this connection to the server (optional).
	Name string

	// LoggerFactory creates the source's logger. If nil, logging is
	// disabled.
	LoggerFactory logging.LoggerFactory
}

// Source is a NATS connection shared by all NATS-backed data sources.
type Source struct {
	conn *nats.Conn
	log  logging.LeveledLogger
	subs []*nats.Subscription
}

// Connect establishes the NATS connection.
func Connect(config Config) (*Source, error) {
	var opts []nats.Option
	if config.Name != "" {
		opts = append(opts, nats.Name(config.Name))
	}

	conn, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("natssource: connect: %w", err)
	}

	s := &Source{conn: conn}
	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("nats")
		s.log.Infof("connected to NATS at %s", conn.ConnectedUrl())
	}
	return s, nil
}

// Close drops all subscriptions and the connection.
func (s *Source) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.conn.Close()
}

func (s *Source) subscribe(subject string, handler func(payload []byte)) error {
	sub, err := s.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("natssource: subscribe %s: %w", subject, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// ContactSensor wires a contact telemetry subject to a boolean handler.
func (s *Source) ContactSensor(subject string) (*bridge.BoolState, error) {
	state := &bridge.BoolState{}
	err := s.subscribe(subject, func(payload []byte) {
		contact, err := mqttsource.ParseBoolField(payload, "contact")
		if err != nil {
			if s.log != nil {
				s.log.Warnf("contact payload on %s: %v", subject, err)
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

// OccupancySensor wires an occupancy telemetry subject to a boolean
// handler.
func (s *Source) OccupancySensor(subject string) (*bridge.BoolState, error) {
	state := &bridge.BoolState{}
	err := s.subscribe(subject, func(payload []byte) {
		occupied, err := mqttsource.ParseBoolField(payload, "occupancy")
		if err != nil {
			if s.log != nil {
				s.log.Warnf("occupancy payload on %s: %v", subject, err)
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

// TemperatureSensor wires a temperature subject to a measurement
// handler. Readings arrive in degrees and are stored in hundredths.
func (s *Source) TemperatureSensor(subject string) (*bridge.MeasuredState, error) {
	state := &bridge.MeasuredState{}
	err := s.subscribe(subject, func(payload []byte) {
		degrees, err := mqttsource.ParseNumberField(payload, "temperature")
		if err != nil {
			if s.log != nil {
				s.log.Warnf("temperature payload on %s: %v", subject, err)
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

// Switchable wires a controllable device to a boolean handler whose
// OnCommand publishes the desired state to subject.set.
func (s *Source) Switchable(subject string) (*bridge.BoolState, error) {
	state := &bridge.BoolState{}
	state.Writable = func(on bool) error {
		payload := []byte(`{"state":"OFF"}`)
		if on {
			payload = []byte(`{"state":"ON"}`)
		}
		return s.conn.Publish(subject+".set", payload)
	}
	err := s.subscribe(subject, func(payload []byte) {
		on, err := mqttsource.ParseBoolField(payload, "state")
		if err != nil {
			if s.log != nil {
				s.log.Warnf("state payload on %s: %v", subject, err)
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
