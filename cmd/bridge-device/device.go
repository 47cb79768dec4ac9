package main

import (
	"fmt"
	"path/filepath"

	"github.com/pion/logging"

	"github.com/backkem/matter-bridge/pkg/bridge"
	"github.com/backkem/matter-bridge/pkg/checkin"
	"github.com/backkem/matter-bridge/pkg/clusters/booleanstate"
	"github.com/backkem/matter-bridge/pkg/clusters/genericswitch"
	"github.com/backkem/matter-bridge/pkg/clusters/icdmgmt"
	"github.com/backkem/matter-bridge/pkg/clusters/occupancy"
	"github.com/backkem/matter-bridge/pkg/clusters/onoff"
	"github.com/backkem/matter-bridge/pkg/clusters/temperature"
	"github.com/backkem/matter-bridge/pkg/config"
	"github.com/backkem/matter-bridge/pkg/events"
	"github.com/backkem/matter-bridge/pkg/inputs/mqttsource"
	"github.com/backkem/matter-bridge/pkg/inputs/natssource"
	"github.com/backkem/matter-bridge/pkg/inputs/sim"
	"github.com/backkem/matter-bridge/pkg/subscribe"
	"github.com/backkem/matter-bridge/pkg/transport"
)

// checkInStateFile holds the persisted check-in registry inside
// Config.StorageDir.
const checkInStateFile = "checkin.cbor"

// Device composes the bridge: dispatcher, subscription plumbing, event
// queues, the check-in engine, and one cluster per configured device.
type Device struct {
	cfg *config.Config
	lf  logging.LoggerFactory
	log logging.LeveledLogger

	dispatcher *bridge.Dispatcher
	notifier   *subscribe.Notifier
	assembler  *subscribe.Assembler
	sequencer  *events.Sequencer
	aggregator *events.Aggregator

	udp    *transport.UDP
	engine *checkin.Engine

	mqttClient *mqttsource.Client
	natsSource *natssource.Source
	simulator  *sim.Simulator
}

// NewDevice builds the full device from its configuration. Message-bus
// connections are established eagerly so a bad broker address fails at
// startup instead of at first use.
func NewDevice(cfg *config.Config, lf logging.LoggerFactory) (*Device, error) {
	d := &Device{
		cfg:        cfg,
		lf:         lf,
		log:        lf.NewLogger("device"),
		sequencer:  events.NewSequencer(),
		aggregator: events.NewAggregator(),
	}

	d.notifier = subscribe.NewNotifier(subscribe.NotifierConfig{LoggerFactory: lf})
	d.dispatcher = bridge.NewDispatcher(bridge.DispatcherConfig{
		Listener:      d.notifier,
		LoggerFactory: lf,
	})

	registry, err := checkin.OpenRegistry(checkin.RegistryConfig{
		Storage:       checkin.NewFileStorage(filepath.Join(cfg.StorageDir, checkInStateFile)),
		LoggerFactory: lf,
	})
	if err != nil {
		return nil, fmt.Errorf("open check-in registry: %w", err)
	}

	d.udp, err = transport.NewUDP(transport.UDPConfig{
		ListenAddr:    cfg.CheckIn.ListenAddr,
		LoggerFactory: lf,
	})
	if err != nil {
		return nil, fmt.Errorf("bind UDP transport: %w", err)
	}

	d.engine = checkin.NewEngine(checkin.EngineConfig{
		Registry:            registry,
		Sender:              d.udp,
		CheckInInterval:     cfg.CheckIn.Interval.Std(),
		ActiveModeThreshold: cfg.CheckIn.ActiveModeThreshold.Std(),
		StayActiveMax:       cfg.CheckIn.StayActiveMax.Std(),
		LoggerFactory:       lf,
	})

	// ICD Management lives on the root endpoint.
	d.dispatcher.RegisterCluster(icdmgmt.New(icdmgmt.Config{
		EndpointID: 0,
		Engine:     d.engine,
		Registry:   registry,
	}))

	for _, spec := range cfg.Devices {
		if err := d.addDevice(spec); err != nil {
			return nil, fmt.Errorf("device %q: %w", spec.Name, err)
		}
	}

	d.assembler = subscribe.NewAssembler(d.dispatcher, d.aggregator)
	return d, nil
}

// addDevice creates the cluster for one configured device and wires it to
// its data source.
func (d *Device) addDevice(spec config.DeviceSpec) error {
	endpoint := bridge.EndpointID(spec.Endpoint)

	switch spec.Type {
	case config.DeviceContact:
		handler, err := d.boolSource(spec, "contact")
		if err != nil {
			return err
		}
		d.dispatcher.RegisterCluster(booleanstate.New(booleanstate.Config{
			EndpointID: endpoint,
			Handler:    handler,
			Events:     d.newQueue(endpoint, booleanstate.ClusterID),
		}))

	case config.DeviceOccupancy:
		handler, err := d.boolSource(spec, "occupancy")
		if err != nil {
			return err
		}
		d.dispatcher.RegisterCluster(occupancy.New(occupancy.Config{
			EndpointID: endpoint,
			Handler:    handler,
		}))

	case config.DeviceTemperature:
		handler, err := d.temperatureSource(spec)
		if err != nil {
			return err
		}
		d.dispatcher.RegisterCluster(temperature.New(temperature.Config{
			EndpointID: endpoint,
			Handler:    handler,
		}))

	case config.DeviceSwitch:
		handler, err := d.switchableSource(spec)
		if err != nil {
			return err
		}
		d.dispatcher.RegisterCluster(onoff.New(onoff.Config{
			EndpointID: endpoint,
			Handler:    handler,
		}))

	case config.DeviceRemote:
		cluster := genericswitch.New(genericswitch.Config{
			EndpointID: endpoint,
			Events:     d.newQueue(endpoint, genericswitch.ClusterID),
		})
		client, err := d.mqtt()
		if err != nil {
			return err
		}
		if err := client.RemoteSwitch(spec.Topic, cluster); err != nil {
			return err
		}
		d.dispatcher.RegisterCluster(cluster)

	default:
		return fmt.Errorf("unknown device type %q", spec.Type)
	}

	d.log.Infof("endpoint %d: %s %q via %s", spec.Endpoint, spec.Type, spec.Name, spec.Source)
	return nil
}

// newQueue creates the event queue for a resource, hooked into the
// subscription notifier and registered with the aggregator.
func (d *Device) newQueue(endpoint bridge.EndpointID, cluster bridge.ClusterID) *events.Queue {
	q := events.NewQueue(events.QueueConfig{
		Resource:      bridge.ResourcePath{Endpoint: endpoint, Cluster: cluster},
		Sequencer:     d.sequencer,
		OnRecord:      d.notifier.OnEventQueued,
		LoggerFactory: d.lf,
	})
	d.aggregator.Register(q)
	return q
}

func (d *Device) boolSource(spec config.DeviceSpec, field string) (*bridge.BoolState, error) {
	switch spec.Source {
	case config.SourceMQTT:
		client, err := d.mqtt()
		if err != nil {
			return nil, err
		}
		if field == "occupancy" {
			return client.OccupancySensor(spec.Topic)
		}
		return client.ContactSensor(spec.Topic)
	case config.SourceNATS:
		src, err := d.nats()
		if err != nil {
			return nil, err
		}
		if field == "occupancy" {
			return src.OccupancySensor(spec.Topic)
		}
		return src.ContactSensor(spec.Topic)
	case config.SourceSim:
		return d.sim().ContactSensor(), nil
	default:
		return nil, fmt.Errorf("unknown source %q", spec.Source)
	}
}

func (d *Device) temperatureSource(spec config.DeviceSpec) (*bridge.MeasuredState, error) {
	switch spec.Source {
	case config.SourceMQTT:
		client, err := d.mqtt()
		if err != nil {
			return nil, err
		}
		return client.TemperatureSensor(spec.Topic)
	case config.SourceNATS:
		src, err := d.nats()
		if err != nil {
			return nil, err
		}
		return src.TemperatureSensor(spec.Topic)
	case config.SourceSim:
		return d.sim().TemperatureSensor(2100, 1800, 2600), nil
	default:
		return nil, fmt.Errorf("unknown source %q", spec.Source)
	}
}

func (d *Device) switchableSource(spec config.DeviceSpec) (*bridge.BoolState, error) {
	switch spec.Source {
	case config.SourceMQTT:
		client, err := d.mqtt()
		if err != nil {
			return nil, err
		}
		return client.Switchable(spec.Topic)
	case config.SourceNATS:
		src, err := d.nats()
		if err != nil {
			return nil, err
		}
		return src.Switchable(spec.Topic)
	case config.SourceSim:
		// A simulated switch accepts every command and just tracks state.
		return &bridge.BoolState{Writable: func(bool) error { return nil }}, nil
	default:
		return nil, fmt.Errorf("unknown source %q", spec.Source)
	}
}

func (d *Device) mqtt() (*mqttsource.Client, error) {
	if d.mqttClient == nil {
		client := mqttsource.NewClient(mqttsource.Config{
			BrokerURL:     d.cfg.MQTT.BrokerURL,
			ClientID:      d.cfg.MQTT.ClientID,
			Username:      d.cfg.MQTT.Username,
			Password:      d.cfg.MQTT.Password,
			LoggerFactory: d.lf,
		})
		if err := client.Connect(); err != nil {
			return nil, err
		}
		d.mqttClient = client
	}
	return d.mqttClient, nil
}

func (d *Device) nats() (*natssource.Source, error) {
	if d.natsSource == nil {
		src, err := natssource.Connect(natssource.Config{
			URL:           d.cfg.NATS.URL,
			Name:          d.cfg.NATS.Name,
			LoggerFactory: d.lf,
		})
		if err != nil {
			return nil, err
		}
		d.natsSource = src
	}
	return d.natsSource, nil
}

func (d *Device) sim() *sim.Simulator {
	if d.simulator == nil {
		d.simulator = sim.New(sim.Config{
			Interval:      d.cfg.SimInterval.Std(),
			LoggerFactory: d.lf,
		})
	}
	return d.simulator
}

// Start binds the transport and begins the check-in cycle.
func (d *Device) Start() error {
	if err := d.udp.Start(); err != nil {
		return err
	}
	if err := d.engine.Start(); err != nil {
		return err
	}
	d.log.Infof("bridge device up, %d resources, UDP on %s",
		len(d.dispatcher.Resources()), d.udp.LocalAddr())
	return nil
}

// Stop shuts down sources, the check-in engine, and the transport.
func (d *Device) Stop() {
	if d.simulator != nil {
		d.simulator.Stop()
	}
	if d.mqttClient != nil {
		d.mqttClient.Close()
	}
	if d.natsSource != nil {
		d.natsSource.Close()
	}
	d.engine.Stop()
	if err := d.udp.Stop(); err != nil {
		d.log.Warnf("UDP stop: %v", err)
	}
}

// Assembler exposes the report assembler for the subscription layer.
func (d *Device) Assembler() *subscribe.Assembler { return d.assembler }

// Notifier exposes the subscription notifier.
func (d *Device) Notifier() *subscribe.Notifier { return d.notifier }
