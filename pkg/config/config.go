// Package config loads the bridge-device configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Device types accepted in the devices list.
const (
	DeviceContact     = "contact"
	DeviceOccupancy   = "occupancy"
	DeviceTemperature = "temperature"
	DeviceSwitch      = "switch"
	DeviceRemote      = "remote"
)

// Device sources.
const (
	SourceMQTT = "mqtt"
	SourceNATS = "nats"
	SourceSim  = "sim"
)

// ErrInvalidConfig is wrapped by all validation failures.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Duration is a time.Duration that unmarshals from YAML strings like
// "15m" or "500ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%w: bad duration %q", ErrInvalidConfig, s)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// CheckIn configures the check-in engine and its transport.
type CheckIn struct {
	Interval            Duration `yaml:"interval"`
	ActiveModeThreshold Duration `yaml:"active_mode_threshold"`
	StayActiveMax       Duration `yaml:"stay_active_max"`
	ListenAddr          string   `yaml:"listen_addr"`
}

// MQTT configures the zigbee2mqtt source.
type MQTT struct {
	BrokerURL string `yaml:"broker_url"`
	ClientID  string `yaml:"client_id"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

// NATS configures the NATS source.
type NATS struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
}

// DeviceSpec describes one bridged device and the endpoint it occupies.
type DeviceSpec struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Source   string `yaml:"source"`
	Topic    string `yaml:"topic"`
	Endpoint uint16 `yaml:"endpoint"`
}

// Config is the root bridge-device configuration.
type Config struct {
	LogLevel    string       `yaml:"log_level"`
	StorageDir  string       `yaml:"storage_dir"`
	CheckIn     CheckIn      `yaml:"checkin"`
	MQTT        MQTT         `yaml:"mqtt"`
	NATS        NATS         `yaml:"nats"`
	SimInterval Duration     `yaml:"sim_interval"`
	Devices     []DeviceSpec `yaml:"devices"`
}

// Default returns the configuration used when no file is given: a pair
// of simulated devices and local storage.
func Default() *Config {
	return &Config{
		LogLevel:   "info",
		StorageDir: "./data",
		Devices: []DeviceSpec{
			{Name: "sim-contact", Type: DeviceContact, Source: SourceSim, Endpoint: 1},
			{Name: "sim-temperature", Type: DeviceTemperature, Source: SourceSim, Endpoint: 2},
		},
	}
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	cfg.Devices = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.StorageDir == "" {
		return fmt.Errorf("%w: storage_dir is required", ErrInvalidConfig)
	}

	endpoints := make(map[uint16]string)
	for i, d := range c.Devices {
		if d.Name == "" {
			return fmt.Errorf("%w: devices[%d] has no name", ErrInvalidConfig, i)
		}

		switch d.Type {
		case DeviceContact, DeviceOccupancy, DeviceTemperature, DeviceSwitch, DeviceRemote:
		default:
			return fmt.Errorf("%w: device %q has unknown type %q", ErrInvalidConfig, d.Name, d.Type)
		}

		if d.Type == DeviceRemote && d.Source != SourceMQTT {
			return fmt.Errorf("%w: device %q: remote switches need an mqtt source", ErrInvalidConfig, d.Name)
		}

		switch d.Source {
		case SourceMQTT:
			if c.MQTT.BrokerURL == "" {
				return fmt.Errorf("%w: device %q needs mqtt.broker_url", ErrInvalidConfig, d.Name)
			}
			if d.Topic == "" {
				return fmt.Errorf("%w: device %q has no topic", ErrInvalidConfig, d.Name)
			}
		case SourceNATS:
			if c.NATS.URL == "" {
				return fmt.Errorf("%w: device %q needs nats.url", ErrInvalidConfig, d.Name)
			}
			if d.Topic == "" {
				return fmt.Errorf("%w: device %q has no topic", ErrInvalidConfig, d.Name)
			}
		case SourceSim:
		default:
			return fmt.Errorf("%w: device %q has unknown source %q", ErrInvalidConfig, d.Name, d.Source)
		}

		if d.Endpoint == 0 {
			return fmt.Errorf("%w: device %q needs an endpoint above 0", ErrInvalidConfig, d.Name)
		}
		if other, taken := endpoints[d.Endpoint]; taken {
			return fmt.Errorf("%w: devices %q and %q share endpoint %d", ErrInvalidConfig, other, d.Name, d.Endpoint)
		}
		endpoints[d.Endpoint] = d.Name
	}
	return nil
}
