// Package mqttsource feeds the bridge from zigbee2mqtt devices: contact
// sensors, occupancy sensors, temperature sensors, and remote switches
// publishing on an MQTT broker.
package mqttsource

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/pion/logging"
)

// Config configures the MQTT source client.
type Config struct {
	// BrokerURL is the broker address (e.g., "tcp://127.0.0.1:1883").
	BrokerURL string

	// ClientID identifies this client to the broker. Empty means a
	// generated one.
	ClientID string

	// Username and Password authenticate to the broker (optional).
	Username string
	Password string

	// LoggerFactory creates the client's logger. If nil, logging is
	// disabled.
	LoggerFactory logging.LoggerFactory
}

// Client is a thin wrapper around the paho MQTT client shared by all
// MQTT-backed data sources.
type Client struct {
	client mqtt.Client
	log    logging.LeveledLogger
}

// NewClient creates a client; Connect must be called before use.
func NewClient(config Config) *Client {
	clientID := config.ClientID
	if clientID == "" {
		clientID = "matter-bridge-" + uuid.NewString()
	}

	opts := mqtt.NewClientOptions().
		AddBroker(config.BrokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true)
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}

	c := &Client{client: mqtt.NewClient(opts)}
	if config.LoggerFactory != nil {
		c.log = config.LoggerFactory.NewLogger("mqtt")
	}
	return c
}

// Connect establishes the broker connection.
func (c *Client) Connect() error {
	token := c.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqttsource: connect: %w", err)
	}
	if c.log != nil {
		c.log.Info("connected to MQTT broker")
	}
	return nil
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.client.Disconnect(250)
}

// Subscribe registers a handler for a topic at QoS 0.
func (c *Client) Subscribe(topic string, handler func(payload []byte)) error {
	token := c.client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqttsource: subscribe %s: %w", topic, err)
	}
	if c.log != nil {
		c.log.Debugf("subscribed to %s", topic)
	}
	return nil
}

// PublishState publishes a zigbee2mqtt set command ({"state":"ON"}) to
// topic/set.
func (c *Client) PublishState(topic string, on bool) error {
	state := "OFF"
	if on {
		state = "ON"
	}
	payload, err := json.Marshal(map[string]string{"state": state})
	if err != nil {
		return err
	}

	token := c.client.Publish(topic+"/set", 0, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqttsource: publish %s/set: %w", topic, err)
	}
	return nil
}
