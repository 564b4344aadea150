package front

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/fluxgatelabs/coilscope/internal/bus"
	"github.com/fluxgatelabs/coilscope/pkg/logging"
)

// MQTTConfig configures the MQTT front end
type MQTTConfig struct {
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	Broker      string `json:"broker" mapstructure:"broker"`
	Username    string `json:"username" mapstructure:"username"`
	Password    string `json:"password" mapstructure:"password"`
	TopicPrefix string `json:"topic_prefix" mapstructure:"topic_prefix"`
	QoS         byte   `json:"qos" mapstructure:"qos"`
}

// MQTTPublisher mirrors engine egress to an MQTT broker and relays
// calculation commands arriving on the command topic back onto the bus
type MQTTPublisher struct {
	cfg    MQTTConfig
	b      *bus.Bus
	logger logging.Logger
	client mqtt.Client
}

// NewMQTTPublisher creates the MQTT front end and connects to the broker
func NewMQTTPublisher(cfg MQTTConfig, b *bus.Bus, logger logging.Logger) (*MQTTPublisher, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker address is required")
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "coilscope"
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	logger = logger.WithFields(logging.Fields{"component": "mqtt"})

	p := &MQTTPublisher{cfg: cfg, b: b, logger: logger}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID("coilscope_" + uuid.NewString()[:8])
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Info("connected to broker", logging.Fields{"broker": cfg.Broker})
		p.subscribeCommands(client)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Error(err, "connection lost")
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	p.client = client
	return p, nil
}

// Name returns the front end's identity for supervision logs
func (p *MQTTPublisher) Name() string { return "mqtt" }

// Run mirrors egress messages to the broker until ctx is cancelled
func (p *MQTTPublisher) Run(ctx context.Context) error {
	sub := p.b.Subscribe(bus.EngineEgress()...)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			p.client.Disconnect(250)
			p.logger.Info("mqtt publisher stopped")
			return nil
		case msg, ok := <-sub.C:
			if !ok {
				p.client.Disconnect(250)
				return nil
			}
			p.publish(msg)
		}
	}
}

func (p *MQTTPublisher) publish(msg bus.Message) {
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		p.logger.Error(err, "payload not encodable", logging.Fields{"topic": msg.Topic})
		return
	}

	token := p.client.Publish(p.brokerTopic(msg.Topic), p.cfg.QoS, false, data)
	// Fire and forget: delivery failures surface through the paho
	// connection-lost handler, not per message.
	go func() {
		if token.Wait() && token.Error() != nil {
			p.logger.Warn("publish failed", logging.Fields{
				"topic": msg.Topic,
				"error": token.Error().Error(),
			})
		}
	}()
}

// subscribeCommands is installed on every (re)connect so the command
// subscription survives broker restarts
func (p *MQTTPublisher) subscribeCommands(client mqtt.Client) {
	topic := p.brokerTopic(bus.TopicCalculationCommand)
	token := client.Subscribe(topic, p.cfg.QoS, func(_ mqtt.Client, m mqtt.Message) {
		var payload map[string]any
		if err := json.Unmarshal(m.Payload(), &payload); err != nil {
			p.logger.Warn("discarding malformed command", logging.Fields{"topic": m.Topic()})
			return
		}
		p.b.Publish(bus.Message{
			Topic:    bus.TopicCalculationCommand,
			Payload:  payload,
			Metadata: map[string]any{"origin": "mqtt"},
		})
	})

	go func() {
		if token.Wait() && token.Error() != nil {
			p.logger.Error(token.Error(), "command subscription failed", logging.Fields{"topic": topic})
		}
	}()
}

// brokerTopic maps a bus topic onto the broker's namespace, e.g.
// bfield/data becomes coilscope/bfield/data
func (p *MQTTPublisher) brokerTopic(busTopic string) string {
	return strings.TrimSuffix(p.cfg.TopicPrefix, "/") + "/" + busTopic
}
