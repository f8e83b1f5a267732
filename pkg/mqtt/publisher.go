package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/dbehnke/pccc/pkg/logger"
)

const connectTimeout = 10 * time.Second

// Config holds MQTT publisher configuration
type Config struct {
	Enabled     bool
	Broker      string
	TopicPrefix string
	ClientID    string
	Username    string
	Password    string
	QoS         byte
	Retained    bool
}

// Publisher publishes benchmark run events to an MQTT broker
type Publisher struct {
	config Config
	log    *logger.Logger

	newClient func(*paho.ClientOptions) paho.Client

	mu     sync.RWMutex
	client paho.Client
}

// Event types for MQTT publishing

// RunStartedEvent is published when a benchmark run begins
type RunStartedEvent struct {
	RunID       string    `json:"run_id"`
	BlockSize   int       `json:"block_size"`
	Polynomials [2]int    `json:"polynomials"`
	Algorithm   string    `json:"algorithm"`
	Iterations  int       `json:"iterations"`
	Precision   string    `json:"precision"`
	EbN0dB      *float64  `json:"ebn0_db,omitempty"`
	Trials      int       `json:"trials"`
	Timestamp   time.Time `json:"timestamp"`
}

// RunCompletedEvent is published when a benchmark run finishes
type RunCompletedEvent struct {
	RunID        string    `json:"run_id"`
	BlockSize    int       `json:"block_size"`
	Algorithm    string    `json:"algorithm"`
	Precision    string    `json:"precision"`
	EbN0dB       *float64  `json:"ebn0_db,omitempty"`
	Trials       int       `json:"trials"`
	BitErrors    int64     `json:"bit_errors"`
	BlockErrors  int64     `json:"block_errors"`
	BER          float64   `json:"ber"`
	BLER         float64   `json:"bler"`
	MeanDecodeMs float64   `json:"mean_decode_ms"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// New creates a new MQTT publisher
func New(config Config, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.New(logger.Config{Level: "info", Format: "text"})
	}

	return &Publisher{
		config:    config,
		log:       log.WithComponent("mqtt"),
		newClient: paho.NewClient,
	}
}

// Start connects to the broker when publishing is enabled
func (p *Publisher) Start(ctx context.Context) error {
	if !p.config.Enabled {
		p.log.Info("MQTT publisher disabled")
		return nil
	}

	p.log.Info("Starting MQTT publisher",
		logger.String("broker", p.config.Broker),
		logger.String("client_id", p.config.ClientID))

	opts := paho.NewClientOptions()
	opts.AddBroker(p.config.Broker)
	opts.SetClientID(p.config.ClientID)
	if p.config.Username != "" {
		opts.SetUsername(p.config.Username)
	}
	if p.config.Password != "" {
		opts.SetPassword(p.config.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		p.log.Warn("MQTT connection lost", logger.Error(err))
	})
	opts.SetOnConnectHandler(func(_ paho.Client) {
		p.log.Info("MQTT connected", logger.String("broker", p.config.Broker))
	})

	client := p.newClient(opts)
	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(connectTimeout):
		return fmt.Errorf("timed out connecting to MQTT broker %s", p.config.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	p.mu.Lock()
	p.client = client
	p.mu.Unlock()
	return nil
}

// Stop disconnects from the broker
func (p *Publisher) Stop() {
	p.mu.Lock()
	client := p.client
	p.client = nil
	p.mu.Unlock()

	if client == nil {
		return
	}
	p.log.Info("Stopping MQTT publisher")
	client.Disconnect(250)
}

// PublishRunStarted publishes a run start event
func (p *Publisher) PublishRunStarted(event RunStartedEvent) error {
	if !p.config.Enabled {
		return nil
	}

	topic := p.formatTopic("runs/started")
	return p.publish(topic, event)
}

// PublishRunCompleted publishes a run completion event
func (p *Publisher) PublishRunCompleted(event RunCompletedEvent) error {
	if !p.config.Enabled {
		return nil
	}

	topic := p.formatTopic("runs/completed")
	return p.publish(topic, event)
}

// publish publishes an event to a topic
func (p *Publisher) publish(topic string, event interface{}) error {
	payload, err := p.serializeEvent(event)
	if err != nil {
		p.log.Error("Failed to serialize event",
			logger.String("topic", topic),
			logger.Error(err))
		return err
	}

	p.mu.RLock()
	client := p.client
	p.mu.RUnlock()
	if client == nil || !client.IsConnected() {
		p.log.Debug("MQTT not connected, dropping event", logger.String("topic", topic))
		return nil
	}

	token := client.Publish(topic, p.config.QoS, p.config.Retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("timed out publishing to %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	p.log.Debug("Published MQTT event",
		logger.String("topic", topic),
		logger.Int("payload_size", len(payload)))
	return nil
}

// serializeEvent serializes an event to JSON
func (p *Publisher) serializeEvent(event interface{}) ([]byte, error) {
	return json.Marshal(event)
}

// formatTopic formats a topic with the configured prefix
func (p *Publisher) formatTopic(suffix string) string {
	prefix := strings.TrimSuffix(p.config.TopicPrefix, "/")
	if prefix == "" {
		return suffix
	}
	return fmt.Sprintf("%s/%s", prefix, suffix)
}
