package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/dbehnke/pccc/pkg/logger"
)

// fakeToken is a completed paho token
type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient records publishes; unused methods panic through the nil embedded interface
type fakeClient struct {
	paho.Client

	connectErr   error
	mu           sync.Mutex
	connected    bool
	messages     []published
	disconnected bool
}

func (c *fakeClient) Connect() paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = c.connectErr == nil
	return &fakeToken{err: c.connectErr}
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.disconnected = true
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic, qos, retained, payload.([]byte)})
	return &fakeToken{}
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error"})
}

// TestNewPublisher tests creating a new MQTT publisher
func TestNewPublisher(t *testing.T) {
	config := Config{
		Enabled:     true,
		Broker:      "tcp://localhost:1883",
		TopicPrefix: "pccc/test",
		ClientID:    "test-client",
		QoS:         1,
	}

	pub := New(config, nil)
	if pub == nil {
		t.Fatal("Expected non-nil publisher")
	}
	if pub.config.Broker != config.Broker {
		t.Errorf("Expected broker %s, got %s", config.Broker, pub.config.Broker)
	}
}

// TestPublisher_DisabledIsNoop tests that a disabled publisher never touches a client
func TestPublisher_DisabledIsNoop(t *testing.T) {
	pub := New(Config{Enabled: false, TopicPrefix: "pccc/test"}, quietLogger())
	pub.newClient = func(*paho.ClientOptions) paho.Client {
		t.Fatal("client created while disabled")
		return nil
	}

	if err := pub.Start(context.Background()); err != nil {
		t.Errorf("Expected no error when disabled, got %v", err)
	}
	if err := pub.PublishRunStarted(RunStartedEvent{RunID: "r1", Timestamp: time.Now()}); err != nil {
		t.Errorf("Expected no error when disabled, got %v", err)
	}
	if err := pub.PublishRunCompleted(RunCompletedEvent{RunID: "r1", Timestamp: time.Now()}); err != nil {
		t.Errorf("Expected no error when disabled, got %v", err)
	}

	// Should not panic when stopping without starting
	pub.Stop()
}

// TestPublisher_PublishesRunEvents tests the enabled path against a fake client
func TestPublisher_PublishesRunEvents(t *testing.T) {
	client := &fakeClient{}
	pub := New(Config{Enabled: true, Broker: "tcp://broker:1883", TopicPrefix: "pccc/test/", QoS: 1, Retained: true}, quietLogger())
	pub.newClient = func(opts *paho.ClientOptions) paho.Client {
		if len(opts.Servers) != 1 || opts.Servers[0].Host != "broker:1883" {
			t.Errorf("unexpected broker list %v", opts.Servers)
		}
		return client
	}

	if err := pub.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ebn0 := 1.5
	if err := pub.PublishRunStarted(RunStartedEvent{RunID: "r1", BlockSize: 64, Algorithm: "log-map", EbN0dB: &ebn0}); err != nil {
		t.Fatalf("PublishRunStarted failed: %v", err)
	}
	if err := pub.PublishRunCompleted(RunCompletedEvent{RunID: "r1", BitErrors: 3, BER: 0.01}); err != nil {
		t.Fatalf("PublishRunCompleted failed: %v", err)
	}

	if len(client.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(client.messages))
	}
	if got := client.messages[0].topic; got != "pccc/test/runs/started" {
		t.Errorf("unexpected topic %q", got)
	}
	if got := client.messages[1].topic; got != "pccc/test/runs/completed" {
		t.Errorf("unexpected topic %q", got)
	}
	if client.messages[0].qos != 1 || !client.messages[0].retained {
		t.Errorf("qos/retained not applied: %+v", client.messages[0])
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(client.messages[0].payload, &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded["run_id"] != "r1" || decoded["ebn0_db"] != 1.5 {
		t.Errorf("unexpected payload %v", decoded)
	}

	pub.Stop()
	if !client.disconnected {
		t.Error("expected Stop to disconnect the client")
	}
	// publishing after stop drops the event
	if err := pub.PublishRunStarted(RunStartedEvent{RunID: "r2"}); err != nil {
		t.Errorf("expected dropped event after Stop, got %v", err)
	}
	if len(client.messages) != 2 {
		t.Errorf("expected no further messages after Stop, got %d", len(client.messages))
	}
}

// TestPublisher_ConnectError tests that broker failures surface from Start
func TestPublisher_ConnectError(t *testing.T) {
	boom := errors.New("connection refused")
	pub := New(Config{Enabled: true, Broker: "tcp://broker:1883"}, quietLogger())
	pub.newClient = func(*paho.ClientOptions) paho.Client {
		return &fakeClient{connectErr: boom}
	}

	err := pub.Start(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped connect error, got %v", err)
	}
}

// TestTopicFormat tests topic formatting
func TestTopicFormat(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		suffix   string
		expected string
	}{
		{
			name:     "simple topic",
			prefix:   "pccc/bench",
			suffix:   "runs/started",
			expected: "pccc/bench/runs/started",
		},
		{
			name:     "trailing slash in prefix",
			prefix:   "pccc/bench/",
			suffix:   "runs/started",
			expected: "pccc/bench/runs/started",
		},
		{
			name:     "empty prefix",
			prefix:   "",
			suffix:   "runs/started",
			expected: "runs/started",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := New(Config{TopicPrefix: tt.prefix}, nil)
			topic := pub.formatTopic(tt.suffix)
			if topic != tt.expected {
				t.Errorf("Expected topic %s, got %s", tt.expected, topic)
			}
		})
	}
}
