package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/nerrad567/homedash/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled:     true,
		Broker:      config.MQTTBrokerConfig{Host: "127.0.0.1", Port: 1883, ClientID: "homedash-test"},
		QoS:         1,
		TopicPrefix: "homedash",
		Reconnect:   config.MQTTReconnectConfig{InitialDelay: 1, MaxDelay: 5},
	}
}

func TestTopics(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"status", Topics{Prefix: "homedash"}.SystemStatus(), "homedash/system/status"},
		{"telemetry", Topics{Prefix: "homedash"}.Telemetry("light"), "homedash/telemetry/light"},
		{"sensor", Topics{Prefix: "home"}.ClimateSensorState("hall"), "home/climate/hall/state"},
		{"wildcard", Topics{Prefix: "home/"}.AllClimateSensorStates(), "home/climate/+/state"},
		{"empty prefix", Topics{}.Telemetry("climate"), "homedash/telemetry/climate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestSensorIDFromTopic(t *testing.T) {
	topics := Topics{Prefix: "homedash"}
	tests := []struct {
		topic string
		want  string
	}{
		{"homedash/climate/bedroom/state", "bedroom"},
		{"homedash/climate//state", ""},
		{"homedash/climate/a/b/state", ""},
		{"other/climate/bedroom/state", ""},
		{"homedash/climate/bedroom", ""},
	}
	for _, tt := range tests {
		if got := topics.SensorIDFromTopic(tt.topic); got != tt.want {
			t.Errorf("SensorIDFromTopic(%q) = %q, want %q", tt.topic, got, tt.want)
		}
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "dash", Password: "secret"}

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != "homedash-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "dash" || opts.Password != "secret" {
		t.Errorf("credentials not applied")
	}

	cfg.Broker.TLS = true
	opts = buildClientOptions(cfg)
	if opts.Servers[0].Scheme != "ssl" {
		t.Errorf("TLS scheme = %q, want ssl", opts.Servers[0].Scheme)
	}
	if opts.TLSConfig == nil {
		t.Error("TLSConfig not set for TLS broker")
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, Topics{Prefix: "homedash"}, "homedash-test")

	if !opts.WillEnabled || !opts.WillRetained {
		t.Fatal("LWT should be enabled and retained")
	}
	if opts.WillTopic != "homedash/system/status" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}

	var payload map[string]string
	if err := json.Unmarshal(opts.WillPayload, &payload); err != nil {
		t.Fatalf("will payload not JSON: %v", err)
	}
	if payload["status"] != "offline" || payload["reason"] != "unexpected_disconnect" {
		t.Errorf("will payload = %v", payload)
	}
}

func TestStatusPayload(t *testing.T) {
	var online map[string]string
	if err := json.Unmarshal([]byte(statusPayload("online", "c1", "")), &online); err != nil {
		t.Fatalf("online payload: %v", err)
	}
	if _, hasReason := online["reason"]; hasReason {
		t.Error("online payload should omit reason")
	}
	if online["client_id"] != "c1" || online["timestamp"] == "" {
		t.Errorf("online payload = %v", online)
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	if _, err := Connect(cfg); !errors.Is(err, ErrDisabled) {
		t.Fatalf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestOperationsWithoutConnection(t *testing.T) {
	c := newClient(testConfig())

	if err := c.Publish("homedash/x", []byte("{}"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
	if err := c.Publish("", nil, 1, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish(empty) error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("t", nil, 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish(qos 3) error = %v, want ErrInvalidQoS", err)
	}
	if err := c.Publish("t", make([]byte, maxPayloadSize+1), 0, false); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish(oversize) error = %v, want ErrPublishFailed", err)
	}
	if err := c.Subscribe("t", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) error = %v, want ErrSubscribeFailed", err)
	}
	if err := c.PublishTelemetry("light", map[string]int{"on_count": 1}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishTelemetry() error = %v, want ErrNotConnected", err)
	}
	if err := c.PublishTelemetry("light", make(chan int)); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("PublishTelemetry(unencodable) error = %v, want ErrPublishFailed", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true for unconnected client")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func TestWrapHandler(t *testing.T) {
	c := newClient(testConfig())
	logger := &recordingLogger{}
	c.SetLogger(logger)

	var got string
	c.wrapHandler(func(topic string, payload []byte) error {
		got = topic + "=" + string(payload)
		return nil
	})(nil, fakeMessage{topic: "homedash/climate/hall/state", payload: []byte("21")})
	if got != "homedash/climate/hall/state=21" {
		t.Errorf("handler received %q", got)
	}

	c.wrapHandler(func(string, []byte) error {
		return fmt.Errorf("bad reading")
	})(nil, fakeMessage{topic: "t"})

	c.wrapHandler(func(string, []byte) error {
		panic("boom")
	})(nil, fakeMessage{topic: "t"})

	if len(logger.warns) != 1 {
		t.Errorf("warns = %v, want one handler error", logger.warns)
	}
	if len(logger.errors) != 1 {
		t.Errorf("errors = %v, want one recovered panic", logger.errors)
	}
}
