package poller

import (
	"context"
	"strings"
)

// TelemetryPublisher publishes an aggregate under a category.
// Satisfied by *mqtt.Client.
type TelemetryPublisher interface {
	PublishTelemetry(category string, v any) error
}

// MQTTListener publishes every aggregate of a cycle, retained, so late
// subscribers see the latest values.
type MQTTListener struct {
	pub    TelemetryPublisher
	logger Logger
}

// NewMQTTListener creates a listener publishing through pub.
func NewMQTTListener(pub TelemetryPublisher, logger Logger) *MQTTListener {
	if logger == nil {
		logger = noopLogger{}
	}
	return &MQTTListener{pub: pub, logger: logger}
}

// CycleComplete implements Listener. Fields are published under their
// category: smarthome_light becomes light.
func (m *MQTTListener) CycleComplete(_ context.Context, c Cycle) {
	for field, v := range c.Values {
		category := strings.TrimPrefix(field, "smarthome_")
		if err := m.pub.PublishTelemetry(category, v); err != nil {
			m.logger.Warn("publishing telemetry failed", "category", category, "error", err)
		}
	}
}
