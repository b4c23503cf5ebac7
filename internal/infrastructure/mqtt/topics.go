package mqtt

import "strings"

// DefaultTopicPrefix is used when the configuration leaves topic_prefix empty.
const DefaultTopicPrefix = "homedash"

// Topics builds homedash topic names under a common prefix.
//
//	t := mqtt.Topics{Prefix: "homedash"}
//	t.Telemetry("light") // "homedash/telemetry/light"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	p := strings.TrimSuffix(t.Prefix, "/")
	if p == "" {
		return DefaultTopicPrefix
	}
	return p
}

// SystemStatus carries the retained online/offline status and the LWT.
func (t Topics) SystemStatus() string {
	return t.prefix() + "/system/status"
}

// Telemetry carries the latest aggregate for a device category (light, climate).
// Messages are retained so new subscribers see the current summary.
func (t Topics) Telemetry(category string) string {
	return t.prefix() + "/telemetry/" + category
}

// ClimateSensorState is where a climate sensor publishes its readings.
func (t Topics) ClimateSensorState(sensorID string) string {
	return t.prefix() + "/climate/" + sensorID + "/state"
}

// AllClimateSensorStates matches every sensor under ClimateSensorState.
func (t Topics) AllClimateSensorStates() string {
	return t.prefix() + "/climate/+/state"
}

// SensorIDFromTopic extracts the single-level wildcard segment of a
// ClimateSensorState topic. It returns "" for topics of any other shape.
func (t Topics) SensorIDFromTopic(topic string) string {
	rest, ok := strings.CutPrefix(topic, t.prefix()+"/climate/")
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, "/state")
	if !ok || id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
