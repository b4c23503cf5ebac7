package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrInvalidReading is returned for a sensor message that cannot be used.
var ErrInvalidReading = errors.New("telemetry: invalid sensor reading")

// SensorCache keeps the latest reading per climate sensor.
// All methods are safe for concurrent use.
type SensorCache struct {
	mu       sync.RWMutex
	readings map[string]Reading

	idFromTopic func(topic string) string
	now         func() time.Time
}

// NewSensorCache creates an empty cache. idFromTopic extracts a sensor ID
// from an MQTT topic; it may be nil when payloads always name their sensor.
func NewSensorCache(idFromTopic func(topic string) string) *SensorCache {
	return &SensorCache{
		readings:    make(map[string]Reading),
		idFromTopic: idFromTopic,
		now:         time.Now,
	}
}

// Put stores r, replacing any older reading from the same sensor.
func (c *SensorCache) Put(r Reading) {
	if r.At.IsZero() {
		r.At = c.now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.readings[r.Sensor]; ok && prev.At.After(r.At) {
		return
	}
	c.readings[r.Sensor] = r
}

// Readings returns the latest reading of every sensor ordered by sensor ID.
func (c *SensorCache) Readings() []Reading {
	c.mu.RLock()
	out := make([]Reading, 0, len(c.readings))
	for _, r := range c.readings {
		out = append(out, r)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Sensor < out[j].Sensor })
	return out
}

// Len returns the number of sensors seen.
func (c *SensorCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.readings)
}

// sensorMessage is the payload sensors publish:
//
//	{"temperature": 21.4, "humidity": 48, "name": "Bedroom", "room": "Bedroom"}
type sensorMessage struct {
	Sensor      string   `json:"sensor"`
	Name        string   `json:"name"`
	Room        string   `json:"room"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Timestamp   *int64   `json:"timestamp"`
}

// HandleMessage ingests one MQTT sensor message. Its signature matches the
// MQTT client's message handler.
func (c *SensorCache) HandleMessage(topic string, payload []byte) error {
	var msg sensorMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidReading, err)
	}
	if msg.Temperature == nil {
		return fmt.Errorf("%w: missing temperature", ErrInvalidReading)
	}

	id := msg.Sensor
	if c.idFromTopic != nil {
		if fromTopic := c.idFromTopic(topic); fromTopic != "" {
			id = fromTopic
		}
	}
	if id == "" {
		return fmt.Errorf("%w: no sensor id in topic %q", ErrInvalidReading, topic)
	}

	r := Reading{
		Sensor:      id,
		Name:        msg.Name,
		Room:        msg.Room,
		Temperature: *msg.Temperature,
		Humidity:    msg.Humidity,
	}
	if msg.Timestamp != nil {
		r.At = time.Unix(*msg.Timestamp, 0)
	}
	c.Put(r)
	return nil
}
