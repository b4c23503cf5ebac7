package device

import (
	"fmt"
	"strconv"
	"time"
)

// ColorMode is how a light is currently producing colour.
type ColorMode string

const (
	ColorModeTemperature ColorMode = "temperature"
	ColorModeColor       ColorMode = "color"
)

// ConnState is the connection lifecycle of a registry entry.
type ConnState string

const (
	StateUnknown    ConnState = "unknown"
	StateConnecting ConnState = "connecting"
	StateConnected  ConnState = "connected"
)

// DefaultIcon is shown for lights without a configured icon.
const DefaultIcon = "lightbulb"

// Device is a point-in-time view of one light.
type Device struct {
	// ID is the network address, "ip:port".
	ID     string `json:"id"`
	Addr   string `json:"addr"`
	Family string `json:"family"`
	Name   string `json:"name"`
	Model  string `json:"model,omitempty"`
	Room   string `json:"room,omitempty"`
	Icon   string `json:"icon"`

	Power      bool      `json:"power"`
	Brightness int       `json:"brightness"`
	ColorMode  ColorMode `json:"color_mode,omitempty"`
	ColorTemp  int       `json:"color_temp,omitempty"`
	RGB        int       `json:"rgb"`

	LastSeen  time.Time `json:"last_seen,omitzero"`
	Connected bool      `json:"connected"`
	State     ConnState `json:"state"`
}

// IsOn reports the last known power state.
func (d Device) IsOn() bool {
	return d.Power
}

// HexRGB renders the packed RGB value as #rrggbb, or #ffffff when the value
// is not a valid 24-bit colour.
func (d Device) HexRGB() string {
	if d.RGB < 0 || d.RGB > 0xFFFFFF {
		return "#ffffff"
	}
	return fmt.Sprintf("#%06x", d.RGB)
}

// Meta is operator-supplied presentation data for a light.
type Meta struct {
	Name string
	Room string
	Icon string
}

// Properties is the flat key/value property set a device reports.
// Drivers normalise values: power is "on"/"off", color_mode is "color" or
// "temperature", numbers are decimal strings.
type Properties map[string]string

// Well-known property keys.
const (
	PropID        = "id"
	PropName      = "name"
	PropModel     = "model"
	PropPower     = "power"
	PropBright    = "bright"
	PropCT        = "ct"
	PropRGB       = "rgb"
	PropColorMode = "color_mode"
)

// apply copies the recognised properties onto d. Unparseable or missing
// values leave the previous value in place.
func (p Properties) apply(d *Device) {
	if v, ok := p[PropPower]; ok {
		d.Power = v == "on"
	}
	if n, ok := p.int(PropBright); ok {
		d.Brightness = n
	}
	if n, ok := p.int(PropCT); ok {
		d.ColorTemp = n
	}
	if n, ok := p.int(PropRGB); ok {
		d.RGB = n
	}
	switch ColorMode(p[PropColorMode]) {
	case ColorModeColor:
		d.ColorMode = ColorModeColor
	case ColorModeTemperature:
		d.ColorMode = ColorModeTemperature
	}
	if v := p[PropModel]; v != "" {
		d.Model = v
	}
}

func (p Properties) int(key string) (int, bool) {
	v, ok := p[key]
	if !ok || v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
