package device

import (
	"context"
	"time"
)

// Conn is an open connection to one device. Every driver connection can
// report properties; commands come from the capability interfaces below.
type Conn interface {
	Properties(ctx context.Context) (Properties, error)
	Close() error
}

// Switch is implemented by devices that can be powered on and off.
type Switch interface {
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
	Toggle(ctx context.Context) error
}

// Dimmer is implemented by devices with adjustable brightness (1-100).
type Dimmer interface {
	SetBrightness(ctx context.Context, level int) error
}

// ColorTemperature is implemented by devices with tunable white (kelvin).
type ColorTemperature interface {
	SetColorTemp(ctx context.Context, kelvin int) error
}

// ColorRGB is implemented by full-colour devices.
type ColorRGB interface {
	SetRGB(ctx context.Context, r, g, b int) error
}

// Announcement is one device answering a discovery request.
type Announcement struct {
	// Addr is "ip:port" of the device's command endpoint.
	Addr       string
	Properties Properties
}

// Driver implements one device family.
type Driver interface {
	// Name is the family name, e.g. "yeelight".
	Name() string

	// Discover broadcasts a discovery request and collects answers until
	// timeout. No answers is an empty slice and a nil error.
	Discover(ctx context.Context, timeout time.Duration) ([]Announcement, error)

	// Dial opens a command connection to addr.
	Dial(ctx context.Context, addr string) (Conn, error)
}
