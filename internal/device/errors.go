package device

import "errors"

// Domain errors for the device package. Check with errors.Is.
var (
	// ErrDeviceNotFound is returned for an identifier the registry does not know.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidBrightness is returned for a level outside 1-100.
	ErrInvalidBrightness = errors.New("device: brightness must be between 1 and 100")

	// ErrInvalidColorTemp is returned for a temperature outside 1700-6500 K.
	ErrInvalidColorTemp = errors.New("device: colour temperature must be between 1700 and 6500 K")

	// ErrInvalidRGB is returned when any channel is outside 0-255.
	ErrInvalidRGB = errors.New("device: RGB channels must be between 0 and 255")

	// ErrUnsupported is returned when a device lacks the capability a command needs.
	ErrUnsupported = errors.New("device: capability not supported")

	// ErrInvalidAddress is returned for an address that is not host:port.
	ErrInvalidAddress = errors.New("device: invalid address")

	// ErrNoDrivers is returned by Discover when the registry has no drivers.
	ErrNoDrivers = errors.New("device: no drivers registered")
)
