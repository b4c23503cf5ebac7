package yeelight

import (
	"errors"
	"fmt"
)

// Domain errors for the Yeelight bridge.
var (
	// ErrConnectionFailed is returned when a bulb cannot be reached.
	ErrConnectionFailed = errors.New("yeelight: connection failed")

	// ErrClosed is returned for calls on a closed connection.
	ErrClosed = errors.New("yeelight: connection closed")

	// ErrInvalidResponse is returned for a reply that cannot be decoded.
	ErrInvalidResponse = errors.New("yeelight: invalid response")

	// ErrInvalidAnnouncement is returned for a discovery reply without a
	// usable Location header.
	ErrInvalidAnnouncement = errors.New("yeelight: invalid discovery announcement")
)

// CommandError is an error reply from a bulb, e.g. when a method is not
// supported by the model or the bulb is rate limiting.
type CommandError struct {
	Method  string
	Code    int
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("yeelight: %s failed: %s (code %d)", e.Method, e.Message, e.Code)
}
