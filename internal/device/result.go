package device

// Result is the outcome of a device command.
//
// OK is false when the device could not be reached or rejected the command;
// Message then carries the reason. Device is the snapshot after the command.
type Result struct {
	OK       bool   `json:"success"`
	DeviceID string `json:"device_id"`
	Command  string `json:"command"`
	Message  string `json:"message,omitempty"`
	Device   Device `json:"device"`
}
