// Package device models controllable lights on the local network.
//
// A Registry owns every known light. It discovers devices through one or more
// Drivers, connects to them lazily, refreshes their properties and dispatches
// commands. Callers only ever see Device values (snapshots); the registry is
// the single place where a device's cached properties change, and only in
// response to discovery, refresh, or the re-fetch that follows a command.
//
// Device families plug in by implementing Driver. A connection advertises what
// it can do by implementing the capability interfaces (Switch, Dimmer,
// ColorTemperature, ColorRGB); the registry type-asserts at dispatch time and
// reports ErrUnsupported when a capability is missing.
//
// Connection state per device:
//
//	unknown -> connecting -> connected
//	connected -> connecting   (any I/O failure)
//
// Reconnection is attempted only by the next command or refresh.
package device
