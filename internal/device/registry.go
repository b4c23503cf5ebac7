package device

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Logger is the logging interface used by the registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// entry is the registry's private record for one device.
type entry struct {
	// io serialises every network operation on this device.
	io     sync.Mutex
	conn   Conn
	driver Driver

	// dev is guarded by Registry.mu.
	dev Device
}

// Registry owns the set of known lights.
//
// Reads never touch the network. Network operations are serialised per
// device, so a slow light never blocks reads or commands to other lights.
type Registry struct {
	drivers []Driver

	mu      sync.RWMutex
	entries map[string]*entry
	meta    map[string]Meta

	defaultPort int
	logger      Logger
	now         func() time.Time
}

// NewRegistry creates a registry. The first driver handles devices that are
// registered by address before they have been discovered.
func NewRegistry(drivers ...Driver) *Registry {
	return &Registry{
		drivers: drivers,
		entries: make(map[string]*entry),
		meta:    make(map[string]Meta),
		logger:  noopLogger{},
		now:     time.Now,
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	r.logger = logger
}

// SetDefaultPort sets the port assumed for identifiers given as a bare IP.
func (r *Registry) SetDefaultPort(port int) {
	r.defaultPort = port
}

// Add registers a light by address with operator metadata. The metadata also
// applies if the same light is later discovered. No connection is made.
func (r *Registry) Add(addr string, meta Meta) (Device, error) {
	id, err := r.normalizeID(addr)
	if err != nil {
		return Device{}, err
	}
	if len(r.drivers) == 0 {
		return Device{}, ErrNoDrivers
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.meta[id] = meta
	e, ok := r.entries[id]
	if !ok {
		e = r.newEntryLocked(id, r.drivers[0], nil)
	}
	applyMeta(&e.dev, meta)
	return e.dev, nil
}

// Discover runs discovery on every driver, then connects to and refreshes
// each announced device. Every announced device is recorded and returned,
// including ones that could not be reached.
func (r *Registry) Discover(ctx context.Context, timeout time.Duration) ([]Device, error) {
	if len(r.drivers) == 0 {
		return nil, ErrNoDrivers
	}

	found := []Device{}
	var errs []error
	for _, drv := range r.drivers {
		anns, err := drv.Discover(ctx, timeout)
		if err != nil {
			r.logger.Warn("discovery failed", "driver", drv.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", drv.Name(), err))
			continue
		}
		r.logger.Info("discovery complete", "driver", drv.Name(), "count", len(anns))

		for _, ann := range anns {
			id, err := r.normalizeID(ann.Addr)
			if err != nil {
				r.logger.Warn("ignoring announcement", "driver", drv.Name(), "addr", ann.Addr, "error", err)
				continue
			}

			r.mu.Lock()
			e, known := r.entries[id]
			if !known {
				e = r.newEntryLocked(id, drv, ann.Properties)
			}
			r.mu.Unlock()

			e.io.Lock()
			if err := r.fetchLocked(ctx, e); err != nil {
				r.logger.Warn("device unreachable after discovery", "device_id", id, "error", err)
				if !known {
					// Never reached: the announced power state is not trusted.
					r.mu.Lock()
					e.dev.Power = false
					e.dev.Brightness = 0
					r.mu.Unlock()
				}
			}
			e.io.Unlock()

			found = append(found, r.snapshot(e))
		}
	}

	if len(errs) == len(r.drivers) {
		return nil, errors.Join(errs...)
	}
	sortDevices(found)
	return found, nil
}

// Get returns a snapshot of one device.
func (r *Registry) Get(id string) (Device, error) {
	key, err := r.normalizeID(id)
	if err != nil {
		return Device{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[key]
	if !ok {
		return Device{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return e.dev, nil
}

// GetAll returns snapshots of every known device ordered by name.
func (r *Registry) GetAll() []Device {
	r.mu.RLock()
	devices := make([]Device, 0, len(r.entries))
	for _, e := range r.entries {
		devices = append(devices, e.dev)
	}
	r.mu.RUnlock()

	sortDevices(devices)
	return devices
}

// Count returns the number of known devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// RefreshAll re-reads properties from every device, one at a time. A device
// that fails is marked disconnected and keeps its last known properties; the
// remaining devices are still refreshed. Only context cancellation is
// returned as an error.
func (r *Registry) RefreshAll(ctx context.Context) error {
	r.mu.RLock()
	list := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		list = append(list, e)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].dev.ID < list[j].dev.ID })

	for _, e := range list {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.io.Lock()
		if err := r.fetchLocked(ctx, e); err != nil {
			r.logger.Debug("refresh failed", "device_id", e.dev.ID, "error", err)
		}
		e.io.Unlock()
	}
	return nil
}

// Close closes every open device connection.
func (r *Registry) Close() error {
	r.mu.RLock()
	list := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		list = append(list, e)
	}
	r.mu.RUnlock()

	var errs []error
	for _, e := range list {
		e.io.Lock()
		if e.conn != nil {
			if err := e.conn.Close(); err != nil {
				errs = append(errs, err)
			}
			e.conn = nil
		}
		e.io.Unlock()
	}
	return errors.Join(errs...)
}

// TurnOn powers a light on.
func (r *Registry) TurnOn(ctx context.Context, id string) (Result, error) {
	return r.dispatch(ctx, id, "turn_on", func(ctx context.Context, c Conn) error {
		sw, ok := c.(Switch)
		if !ok {
			return ErrUnsupported
		}
		return sw.TurnOn(ctx)
	})
}

// TurnOnAt powers a light on and sets its brightness in one exchange.
func (r *Registry) TurnOnAt(ctx context.Context, id string, level int) (Result, error) {
	if err := ValidateBrightness(level); err != nil {
		return Result{}, err
	}
	return r.dispatch(ctx, id, "turn_on", func(ctx context.Context, c Conn) error {
		sw, ok := c.(Switch)
		if !ok {
			return ErrUnsupported
		}
		dim, ok := c.(Dimmer)
		if !ok {
			return ErrUnsupported
		}
		if err := sw.TurnOn(ctx); err != nil {
			return err
		}
		return dim.SetBrightness(ctx, level)
	})
}

// TurnOff powers a light off.
func (r *Registry) TurnOff(ctx context.Context, id string) (Result, error) {
	return r.dispatch(ctx, id, "turn_off", func(ctx context.Context, c Conn) error {
		sw, ok := c.(Switch)
		if !ok {
			return ErrUnsupported
		}
		return sw.TurnOff(ctx)
	})
}

// Toggle flips a light's power state.
func (r *Registry) Toggle(ctx context.Context, id string) (Result, error) {
	return r.dispatch(ctx, id, "toggle", func(ctx context.Context, c Conn) error {
		sw, ok := c.(Switch)
		if !ok {
			return ErrUnsupported
		}
		return sw.Toggle(ctx)
	})
}

// SetBrightness sets brightness to level (1-100).
func (r *Registry) SetBrightness(ctx context.Context, id string, level int) (Result, error) {
	if err := ValidateBrightness(level); err != nil {
		return Result{}, err
	}
	return r.dispatch(ctx, id, "set_brightness", func(ctx context.Context, c Conn) error {
		dim, ok := c.(Dimmer)
		if !ok {
			return ErrUnsupported
		}
		return dim.SetBrightness(ctx, level)
	})
}

// SetColorTemp sets the white colour temperature in kelvin (1700-6500).
func (r *Registry) SetColorTemp(ctx context.Context, id string, kelvin int) (Result, error) {
	if err := ValidateColorTemp(kelvin); err != nil {
		return Result{}, err
	}
	return r.dispatch(ctx, id, "set_color_temp", func(ctx context.Context, c Conn) error {
		ct, ok := c.(ColorTemperature)
		if !ok {
			return ErrUnsupported
		}
		return ct.SetColorTemp(ctx, kelvin)
	})
}

// SetRGB sets the light colour. Each channel must be 0-255.
func (r *Registry) SetRGB(ctx context.Context, id string, red, green, blue int) (Result, error) {
	if err := ValidateRGB(red, green, blue); err != nil {
		return Result{}, err
	}
	return r.dispatch(ctx, id, "set_rgb", func(ctx context.Context, c Conn) error {
		rgb, ok := c.(ColorRGB)
		if !ok {
			return ErrUnsupported
		}
		return rgb.SetRGB(ctx, red, green, blue)
	})
}

// dispatch runs one command against a device.
//
// Protocol and connection failures are reported in the Result with a nil
// error. Errors are reserved for caller mistakes: unknown device or a
// capability the device does not have.
func (r *Registry) dispatch(ctx context.Context, id, command string, fn func(context.Context, Conn) error) (Result, error) {
	e, err := r.lookupOrCreate(id)
	if err != nil {
		return Result{}, err
	}

	e.io.Lock()
	defer e.io.Unlock()

	res := Result{DeviceID: e.dev.ID, Command: command}

	if e.conn == nil {
		if err := r.dialLocked(ctx, e); err != nil {
			res.Message = "device unreachable: " + err.Error()
			res.Device = r.snapshot(e)
			r.logger.Warn("command failed", "device_id", res.DeviceID, "command", command, "error", err)
			return res, nil
		}
	}

	if err := fn(ctx, e.conn); err != nil {
		if errors.Is(err, ErrUnsupported) {
			return Result{}, fmt.Errorf("%w: %s on %s", ErrUnsupported, command, res.DeviceID)
		}
		r.dropConnLocked(e)
		res.Message = err.Error()
		res.Device = r.snapshot(e)
		r.logger.Warn("command failed", "device_id", res.DeviceID, "command", command, "error", err)
		return res, nil
	}

	res.OK = true
	if err := r.fetchLocked(ctx, e); err != nil {
		r.logger.Debug("re-fetch after command failed", "device_id", res.DeviceID, "error", err)
	}
	res.Device = r.snapshot(e)
	r.logger.Debug("command succeeded", "device_id", res.DeviceID, "command", command)
	return res, nil
}

// fetchLocked connects if needed and re-reads properties. Caller holds e.io.
func (r *Registry) fetchLocked(ctx context.Context, e *entry) error {
	if e.conn == nil {
		if err := r.dialLocked(ctx, e); err != nil {
			return err
		}
	}

	props, err := e.conn.Properties(ctx)
	if err != nil {
		r.dropConnLocked(e)
		return err
	}

	r.mu.Lock()
	props.apply(&e.dev)
	e.dev.Connected = true
	e.dev.State = StateConnected
	e.dev.LastSeen = r.now()
	r.mu.Unlock()
	return nil
}

// dialLocked opens a connection. Caller holds e.io.
func (r *Registry) dialLocked(ctx context.Context, e *entry) error {
	r.setState(e, StateConnecting, false)

	conn, err := e.driver.Dial(ctx, e.dev.Addr)
	if err != nil {
		return err
	}
	e.conn = conn
	return nil
}

// dropConnLocked closes a failed connection and marks the device
// disconnected while keeping its last known properties. Caller holds e.io.
func (r *Registry) dropConnLocked(e *entry) {
	if e.conn != nil {
		_ = e.conn.Close() //nolint:errcheck // connection already failed
		e.conn = nil
	}
	r.setState(e, StateConnecting, false)
}

func (r *Registry) setState(e *entry, state ConnState, connected bool) {
	r.mu.Lock()
	e.dev.State = state
	e.dev.Connected = connected
	r.mu.Unlock()
}

func (r *Registry) snapshot(e *entry) Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return e.dev
}

// lookupOrCreate resolves id, registering an address that has not been seen
// before with the default driver.
func (r *Registry) lookupOrCreate(id string) (*entry, error) {
	key, err := r.normalizeID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	r.mu.RLock()
	e, ok := r.entries[key]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}

	if len(r.drivers) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key]; ok {
		return e, nil
	}
	r.logger.Info("registering device on first command", "device_id", key)
	return r.newEntryLocked(key, r.drivers[0], nil), nil
}

// newEntryLocked creates and stores a fresh entry. Caller holds r.mu.
func (r *Registry) newEntryLocked(id string, drv Driver, props Properties) *entry {
	dev := Device{
		ID:     id,
		Addr:   id,
		Family: drv.Name(),
		Name:   defaultName(drv.Name(), id),
		Icon:   DefaultIcon,
		State:  StateUnknown,
	}
	if props != nil {
		props.apply(&dev)
		if n := strings.TrimSpace(props[PropName]); n != "" {
			dev.Name = n
		}
	}
	if m, ok := r.meta[id]; ok {
		applyMeta(&dev, m)
	}

	e := &entry{driver: drv, dev: dev}
	r.entries[id] = e
	return e
}

// normalizeID turns "ip" or "ip:port" into the canonical "ip:port" form.
func (r *Registry) normalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrInvalidAddress
	}

	host, port, err := net.SplitHostPort(id)
	if err != nil {
		if r.defaultPort == 0 || net.ParseIP(id) == nil {
			return "", fmt.Errorf("%w: %s", ErrInvalidAddress, id)
		}
		return net.JoinHostPort(id, strconv.Itoa(r.defaultPort)), nil
	}
	if host == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidAddress, id)
	}
	if p, err := strconv.Atoi(port); err != nil || p <= 0 || p > 65535 {
		return "", fmt.Errorf("%w: %s", ErrInvalidAddress, id)
	}
	return net.JoinHostPort(host, port), nil
}

func applyMeta(d *Device, m Meta) {
	if m.Name != "" {
		d.Name = m.Name
	}
	if m.Room != "" {
		d.Room = m.Room
	}
	if m.Icon != "" {
		d.Icon = m.Icon
	}
}

// defaultName builds "<Family> <last octet>", e.g. "Yeelight 23".
func defaultName(family, addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	suffix := host
	if i := strings.LastIndexAny(host, ".:"); i >= 0 && i < len(host)-1 {
		suffix = host[i+1:]
	}
	if family == "" {
		return "Light " + suffix
	}
	return strings.ToUpper(family[:1]) + family[1:] + " " + suffix
}

func sortDevices(devices []Device) {
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].Name != devices[j].Name {
			return devices[i].Name < devices[j].Name
		}
		return devices[i].ID < devices[j].ID
	})
}
