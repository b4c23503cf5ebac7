package device

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"
)

// fakeBulb is the simulated device behind a fakeConn.
type fakeBulb struct {
	mu    sync.Mutex
	props Properties

	dialErr    error
	propsErr   error
	commandErr error
	dials      int
	commands   []string
}

func newFakeBulb() *fakeBulb {
	return &fakeBulb{props: Properties{
		PropPower:     "off",
		PropBright:    "50",
		PropCT:        "4000",
		PropRGB:       "16777215",
		PropColorMode: "temperature",
		PropModel:     "color",
	}}
}

func (b *fakeBulb) record(cmd string, mutate func(Properties)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commands = append(b.commands, cmd)
	if b.commandErr != nil {
		return b.commandErr
	}
	mutate(b.props)
	return nil
}

func (b *fakeBulb) commandLog() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.commands...)
}

type fakeConn struct {
	bulb   *fakeBulb
	closed bool
}

func (c *fakeConn) Properties(context.Context) (Properties, error) {
	c.bulb.mu.Lock()
	defer c.bulb.mu.Unlock()
	if c.bulb.propsErr != nil {
		return nil, c.bulb.propsErr
	}
	out := make(Properties, len(c.bulb.props))
	for k, v := range c.bulb.props {
		out[k] = v
	}
	return out, nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func (c *fakeConn) TurnOn(context.Context) error {
	return c.bulb.record("on", func(p Properties) { p[PropPower] = "on" })
}

func (c *fakeConn) TurnOff(context.Context) error {
	return c.bulb.record("off", func(p Properties) { p[PropPower] = "off" })
}

func (c *fakeConn) Toggle(context.Context) error {
	return c.bulb.record("toggle", func(p Properties) {
		if p[PropPower] == "on" {
			p[PropPower] = "off"
		} else {
			p[PropPower] = "on"
		}
	})
}

func (c *fakeConn) SetBrightness(_ context.Context, level int) error {
	return c.bulb.record("bright", func(p Properties) { p[PropBright] = strconv.Itoa(level) })
}

func (c *fakeConn) SetColorTemp(_ context.Context, kelvin int) error {
	return c.bulb.record("ct", func(p Properties) {
		p[PropCT] = strconv.Itoa(kelvin)
		p[PropColorMode] = string(ColorModeTemperature)
	})
}

func (c *fakeConn) SetRGB(_ context.Context, r, g, b int) error {
	return c.bulb.record("rgb", func(p Properties) {
		p[PropRGB] = strconv.Itoa(PackRGB(r, g, b))
		p[PropColorMode] = string(ColorModeColor)
	})
}

// fakeDriver hands out fakeConns for a fixed set of bulbs.
type fakeDriver struct {
	mu          sync.Mutex
	bulbs       map[string]*fakeBulb
	announce    []Announcement
	discoverErr error
	switchOnly  bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{bulbs: make(map[string]*fakeBulb)}
}

func (d *fakeDriver) addBulb(addr string, props Properties) *fakeBulb {
	b := newFakeBulb()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bulbs[addr] = b
	d.announce = append(d.announce, Announcement{Addr: addr, Properties: props})
	return b
}

func (d *fakeDriver) Name() string { return "yeelight" }

func (d *fakeDriver) Discover(context.Context, time.Duration) ([]Announcement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.discoverErr != nil {
		return nil, d.discoverErr
	}
	return append([]Announcement(nil), d.announce...), nil
}

func (d *fakeDriver) Dial(_ context.Context, addr string) (Conn, error) {
	d.mu.Lock()
	b, ok := d.bulbs[addr]
	d.mu.Unlock()
	if !ok {
		return nil, errors.New("connection refused")
	}
	b.mu.Lock()
	b.dials++
	dialErr := b.dialErr
	b.mu.Unlock()
	if dialErr != nil {
		return nil, dialErr
	}
	conn := &fakeConn{bulb: b}
	if d.switchOnly {
		return onlySwitch{conn}, nil
	}
	return conn, nil
}

// onlySwitch hides every capability except Switch.
type onlySwitch struct {
	c *fakeConn
}

func (o onlySwitch) Properties(ctx context.Context) (Properties, error) { return o.c.Properties(ctx) }
func (o onlySwitch) Close() error                                       { return o.c.Close() }
func (o onlySwitch) TurnOn(ctx context.Context) error                   { return o.c.TurnOn(ctx) }
func (o onlySwitch) TurnOff(ctx context.Context) error                  { return o.c.TurnOff(ctx) }
func (o onlySwitch) Toggle(ctx context.Context) error                   { return o.c.Toggle(ctx) }

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func setupRegistry(t *testing.T) (*Registry, *fakeDriver) {
	t.Helper()
	drv := newFakeDriver()
	reg := NewRegistry(drv)
	reg.SetDefaultPort(55443)
	reg.now = fixedNow
	return reg, drv
}

func TestRegistry_DiscoverRecordsDevices(t *testing.T) {
	reg, drv := setupRegistry(t)
	drv.addBulb("192.168.1.23:55443", Properties{PropModel: "color"})
	drv.addBulb("192.168.1.40:55443", Properties{PropName: "Hall"})

	found, err := reg.Discover(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("Discover() returned %d devices, want 2", len(found))
	}

	d, err := reg.Get("192.168.1.23:55443")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if d.Name != "Yeelight 23" {
		t.Errorf("Name = %q, want %q", d.Name, "Yeelight 23")
	}
	if !d.Connected || d.State != StateConnected {
		t.Errorf("Connected = %v, State = %q; want connected", d.Connected, d.State)
	}
	if d.Brightness != 50 || d.ColorTemp != 4000 {
		t.Errorf("Brightness = %d, ColorTemp = %d", d.Brightness, d.ColorTemp)
	}
	if !d.LastSeen.Equal(fixedNow()) {
		t.Errorf("LastSeen = %v", d.LastSeen)
	}

	hall, _ := reg.Get("192.168.1.40:55443")
	if hall.Name != "Hall" {
		t.Errorf("announced name not used, got %q", hall.Name)
	}
}

func TestRegistry_DiscoverKeepsUnreachableDevices(t *testing.T) {
	reg, drv := setupRegistry(t)
	b := drv.addBulb("192.168.1.50:55443", Properties{
		PropPower:  "on",
		PropBright: "80",
		PropModel:  "color",
		PropName:   "Porch",
	})
	b.dialErr = errors.New("timeout")

	found, err := reg.Discover(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("Discover() returned %d devices, want 1", len(found))
	}
	d := found[0]
	if d.Connected || d.Power || d.Brightness != 0 {
		t.Errorf("unreachable device = %+v, want disconnected, off, brightness 0", d)
	}
	if d.State != StateConnecting {
		t.Errorf("State = %q, want %q", d.State, StateConnecting)
	}
	if d.Name != "Porch" || d.Model != "color" {
		t.Errorf("Name = %q, Model = %q; want announced values kept", d.Name, d.Model)
	}

	agg := reg.GetAll()
	if len(agg) != 1 || agg[0].Power {
		t.Errorf("GetAll() = %+v, want one device powered off", agg)
	}
}

func TestRegistry_DiscoverNothingFound(t *testing.T) {
	reg, _ := setupRegistry(t)

	found, err := reg.Discover(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if found == nil || len(found) != 0 {
		t.Errorf("Discover() = %#v, want empty non-nil slice", found)
	}
}

func TestRegistry_DiscoverFailure(t *testing.T) {
	reg, drv := setupRegistry(t)
	drv.discoverErr = errors.New("no multicast route")

	if _, err := reg.Discover(context.Background(), time.Second); err == nil {
		t.Fatal("Discover() expected error when every driver fails")
	}
}

func TestRegistry_DiscoverNoDrivers(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Discover(context.Background(), time.Second); !errors.Is(err, ErrNoDrivers) {
		t.Fatalf("Discover() error = %v, want ErrNoDrivers", err)
	}
}

func TestRegistry_GetNotFound(t *testing.T) {
	reg, _ := setupRegistry(t)

	for _, id := range []string{"192.168.1.99:55443", "not-an-address", ""} {
		if _, err := reg.Get(id); !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("Get(%q) error = %v, want ErrDeviceNotFound", id, err)
		}
	}
}

func TestRegistry_GetBareIPUsesDefaultPort(t *testing.T) {
	reg, drv := setupRegistry(t)
	drv.addBulb("192.168.1.23:55443", nil)
	if _, err := reg.Discover(context.Background(), time.Second); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	d, err := reg.Get("192.168.1.23")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if d.ID != "192.168.1.23:55443" {
		t.Errorf("ID = %q", d.ID)
	}
}

func TestRegistry_GetAllSortedByName(t *testing.T) {
	reg, _ := setupRegistry(t)
	for addr, name := range map[string]string{
		"10.0.0.1:55443": "Porch",
		"10.0.0.2:55443": "Desk",
		"10.0.0.3:55443": "Kitchen",
	} {
		if _, err := reg.Add(addr, Meta{Name: name}); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	all := reg.GetAll()
	want := []string{"Desk", "Kitchen", "Porch"}
	if len(all) != len(want) {
		t.Fatalf("GetAll() len = %d", len(all))
	}
	for i, d := range all {
		if d.Name != want[i] {
			t.Errorf("GetAll()[%d].Name = %q, want %q", i, d.Name, want[i])
		}
	}
}

func TestRegistry_AddMetaSurvivesDiscovery(t *testing.T) {
	reg, drv := setupRegistry(t)
	drv.addBulb("192.168.1.23:55443", Properties{PropName: "bulb"})

	if _, err := reg.Add("192.168.1.23:55443", Meta{Name: "Desk lamp", Room: "Office"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := reg.Discover(context.Background(), time.Second); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	d, _ := reg.Get("192.168.1.23:55443")
	if d.Name != "Desk lamp" || d.Room != "Office" || d.Icon != DefaultIcon {
		t.Errorf("device = %+v", d)
	}
	if reg.Count() != 1 {
		t.Errorf("Count() = %d, want 1", reg.Count())
	}
}

func TestRegistry_AddInvalidAddress(t *testing.T) {
	reg, _ := setupRegistry(t)
	if _, err := reg.Add("lamp", Meta{}); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("Add() error = %v, want ErrInvalidAddress", err)
	}
}

func TestRegistry_Commands(t *testing.T) {
	tests := []struct {
		name  string
		run   func(*Registry, string) (Result, error)
		check func(*testing.T, Device)
	}{
		{
			name: "turn on",
			run: func(r *Registry, id string) (Result, error) {
				return r.TurnOn(context.Background(), id)
			},
			check: func(t *testing.T, d Device) {
				if !d.Power {
					t.Error("Power = false, want true")
				}
			},
		},
		{
			name: "turn on at level",
			run: func(r *Registry, id string) (Result, error) {
				return r.TurnOnAt(context.Background(), id, 80)
			},
			check: func(t *testing.T, d Device) {
				if !d.Power || d.Brightness != 80 {
					t.Errorf("Power = %v, Brightness = %d", d.Power, d.Brightness)
				}
			},
		},
		{
			name: "toggle",
			run: func(r *Registry, id string) (Result, error) {
				return r.Toggle(context.Background(), id)
			},
			check: func(t *testing.T, d Device) {
				if !d.Power {
					t.Error("Power = false after toggling an off light")
				}
			},
		},
		{
			name: "set brightness",
			run: func(r *Registry, id string) (Result, error) {
				return r.SetBrightness(context.Background(), id, 75)
			},
			check: func(t *testing.T, d Device) {
				if d.Brightness != 75 {
					t.Errorf("Brightness = %d, want 75", d.Brightness)
				}
			},
		},
		{
			name: "set colour temperature",
			run: func(r *Registry, id string) (Result, error) {
				return r.SetColorTemp(context.Background(), id, 2700)
			},
			check: func(t *testing.T, d Device) {
				if d.ColorTemp != 2700 || d.ColorMode != ColorModeTemperature {
					t.Errorf("ColorTemp = %d, ColorMode = %q", d.ColorTemp, d.ColorMode)
				}
			},
		},
		{
			name: "set rgb",
			run: func(r *Registry, id string) (Result, error) {
				return r.SetRGB(context.Background(), id, 255, 0, 0)
			},
			check: func(t *testing.T, d Device) {
				if d.HexRGB() != "#ff0000" || d.ColorMode != ColorModeColor {
					t.Errorf("HexRGB = %q, ColorMode = %q", d.HexRGB(), d.ColorMode)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, drv := setupRegistry(t)
			drv.addBulb("192.168.1.23:55443", nil)

			res, err := tt.run(reg, "192.168.1.23:55443")
			if err != nil {
				t.Fatalf("command error = %v", err)
			}
			if !res.OK {
				t.Fatalf("Result.OK = false, message %q", res.Message)
			}
			if res.DeviceID != "192.168.1.23:55443" {
				t.Errorf("Result.DeviceID = %q", res.DeviceID)
			}
			tt.check(t, res.Device)

			stored, _ := reg.Get("192.168.1.23:55443")
			tt.check(t, stored)
		})
	}
}

func TestRegistry_ValidationBeforeIO(t *testing.T) {
	tests := []struct {
		name    string
		run     func(*Registry, string) (Result, error)
		wantErr error
	}{
		{"brightness zero", func(r *Registry, id string) (Result, error) {
			return r.SetBrightness(context.Background(), id, 0)
		}, ErrInvalidBrightness},
		{"brightness too high", func(r *Registry, id string) (Result, error) {
			return r.SetBrightness(context.Background(), id, 101)
		}, ErrInvalidBrightness},
		{"turn on at invalid level", func(r *Registry, id string) (Result, error) {
			return r.TurnOnAt(context.Background(), id, 150)
		}, ErrInvalidBrightness},
		{"colour temperature too low", func(r *Registry, id string) (Result, error) {
			return r.SetColorTemp(context.Background(), id, 1000)
		}, ErrInvalidColorTemp},
		{"rgb channel out of range", func(r *Registry, id string) (Result, error) {
			return r.SetRGB(context.Background(), id, 256, 0, 0)
		}, ErrInvalidRGB},
		{"rgb negative channel", func(r *Registry, id string) (Result, error) {
			return r.SetRGB(context.Background(), id, 0, -1, 0)
		}, ErrInvalidRGB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, drv := setupRegistry(t)
			b := drv.addBulb("192.168.1.23:55443", nil)

			_, err := tt.run(reg, "192.168.1.23:55443")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if b.dials != 0 {
				t.Errorf("dials = %d, want no network activity", b.dials)
			}
			if reg.Count() != 0 {
				t.Errorf("Count() = %d, invalid command must not register the device", reg.Count())
			}
		})
	}
}

func TestRegistry_CommandUnknownDevice(t *testing.T) {
	reg, _ := setupRegistry(t)
	if _, err := reg.TurnOn(context.Background(), "kitchen"); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("TurnOn() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_CommandRegistersNewAddress(t *testing.T) {
	reg, drv := setupRegistry(t)
	drv.mu.Lock()
	drv.bulbs["192.168.1.77:55443"] = newFakeBulb()
	drv.mu.Unlock()

	res, err := reg.TurnOn(context.Background(), "192.168.1.77")
	if err != nil {
		t.Fatalf("TurnOn() error = %v", err)
	}
	if !res.OK || !res.Device.Power {
		t.Fatalf("Result = %+v", res)
	}
	if _, err := reg.Get("192.168.1.77:55443"); err != nil {
		t.Errorf("device not registered: %v", err)
	}
}

func TestRegistry_CommandUnreachable(t *testing.T) {
	reg, drv := setupRegistry(t)
	b := drv.addBulb("192.168.1.23:55443", nil)
	if _, err := reg.Discover(context.Background(), time.Second); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	b.dialErr = errors.New("no route to host")
	b.commandErr = errors.New("connection reset")

	res, err := reg.TurnOn(context.Background(), "192.168.1.23:55443")
	if err != nil {
		t.Fatalf("TurnOn() error = %v, want nil for protocol failure", err)
	}
	if res.OK {
		t.Fatal("Result.OK = true, want false")
	}
	if res.Message == "" {
		t.Error("Result.Message is empty")
	}
	if res.Device.Connected {
		t.Error("device still marked connected")
	}
	if res.Device.Brightness != 50 {
		t.Errorf("last known brightness lost: %d", res.Device.Brightness)
	}

	// The next command reconnects.
	b.mu.Lock()
	b.dialErr = nil
	b.commandErr = nil
	b.mu.Unlock()
	res, err = reg.TurnOn(context.Background(), "192.168.1.23:55443")
	if err != nil || !res.OK {
		t.Fatalf("TurnOn() after recovery = %+v, %v", res, err)
	}
	if !res.Device.Connected || res.Device.State != StateConnected {
		t.Errorf("device not reconnected: %+v", res.Device)
	}
}

func TestRegistry_UnsupportedCapability(t *testing.T) {
	reg, drv := setupRegistry(t)
	drv.switchOnly = true
	drv.addBulb("192.168.1.23:55443", nil)

	if _, err := reg.SetBrightness(context.Background(), "192.168.1.23:55443", 50); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("SetBrightness() error = %v, want ErrUnsupported", err)
	}
	if res, err := reg.TurnOn(context.Background(), "192.168.1.23:55443"); err != nil || !res.OK {
		t.Fatalf("TurnOn() = %+v, %v", res, err)
	}
}

func TestRegistry_RefreshAllKeepsLastKnown(t *testing.T) {
	reg, drv := setupRegistry(t)
	good := drv.addBulb("10.0.0.1:55443", nil)
	bad := drv.addBulb("10.0.0.2:55443", nil)
	if _, err := reg.Discover(context.Background(), time.Second); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	good.mu.Lock()
	good.props[PropPower] = "on"
	good.mu.Unlock()
	bad.mu.Lock()
	bad.propsErr = errors.New("timeout")
	bad.mu.Unlock()

	if err := reg.RefreshAll(context.Background()); err != nil {
		t.Fatalf("RefreshAll() error = %v", err)
	}

	g, _ := reg.Get("10.0.0.1:55443")
	if !g.Power || !g.Connected {
		t.Errorf("good device = %+v", g)
	}
	b, _ := reg.Get("10.0.0.2:55443")
	if b.Connected || b.State != StateConnecting {
		t.Errorf("failed device Connected = %v, State = %q", b.Connected, b.State)
	}
	if b.Brightness != 50 || b.ColorTemp != 4000 {
		t.Errorf("failed device lost properties: %+v", b)
	}
}

func TestRegistry_RefreshAllCancelled(t *testing.T) {
	reg, _ := setupRegistry(t)
	if _, err := reg.Add("10.0.0.1:55443", Meta{}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := reg.RefreshAll(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("RefreshAll() error = %v, want context.Canceled", err)
	}
}

func TestRegistry_SnapshotsAreCopies(t *testing.T) {
	reg, drv := setupRegistry(t)
	drv.addBulb("10.0.0.1:55443", nil)
	if _, err := reg.Discover(context.Background(), time.Second); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	d, _ := reg.Get("10.0.0.1:55443")
	d.Name = "mutated"
	d.Brightness = 1

	again, _ := reg.Get("10.0.0.1:55443")
	if again.Name == "mutated" || again.Brightness == 1 {
		t.Error("modifying a snapshot changed registry state")
	}
}

func TestRegistry_ConcurrentCommands(t *testing.T) {
	reg, drv := setupRegistry(t)
	b := drv.addBulb("10.0.0.1:55443", nil)

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(level int) {
			defer wg.Done()
			if _, err := reg.SetBrightness(context.Background(), "10.0.0.1:55443", level); err != nil {
				t.Errorf("SetBrightness(%d) error = %v", level, err)
			}
			_ = reg.GetAll()
		}(i)
	}
	wg.Wait()

	if got := len(b.commandLog()); got != 20 {
		t.Errorf("commands = %d, want 20", got)
	}
	if b.dials != 1 {
		t.Errorf("dials = %d, want a single shared connection", b.dials)
	}
}

func TestRegistry_Close(t *testing.T) {
	reg, drv := setupRegistry(t)
	drv.addBulb("10.0.0.1:55443", nil)
	if _, err := reg.TurnOn(context.Background(), "10.0.0.1:55443"); err != nil {
		t.Fatalf("TurnOn() error = %v", err)
	}
	if err := reg.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestDefaultName(t *testing.T) {
	tests := []struct {
		family, addr, want string
	}{
		{"yeelight", "192.168.1.23:55443", "Yeelight 23"},
		{"", "10.0.0.7:1", "Light 7"},
		{"yeelight", "[fe80::1]:55443", "Yeelight 1"},
	}
	for _, tt := range tests {
		if got := defaultName(tt.family, tt.addr); got != tt.want {
			t.Errorf("defaultName(%q, %q) = %q, want %q", tt.family, tt.addr, got, tt.want)
		}
	}
}
