package yeelight

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/nerrad567/homedash/internal/device"
)

// FamilyName is the driver name reported to the registry.
const FamilyName = "yeelight"

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

var _ device.Driver = (*Driver)(nil)

// Driver discovers and connects to Yeelight bulbs.
type Driver struct {
	cfg    Config
	logger Logger
}

// New creates a driver. Zero config fields take protocol defaults.
func New(cfg Config) *Driver {
	return &Driver{cfg: cfg.withDefaults(), logger: noopLogger{}}
}

// SetLogger sets the logger for the driver.
func (d *Driver) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	d.logger = logger
}

// Name implements device.Driver.
func (d *Driver) Name() string {
	return FamilyName
}

// Discover implements device.Driver.
func (d *Driver) Discover(ctx context.Context, timeout time.Duration) ([]device.Announcement, error) {
	return discover(ctx, d.cfg, timeout, d.logger)
}

// Dial implements device.Driver. An address without a port uses the
// configured port.
func (d *Driver) Dial(ctx context.Context, addr string) (device.Conn, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, strconv.Itoa(d.cfg.Port))
	}
	conn, err := dial(ctx, addr, d.cfg)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("connected to bulb", "addr", addr)
	return conn, nil
}
