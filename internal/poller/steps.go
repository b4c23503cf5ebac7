package poller

import (
	"context"
	"time"

	"github.com/nerrad567/homedash/internal/device"
	"github.com/nerrad567/homedash/internal/state"
	"github.com/nerrad567/homedash/internal/telemetry"
)

// LightSource is what LightStep needs from the device registry.
// Satisfied by *device.Registry.
type LightSource interface {
	Discover(ctx context.Context, timeout time.Duration) ([]device.Device, error)
	RefreshAll(ctx context.Context) error
	GetAll() []device.Device
}

// LightStep refreshes every known light and summarises them.
type LightStep struct {
	source           LightSource
	recorder         telemetry.Recorder
	discoveryTimeout time.Duration
	rediscoverEvery  int
	cycles           int
	logger           Logger
}

// NewLightStep creates a light step. When rediscoverEvery is positive the
// network is scanned on every rediscoverEvery-th cycle, starting with the
// first. rec may be nil.
func NewLightStep(source LightSource, rec telemetry.Recorder, discoveryTimeout time.Duration, rediscoverEvery int) *LightStep {
	return &LightStep{
		source:           source,
		recorder:         rec,
		discoveryTimeout: discoveryTimeout,
		rediscoverEvery:  rediscoverEvery,
		logger:           noopLogger{},
	}
}

// SetLogger sets the logger for the step.
func (l *LightStep) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	l.logger = logger
}

// Field implements Step.
func (l *LightStep) Field() string { return state.FieldSmarthomeLight }

// Compute implements Step.
func (l *LightStep) Compute(ctx context.Context) (any, error) {
	if l.rediscoverEvery > 0 && l.cycles%l.rediscoverEvery == 0 {
		if _, err := l.source.Discover(ctx, l.discoveryTimeout); err != nil {
			l.logger.Warn("light rediscovery failed", "error", err)
		}
	}
	l.cycles++

	if err := l.source.RefreshAll(ctx); err != nil {
		return nil, err
	}

	devices := l.source.GetAll()
	telemetry.RecordLights(l.recorder, devices)
	return telemetry.BuildLightAggregate(devices), nil
}

// ClimateSource provides the latest sensor readings.
// Satisfied by *telemetry.SensorCache.
type ClimateSource interface {
	Readings() []telemetry.Reading
}

// ClimateStep summarises the latest climate readings.
type ClimateStep struct {
	source     ClimateSource
	recorder   telemetry.Recorder
	band       telemetry.ComfortBand
	staleAfter time.Duration
	now        func() time.Time
}

// NewClimateStep creates a climate step. rec may be nil.
func NewClimateStep(source ClimateSource, rec telemetry.Recorder, band telemetry.ComfortBand, staleAfter time.Duration) *ClimateStep {
	return &ClimateStep{
		source:     source,
		recorder:   rec,
		band:       band,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Field implements Step.
func (c *ClimateStep) Field() string { return state.FieldSmarthomeClimate }

// Compute implements Step. It returns telemetry.ErrNoReadings until the
// first reading arrives.
func (c *ClimateStep) Compute(context.Context) (any, error) {
	readings := c.source.Readings()
	agg, err := telemetry.BuildClimateAggregate(readings, c.band, c.staleAfter, c.now())
	if err != nil {
		return nil, err
	}
	telemetry.RecordClimate(c.recorder, readings)
	return agg, nil
}
