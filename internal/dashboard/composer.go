package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nerrad567/homedash/internal/state"
	"github.com/nerrad567/homedash/internal/telemetry"
)

// Default subtitle formats.
const (
	DefaultLightSubtitle   = "%d of %d on"
	DefaultClimateSubtitle = "average home %.1f°C"
)

// Logger is the logging interface used by the dashboard package.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// DocumentReader reads materialised user documents.
// Satisfied by *state.Store.
type DocumentReader interface {
	Read(ctx context.Context, user string) (*state.Document, error)
}

// Labels are the strings written into telemetry-owned tile fields.
type Labels struct {
	// LightSubtitle takes on_count and total_count.
	LightSubtitle string
	// ClimateSubtitle takes the average temperature.
	ClimateSubtitle string
	NoData          string
}

// Options configures a Composer. Zero fields take defaults.
type Options struct {
	Labels  Labels
	Comfort telemetry.ComfortBand
}

// Composer builds the dashboard a user sees.
type Composer struct {
	docs    DocumentReader
	labels  Labels
	comfort telemetry.ComfortBand
	logger  Logger
}

// NewComposer creates a composer reading documents from docs.
func NewComposer(docs DocumentReader, opts Options) *Composer {
	l := opts.Labels
	if l.LightSubtitle == "" {
		l.LightSubtitle = DefaultLightSubtitle
	}
	if l.ClimateSubtitle == "" {
		l.ClimateSubtitle = DefaultClimateSubtitle
	}
	if l.NoData == "" {
		l.NoData = DefaultNoData
	}
	comfort := opts.Comfort
	if comfort.Low == 0 && comfort.High == 0 {
		comfort = telemetry.ComfortBand{Low: 20, High: 24}
	}
	return &Composer{docs: docs, labels: l, comfort: comfort, logger: noopLogger{}}
}

// SetLogger sets the logger for the composer.
func (c *Composer) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.logger = logger
}

// Fallback returns the skeleton served when a user has no document.
func (c *Composer) Fallback() *Skeleton {
	return FallbackSkeleton(c.labels.NoData)
}

// Compose returns the user's dashboard. A user without a document gets the
// fallback skeleton and a nil error; backend failures are returned.
func (c *Composer) Compose(ctx context.Context, user string) (*Skeleton, error) {
	doc, err := c.docs.Read(ctx, user)
	if errors.Is(err, state.ErrNotFound) {
		return c.Fallback(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("dashboard: reading state for %s: %w", user, err)
	}

	s := c.skeletonFor(user, doc)
	c.ApplyTelemetry(s, doc)
	return s, nil
}

// skeletonFor returns the cached AI skeleton, or the default one when none
// is cached or the cached one cannot be decoded.
func (c *Composer) skeletonFor(user string, doc *state.Document) *Skeleton {
	if !doc.HasDashboard() {
		return DefaultSkeleton()
	}
	s, err := decodeSkeleton(doc.SmarthomeDashboard)
	if err != nil {
		c.logger.Warn("cached dashboard unreadable, using default", "user", user, "error", err)
		return DefaultSkeleton()
	}
	return s
}

func decodeSkeleton(raw json.RawMessage) (*Skeleton, error) {
	var s Skeleton
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	if s.Type == "" {
		s.Type = SkeletonType
	}
	if s.QuickActions == nil {
		s.QuickActions = []QuickAction{}
	}
	return &s, nil
}

// ApplyTelemetry overwrites the telemetry-owned fields of the light and
// climate tiles from doc's aggregates. A tile is left untouched when its
// aggregate is absent, and a tile missing from s is not added.
func (c *Composer) ApplyTelemetry(s *Skeleton, doc *state.Document) {
	if doc == nil {
		return
	}

	if agg := doc.SmarthomeLight; agg != nil {
		if t := s.Tile(CategoryLight); t != nil {
			t.Subtitle = fmt.Sprintf(c.labels.LightSubtitle, agg.OnCount, agg.TotalCount)
			t.StatusColor = telemetry.ColorGray
			if agg.OnCount > 0 {
				t.StatusColor = telemetry.ColorOrange
			}
			t.Devices = cloneDisplays(agg.Devices)
		}
	}

	if agg := doc.SmarthomeClimate; agg != nil {
		if t := s.Tile(CategoryClimate); t != nil {
			t.Subtitle = fmt.Sprintf(c.labels.ClimateSubtitle, agg.AverageTemp)
			t.StatusColor = c.comfort.Color(agg.AverageTemp)
			t.Devices = cloneDisplays(agg.Devices)
		}
	}
}

func cloneDisplays(in []telemetry.DeviceDisplay) []telemetry.DeviceDisplay {
	out := make([]telemetry.DeviceDisplay, len(in))
	copy(out, in)
	return out
}
