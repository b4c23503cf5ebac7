package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/homedash/internal/telemetry"
)

// Derived field formats.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Well-known document field names, as used with Update.
const (
	FieldSmarthomeLight     = "smarthome_light"
	FieldSmarthomeClimate   = "smarthome_climate"
	FieldSmarthomeDashboard = "smarthome_dashboard"
)

// Document is the per-user state document.
type Document struct {
	UserID                 string   `json:"user_id"`
	UserName               string   `json:"user_name,omitempty"`
	DefaultCity            string   `json:"default_city,omitempty"`
	DefaultCountry         string   `json:"default_country,omitempty"`
	Persona                string   `json:"persona,omitempty"`
	UserTimezone           string   `json:"user_timezone,omitempty"`
	MeasurementUnits       string   `json:"measurement_units,omitempty"`
	Language               string   `json:"language,omitempty"`
	Currency               string   `json:"currency,omitempty"`
	DateFormat             string   `json:"date_format,omitempty"`
	TimeFormat             string   `json:"time_format,omitempty"`
	CommercialHolidays     string   `json:"commercial_holidays,omitempty"`
	CommercialCheckOpenNow *bool    `json:"commercial_check_open_now,omitempty"`
	TransportPreferences   []string `json:"transport_preferences,omitempty"`
	CuisinePreferences     []string `json:"cuisine_preferences,omitempty"`

	// Derived on every Read.
	CurrentDate    string `json:"current_date,omitempty"`
	CurrentTime    string `json:"current_time,omitempty"`
	CurrentWeekday string `json:"current_weekday,omitempty"`

	SmarthomeLight   *telemetry.LightAggregate   `json:"smarthome_light,omitempty"`
	SmarthomeClimate *telemetry.ClimateAggregate `json:"smarthome_climate,omitempty"`

	// SmarthomeDashboard is the last AI-authored skeleton, stored verbatim.
	SmarthomeDashboard json.RawMessage `json:"smarthome_dashboard,omitempty"`
}

// Fields is a partial document for Update, keyed by JSON field name.
type Fields map[string]any

// NewDocument returns the minimal document created for an unknown user.
func NewDocument(user string) *Document {
	return &Document{UserID: user, UserName: user}
}

// HasDashboard reports whether an AI skeleton is cached.
func (d *Document) HasDashboard() bool {
	s := string(d.SmarthomeDashboard)
	return len(s) > 0 && s != "null"
}

// Materialize fills the derived date and time fields from now, in the user's
// timezone when it is set and loadable, otherwise in the server's zone.
func Materialize(doc *Document, now time.Time) {
	loc := time.Local
	if doc.UserTimezone != "" {
		if l, err := time.LoadLocation(doc.UserTimezone); err == nil {
			loc = l
		}
	}
	t := now.In(loc)
	doc.CurrentDate = t.Format(DateLayout)
	doc.CurrentTime = t.Format(TimeLayout)
	doc.CurrentWeekday = t.Weekday().String()
}

func (d *Document) validate() error {
	if d.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidDocument)
	}
	return nil
}
