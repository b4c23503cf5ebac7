package telemetry

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrNoReadings is returned when there is nothing to aggregate.
var ErrNoReadings = errors.New("telemetry: no climate readings")

// ClimateIcon is shown for every climate sensor.
const ClimateIcon = "thermometer"

// Reading is the latest report from one climate sensor.
type Reading struct {
	Sensor      string    `json:"sensor"`
	Name        string    `json:"name,omitempty"`
	Room        string    `json:"room,omitempty"`
	Temperature float64   `json:"temperature"`
	Humidity    *float64  `json:"humidity,omitempty"`
	At          time.Time `json:"at"`
}

// ComfortBand is the temperature range, in °C, considered comfortable.
type ComfortBand struct {
	Low  float64
	High float64
}

// Color maps a temperature to blue (cold), green (comfortable) or red (hot).
func (b ComfortBand) Color(temp float64) string {
	switch {
	case temp < b.Low:
		return ColorBlue
	case temp > b.High:
		return ColorRed
	default:
		return ColorGreen
	}
}

// ClimateAggregate summarises the latest climate readings.
type ClimateAggregate struct {
	AverageTemp     float64         `json:"average_temp"`
	AverageHumidity *float64        `json:"average_humidity"`
	Devices         []DeviceDisplay `json:"devices"`
}

// BuildClimateAggregate averages readings and renders one display per
// sensor. Readings older than staleAfter (when positive) are drawn outlined.
func BuildClimateAggregate(readings []Reading, band ComfortBand, staleAfter time.Duration, now time.Time) (ClimateAggregate, error) {
	if len(readings) == 0 {
		return ClimateAggregate{}, ErrNoReadings
	}

	var (
		tempSum, humSum float64
		humCount        int
		devices         = make([]DeviceDisplay, 0, len(readings))
	)
	for _, r := range readings {
		tempSum += r.Temperature
		if r.Humidity != nil {
			humSum += *r.Humidity
			humCount++
		}

		stale := staleAfter > 0 && !r.At.IsZero() && now.Sub(r.At) > staleAfter
		variant := VariantSolid
		if stale {
			variant = VariantOutline
		}
		name := r.Name
		if name == "" {
			name = r.Sensor
		}
		devices = append(devices, DeviceDisplay{
			Name:    name,
			Room:    r.Room,
			Icon:    ClimateIcon,
			Color:   band.Color(r.Temperature),
			Variant: variant,
			Tooltip: climateTooltip(r, stale),
		})
	}

	agg := ClimateAggregate{
		AverageTemp: round1(tempSum / float64(len(readings))),
		Devices:     devices,
	}
	if humCount > 0 {
		h := round1(humSum / float64(humCount))
		agg.AverageHumidity = &h
	}
	return agg, nil
}

func climateTooltip(r Reading, stale bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%.1f°C", r.Temperature)
	if r.Humidity != nil {
		fmt.Fprintf(&b, ", %.0f%%", *r.Humidity)
	}
	if stale {
		b.WriteString(" (stale)")
	}
	return b.String()
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
