package telemetry

import (
	"fmt"
	"strings"

	"github.com/nerrad567/homedash/internal/device"
)

// LightAggregate summarises every known light.
type LightAggregate struct {
	OnCount    int             `json:"on_count"`
	TotalCount int             `json:"total_count"`
	Devices    []DeviceDisplay `json:"devices"`
}

// BuildLightAggregate summarises devices in the order given.
func BuildLightAggregate(devices []device.Device) LightAggregate {
	agg := LightAggregate{
		TotalCount: len(devices),
		Devices:    make([]DeviceDisplay, 0, len(devices)),
	}
	for _, d := range devices {
		color, variant := ColorGray, VariantOutline
		if d.IsOn() {
			agg.OnCount++
			color, variant = ColorOrange, VariantSolid
		}
		icon := d.Icon
		if icon == "" {
			icon = device.DefaultIcon
		}
		agg.Devices = append(agg.Devices, DeviceDisplay{
			Name:    d.Name,
			Room:    d.Room,
			Icon:    icon,
			Color:   color,
			Variant: variant,
			Tooltip: LightTooltip(d),
		})
	}
	return agg
}

// LightTooltip describes a light's state, e.g. "On, 75%, 2700K".
func LightTooltip(d device.Device) string {
	var b strings.Builder
	if !d.IsOn() {
		b.WriteString("Off")
	} else {
		b.WriteString("On")
		if d.Brightness > 0 {
			fmt.Fprintf(&b, ", %d%%", d.Brightness)
		}
		switch {
		case d.ColorMode == device.ColorModeColor:
			b.WriteString(", " + d.HexRGB())
		case d.ColorTemp > 0:
			fmt.Fprintf(&b, ", %dK", d.ColorTemp)
		}
	}
	if !d.Connected {
		b.WriteString(" (offline)")
	}
	return b.String()
}
