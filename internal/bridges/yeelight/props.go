package yeelight

import "github.com/nerrad567/homedash/internal/device"

// propNames are requested from get_prop in this order.
var propNames = []string{"power", "bright", "ct", "rgb", "color_mode", "name"}

// Yeelight color_mode values.
const (
	colorModeRGB = "1"
	colorModeCT  = "2"
	colorModeHSV = "3"
)

// normalizeProps converts raw bulb properties to device.Properties.
// Empty values (properties the model does not have) are dropped.
func normalizeProps(raw map[string]string) device.Properties {
	props := make(device.Properties, len(raw))
	for k, v := range raw {
		if v == "" {
			continue
		}
		props[k] = v
	}

	switch raw["color_mode"] {
	case colorModeRGB, colorModeHSV:
		props[device.PropColorMode] = string(device.ColorModeColor)
	case colorModeCT:
		props[device.PropColorMode] = string(device.ColorModeTemperature)
	default:
		delete(props, device.PropColorMode)
	}
	return props
}
