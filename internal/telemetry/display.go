package telemetry

// Display colours.
const (
	ColorOrange = "orange"
	ColorGray   = "gray"
	ColorBlue   = "blue"
	ColorGreen  = "green"
	ColorRed    = "red"
)

// Display variants.
const (
	VariantSolid   = "solid"
	VariantOutline = "outline"
)

// DeviceDisplay is how one device is rendered inside a dashboard tile.
type DeviceDisplay struct {
	Name    string `json:"name"`
	Room    string `json:"room,omitempty"`
	Icon    string `json:"icon"`
	Color   string `json:"color"`
	Variant string `json:"variant"`
	Tooltip string `json:"tooltip"`
}
