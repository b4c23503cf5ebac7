package telemetry

import (
	"testing"

	"github.com/nerrad567/homedash/internal/device"
)

func TestBuildLightAggregate(t *testing.T) {
	devices := []device.Device{
		{ID: "a", Name: "Desk", Power: true, Brightness: 75, ColorTemp: 2700,
			ColorMode: device.ColorModeTemperature, Connected: true, Icon: "lamp"},
		{ID: "b", Name: "Hall", Power: false, Connected: true},
		{ID: "c", Name: "Porch", Power: true, Brightness: 40, RGB: 0xFF0000,
			ColorMode: device.ColorModeColor, Connected: false},
	}

	agg := BuildLightAggregate(devices)

	if agg.OnCount != 2 || agg.TotalCount != 3 {
		t.Fatalf("OnCount = %d, TotalCount = %d; want 2, 3", agg.OnCount, agg.TotalCount)
	}
	if len(agg.Devices) != 3 {
		t.Fatalf("len(Devices) = %d", len(agg.Devices))
	}

	want := []DeviceDisplay{
		{Name: "Desk", Icon: "lamp", Color: ColorOrange, Variant: VariantSolid, Tooltip: "On, 75%, 2700K"},
		{Name: "Hall", Icon: device.DefaultIcon, Color: ColorGray, Variant: VariantOutline, Tooltip: "Off"},
		{Name: "Porch", Icon: device.DefaultIcon, Color: ColorOrange, Variant: VariantSolid, Tooltip: "On, 40%, #ff0000 (offline)"},
	}
	for i, w := range want {
		if agg.Devices[i] != w {
			t.Errorf("Devices[%d] = %+v, want %+v", i, agg.Devices[i], w)
		}
	}
}

func TestBuildLightAggregate_Empty(t *testing.T) {
	agg := BuildLightAggregate(nil)
	if agg.OnCount != 0 || agg.TotalCount != 0 {
		t.Errorf("agg = %+v", agg)
	}
	if agg.Devices == nil {
		t.Error("Devices is nil, want empty slice so it encodes as []")
	}
}

func TestLightTooltip(t *testing.T) {
	tests := []struct {
		name string
		dev  device.Device
		want string
	}{
		{"off offline", device.Device{}, "Off (offline)"},
		{"on without brightness", device.Device{Power: true, Connected: true}, "On"},
		{"on temperature", device.Device{Power: true, Brightness: 10, ColorTemp: 6500, Connected: true}, "On, 10%, 6500K"},
		{"on colour invalid rgb", device.Device{Power: true, Brightness: 5, ColorMode: device.ColorModeColor, RGB: -1, Connected: true}, "On, 5%, #ffffff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LightTooltip(tt.dev); got != tt.want {
				t.Errorf("LightTooltip() = %q, want %q", got, tt.want)
			}
		})
	}
}
