package telemetry

import "github.com/nerrad567/homedash/internal/device"

// Measurement names for history points.
const (
	MeasurementLight   = "light"
	MeasurementClimate = "climate"
)

// Recorder writes time-series points.
// Satisfied by *influxdb.Client.
type Recorder interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]any)
}

// RecordLights writes one point per light.
func RecordLights(rec Recorder, devices []device.Device) {
	if rec == nil {
		return
	}
	for _, d := range devices {
		fields := map[string]any{
			"power":     d.Power,
			"connected": d.Connected,
		}
		if d.Brightness > 0 {
			fields["brightness"] = d.Brightness
		}
		if d.ColorTemp > 0 {
			fields["color_temp"] = d.ColorTemp
		}
		rec.WritePoint(MeasurementLight, map[string]string{
			"device_id": d.ID,
			"name":      d.Name,
			"room":      d.Room,
		}, fields)
	}
}

// RecordClimate writes one point per sensor reading.
func RecordClimate(rec Recorder, readings []Reading) {
	if rec == nil {
		return
	}
	for _, r := range readings {
		fields := map[string]any{"temperature": r.Temperature}
		if r.Humidity != nil {
			fields["humidity"] = *r.Humidity
		}
		rec.WritePoint(MeasurementClimate, map[string]string{
			"sensor": r.Sensor,
			"room":   r.Room,
		}, fields)
	}
}
