// Package influxdb writes device telemetry history to InfluxDB 2.x.
//
// Each poll cycle records one point per light (measurement "light": power,
// brightness, colour temperature, connected) and one per climate sensor
// (measurement "climate": temperature, humidity). The dashboard itself never
// reads history back; the data is for Grafana and similar tools.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // history is optional
//	}
package influxdb
