// Package mqtt connects homedash to an MQTT broker.
//
// The broker is the telemetry bus: climate sensors publish readings to
// homedash/climate/<sensor>/state, and every poll cycle publishes the
// recomputed light and climate aggregates as retained messages on
// homedash/telemetry/<category>. A retained system status with an LWT lets
// other consumers notice when homedash goes away.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if errors.Is(err, mqtt.ErrDisabled) {
//	    // run without the bus
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().AllClimateSensorStates(), 1, handler)
package mqtt
