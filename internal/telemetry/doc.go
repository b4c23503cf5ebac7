// Package telemetry turns live device data into the aggregates shown on the
// dashboard's light and climate tiles.
//
// Aggregates are always rebuilt from the full current device or reading set,
// never updated incrementally, so counts cannot drift from the devices they
// summarise.
package telemetry
