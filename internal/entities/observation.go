// Package entities contains the core domain objects for the weather pipeline
package entities

import (
	"time"
)

// Observation represents one hourly weather record from an INMET
// automatic station. Measurement fields are nil when the station
// reported no value (the portal encodes those as -9999).
type Observation struct {
	ID          int64
	Station     string    // Station name as published by the portal
	StationCode string    // Automatic station code, e.g. A740
	Timestamp   time.Time // Observation date and hour, UTC

	TempMean *float64 // Dry-bulb air temperature, °C
	TempMax  *float64 // Maximum temperature in the previous hour, °C
	TempMin  *float64 // Minimum temperature in the previous hour, °C
	Humidity *float64 // Relative humidity, %
	Pressure *float64 // Station-level atmospheric pressure, mB
	Precip   *float64 // Total precipitation, mm
	WindSpd  *float64 // Wind speed, m/s
}

// Key identifies an observation: one station never has two records for
// the same timestamp.
type Key struct {
	Station   string
	Timestamp time.Time
}

// Key returns the identity of the observation.
func (o Observation) Key() Key {
	return Key{Station: o.Station, Timestamp: o.Timestamp}
}

// Float returns a pointer to v, for building observations in tests and
// parsers.
func Float(v float64) *float64 {
	return &v
}
