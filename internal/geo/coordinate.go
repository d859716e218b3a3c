// Package geo holds the coordinate value type shared by the store and the
// geofence synchronizer.
package geo

import "math"

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// New builds a Coordinate. A non-finite component is coerced to 0.0 rather
// than rejected, so a Coordinate is always storable.
func New(latitude, longitude float64) Coordinate {
	if !isFinite(latitude) {
		latitude = 0.0
	}
	if !isFinite(longitude) {
		longitude = 0.0
	}
	return Coordinate{Latitude: latitude, Longitude: longitude}
}

// Valid reports whether the pair can back a monitored region: both
// components finite and within WGS84 bounds.
func (c Coordinate) Valid() bool {
	return isFinite(c.Latitude) && isFinite(c.Longitude) &&
		c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
