package domain

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/umahmood/haversine"
)

// Immutable geographic coordinates (latitude, longitude) in degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Return coordinates as a [lon, lat] point for GeoJSON compatibility.
func (c Coordinates) Point() orb.Point { return orb.Point{c.Lon, c.Lat} }

// Validate reports coordinates that are non-finite or outside the
// [-90,90] x [-180,180] range.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) {
		return fmt.Errorf("coordinates: non-finite value (lat=%v, lon=%v)", c.Lat, c.Lon)
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("coordinates: latitude %v out of range [-90, 90]", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("coordinates: longitude %v out of range [-180, 180]", c.Lon)
	}
	return nil
}

// DistanceKm returns the great-circle distance to o in kilometers.
func (c Coordinates) DistanceKm(o Coordinates) float64 {
	_, km := haversine.Distance(
		haversine.Coord{Lat: c.Lat, Lon: c.Lon},
		haversine.Coord{Lat: o.Lat, Lon: o.Lon},
	)
	return km
}

func (c Coordinates) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", c.Lat, c.Lon)
}
