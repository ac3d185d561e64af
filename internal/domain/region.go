package domain

import (
	"math"

	"github.com/golang/geo/s2"
)

// BoundingRegion is a latitude/longitude box given by its south-west and
// north-east corners. Regions crossing the antimeridian are not supported.
type BoundingRegion struct {
	SW   Coordinates
	NE   Coordinates
	rect s2.Rect
}

func NewBoundingRegion(sw, ne Coordinates) BoundingRegion {
	rect := s2.RectFromLatLng(s2.LatLngFromDegrees(sw.Lat, sw.Lon)).
		AddPoint(s2.LatLngFromDegrees(ne.Lat, ne.Lon))
	return BoundingRegion{SW: sw, NE: ne, rect: rect}
}

// Contains reports whether c lies inside the region, edges included.
func (r BoundingRegion) Contains(c Coordinates) bool {
	return r.rect.ContainsLatLng(s2.LatLngFromDegrees(c.Lat, c.Lon))
}

// Center returns the midpoint of the region.
func (r BoundingRegion) Center() Coordinates {
	ll := r.rect.Center()
	return Coordinates{Lat: ll.Lat.Degrees(), Lon: ll.Lng.Degrees()}
}

// Clamp returns the point of the region closest to c in degree space.
// Points already inside are returned unchanged.
func (r BoundingRegion) Clamp(c Coordinates) Coordinates {
	if r.Contains(c) {
		return c
	}
	return Coordinates{
		Lat: math.Max(r.SW.Lat, math.Min(r.NE.Lat, c.Lat)),
		Lon: math.Max(r.SW.Lon, math.Min(r.NE.Lon, c.Lon)),
	}
}
