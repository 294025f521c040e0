package geo

import "math"

// Point represents a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Region is an axis-aligned lat/lng bounding box. It is a plain value type:
// recomputed on every viewport change, never mutated in place.
//
// Antimeridian and pole wraparound are not handled. Viewports are expected
// to be city-scale, so NELat >= SWLat and NELng >= SWLng always hold.
type Region struct {
	NELat float64 `json:"ne_lat"`
	NELng float64 `json:"ne_lng"`
	SWLat float64 `json:"sw_lat"`
	SWLng float64 `json:"sw_lng"`
}

// NewRegion builds a region from a center point and full lat/lng spans,
// adding half the span on each side.
func NewRegion(center Point, latSpan, lngSpan float64) Region {
	halfLat := latSpan / 2
	halfLng := lngSpan / 2

	return Region{
		NELat: center.Lat + halfLat,
		NELng: center.Lng + halfLng,
		SWLat: center.Lat - halfLat,
		SWLng: center.Lng - halfLng,
	}
}

// Contains reports whether inner lies entirely within r on all four bounds.
// This is a strict bounding-box test, not geodesic.
func (r Region) Contains(inner Region) bool {
	return r.NELat >= inner.NELat &&
		r.NELng >= inner.NELng &&
		r.SWLat <= inner.SWLat &&
		r.SWLng <= inner.SWLng
}

// Inflated returns the region expanded symmetrically by factor times its
// own extent on each side. A factor of 0 is the identity; 0.25 grows a
// viewport into a prefetch margin half again as large in each dimension.
func (r Region) Inflated(factor float64) Region {
	latDelta := r.NELat - r.SWLat
	lngDelta := r.NELng - r.SWLng

	return Region{
		NELat: r.NELat + latDelta*factor,
		NELng: r.NELng + lngDelta*factor,
		SWLat: r.SWLat - latDelta*factor,
		SWLng: r.SWLng - lngDelta*factor,
	}
}

// Area returns the region's area in square degrees.
func (r Region) Area() float64 {
	return math.Abs(r.NELat-r.SWLat) * math.Abs(r.NELng-r.SWLng)
}

// Center returns the midpoint of the region.
func (r Region) Center() Point {
	return Point{
		Lat: (r.NELat + r.SWLat) / 2,
		Lng: (r.NELng + r.SWLng) / 2,
	}
}
