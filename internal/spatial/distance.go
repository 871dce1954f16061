// Package spatial computes straight-line distances and commute estimates.
package spatial

import (
	"math"

	"github.com/golang/geo/s2"

	"github.com/jukenmap/jukenmap/internal/model"
)

// EarthRadiusKm is the mean Earth radius used for all distances.
const EarthRadiusKm = 6371.0

// MinutesPerKm is the urban rail rule of thumb behind EstimateCommuteMinutes.
const MinutesPerKm = 3.5

// DistanceKm returns the haversine great-circle distance in kilometres.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	// Fixed argument order keeps the result bit-for-bit symmetric.
	if lat2 < lat1 || (lat2 == lat1 && lng2 < lng1) {
		lat1, lng1, lat2, lng2 = lat2, lng2, lat1, lng1
	}
	p1 := s2.LatLngFromDegrees(lat1, lng1)
	p2 := s2.LatLngFromDegrees(lat2, lng2)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// Distance is DistanceKm for two coordinates.
func Distance(a, b model.Coordinate) float64 {
	return DistanceKm(a.Lat, a.Lng, b.Lat, b.Lng)
}

// EstimateCommuteMinutes approximates door-to-door rail time from a
// straight-line distance. It is a heuristic, not a routing result.
func EstimateCommuteMinutes(distanceKm float64) int {
	return int(math.Round(distanceKm * MinutesPerKm))
}
