// Package geo provides the distance calculation used by radius search.
//
// The report query path treats distance as a pluggable collaborator; this
// package supplies the default great-circle implementation.
package geo

import "math"

// DistanceFunc returns the distance in kilometers between two coordinates.
type DistanceFunc func(lat1, lon1, lat2, lon2 float64) float64

const earthRadiusKm = 6371.0

// Haversine computes the great-circle distance in kilometers.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
