// Package geo provides the small amount of spherical geometry the sampler
// and labeler need.
package geo

import "math"

// EarthRadiusKM is the mean Earth radius used for haversine distances.
const EarthRadiusKM = 6371.0

// Haversine returns the great-circle distance in kilometres between two
// lat/lon points in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKM * math.Asin(math.Min(1, math.Sqrt(a)))
}

// SnapToGrid rounds a coordinate to the nearest multiple of cell degrees,
// half away from zero.
func SnapToGrid(v, cell float64) float64 {
	return math.Round(v/cell) * cell
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
