package domain

import "math"

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371

// DistanceKm computes the great-circle distance between two WGS-84
// coordinates using the haversine formula. Identical points return 0.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// IsWithinAlertArea reports whether the user location falls inside the
// alert's geofence. The boundary is inclusive: a point exactly at the radius
// is inside.
func IsWithinAlertArea(loc UserLocation, area AlertArea) bool {
	return DistanceKm(loc.Latitude, loc.Longitude, area.Latitude, area.Longitude) <= area.RadiusKm
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
