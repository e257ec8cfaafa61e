// Package geo provides great-circle distance and region inference helpers.
package geo

import (
	"math"

	"github.com/abnvle/ha-imgw-pib-monitor/internal/imgw"
)

const earthRadiusKM = 6371.0

// Haversine returns the great-circle distance between two points in km,
// assuming a spherical Earth. Accurate to roughly 0.5% at the distances
// station searches operate on.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// NearestVoivodeship returns the TERYT prefix of the voivodeship whose
// capital is closest to the given point. Used as a fallback when reverse
// geocoding cannot resolve a region.
func NearestVoivodeship(lat, lon float64) string {
	best := ""
	bestDist := math.MaxFloat64
	for code, c := range imgw.VoivodeshipCapitals {
		d := Haversine(lat, lon, c.Lat, c.Lon)
		if d < bestDist {
			bestDist = d
			best = code
		}
	}
	return best
}
