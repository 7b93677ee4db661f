package geo

import (
	"github.com/golang/geo/s2"
)

// EarthRadiusMeters — средний радиус Земли
const EarthRadiusMeters = 6371000.0

// Haversine возвращает great-circle расстояние между точками в метрах
func Haversine(a, b Point) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}
