// Package geo содержит расчет расстояний между координатами.
package geo

import "math"

// EarthRadiusKm - средний радиус Земли, используемый формулой гаверсинуса.
const EarthRadiusKm = 6371.0

// Point - пара координат в десятичных градусах.
type Point struct {
	Lat float64
	Lon float64
}

// Valid: обе координаты конечны и лежат в допустимых диапазонах.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// DistanceKm - расстояние по дуге большого круга в километрах.
// Диапазоны не проверяются, NaN во входе дает NaN на выходе.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	φ1 := toRadians(lat1)
	φ2 := toRadians(lat2)
	dφ := toRadians(lat2 - lat1)
	dλ := toRadians(lon2 - lon1)

	a := math.Sin(dφ/2)*math.Sin(dφ/2) +
		math.Cos(φ1)*math.Cos(φ2)*math.Sin(dλ/2)*math.Sin(dλ/2)
	// a может выйти за 1 на величину ошибки округления у антиподов.
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// Distance - то же, что DistanceKm, для двух точек.
func Distance(a, b Point) float64 {
	return DistanceKm(a.Lat, a.Lon, b.Lat, b.Lon)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
