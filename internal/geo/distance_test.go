package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const tolerance = 1e-9

var samplePoints = []Point{
	{40.4168, -3.7038},  // Madrid
	{41.3874, 2.1686},   // Barcelona
	{37.3891, -5.9845},  // Sevilla
	{43.2630, -2.9350},  // Bilbao
	{28.1235, -15.4363}, // Las Palmas
	{0, 0},
	{-33.8688, 151.2093},
	{89.9, 179.9},
}

func TestDistanceKm_SamePointIsZero(t *testing.T) {
	for _, p := range samplePoints {
		assert.InDelta(t, 0, DistanceKm(p.Lat, p.Lon, p.Lat, p.Lon), tolerance)
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	for _, a := range samplePoints {
		for _, b := range samplePoints {
			assert.InDelta(t, Distance(a, b), Distance(b, a), tolerance)
		}
	}
}

func TestDistanceKm_TriangleInequality(t *testing.T) {
	for _, a := range samplePoints {
		for _, b := range samplePoints {
			for _, c := range samplePoints {
				assert.LessOrEqual(t, Distance(a, c), Distance(a, b)+Distance(b, c)+1e-6)
			}
		}
	}
}

func TestDistanceKm_KnownDistances(t *testing.T) {
	// Мадрид - Барселона по прямой около 505 км.
	assert.InDelta(t, 505, Distance(samplePoints[0], samplePoints[1]), 5)
	// Один градус широты - около 111.19 км.
	assert.InDelta(t, 111.19, DistanceKm(40, -3, 41, -3), 0.01)
	// Антиподы - половина окружности.
	assert.InDelta(t, math.Pi*EarthRadiusKm, DistanceKm(0, 0, 0, 180), 1e-6)
}

func TestDistanceKm_NaNPropagates(t *testing.T) {
	assert.True(t, math.IsNaN(DistanceKm(math.NaN(), 0, 1, 1)))
	assert.True(t, math.IsNaN(DistanceKm(0, 0, 1, math.NaN())))
}

func TestPoint_Valid(t *testing.T) {
	assert.True(t, Point{40, -3}.Valid())
	assert.True(t, Point{-90, 180}.Valid())
	assert.False(t, Point{91, 0}.Valid())
	assert.False(t, Point{0, -181}.Valid())
	assert.False(t, Point{math.NaN(), 0}.Valid())
	assert.False(t, Point{0, math.Inf(1)}.Valid())
}
