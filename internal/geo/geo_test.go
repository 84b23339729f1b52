package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineSymmetricNonNegative(t *testing.T) {
	a := GeoPoint{Lat: 39.7, Lng: -105.0}
	b := GeoPoint{Lat: 39.8, Lng: -104.9}

	ab := Haversine(a, b)
	ba := Haversine(b, a)

	assert.InDelta(t, ab, ba, 1e-12)
	assert.GreaterOrEqual(t, ab, 0.0)
	assert.Zero(t, Haversine(a, a))
}

func TestHaversineKnownDistance(t *testing.T) {
	// One degree of latitude is roughly 111 km.
	a := GeoPoint{Lat: 39.0, Lng: -105.0}
	b := GeoPoint{Lat: 40.0, Lng: -105.0}
	assert.InDelta(t, 111.2, Haversine(a, b), 0.5)
}

func TestInterpolate(t *testing.T) {
	a := GeoPoint{Lat: 10, Lng: 20, Alt: 100}
	b := GeoPoint{Lat: 20, Lng: 40, Alt: 200}

	mid := Interpolate(a, b, 0.5)
	assert.Equal(t, GeoPoint{Lat: 15, Lng: 30, Alt: 150}, mid)

	assert.Equal(t, a, Interpolate(a, b, 0))
	assert.Equal(t, b, Interpolate(a, b, 1))
	// Fractions are clamped.
	assert.Equal(t, a, Interpolate(a, b, -0.5))
	assert.Equal(t, b, Interpolate(a, b, 1.5))
}

func TestDist(t *testing.T) {
	assert.InDelta(t, 5, Dist(MetricPoint{X: 0, Y: 0}, MetricPoint{X: 3, Y: 4}), 1e-12)
}

func TestProjectorRoundTrip(t *testing.T) {
	p, err := NewProjector(DefaultProj4)
	require.NoError(t, err)

	for _, g := range []GeoPoint{
		{Lat: 39.7392, Lng: -104.9903},
		{Lat: 38.8339, Lng: -104.8214},
		{Lat: 40.0150, Lng: -105.2705},
	} {
		m, err := p.ToMetric(g)
		require.NoError(t, err)
		back, err := p.ToGeo(m)
		require.NoError(t, err)
		assert.InDelta(t, g.Lat, back.Lat, 1e-6)
		assert.InDelta(t, g.Lng, back.Lng, 1e-6)
	}
}

func TestProjectorRejectsGarbage(t *testing.T) {
	_, err := NewProjector("+proj=notaprojection")
	assert.Error(t, err)
}
