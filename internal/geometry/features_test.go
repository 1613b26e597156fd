package geometry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentstats/server/internal/models"
)

func TestCircle(t *testing.T) {
	ring := Circle(52.52, 13.405, 5)

	require.Len(t, ring, circleSegments+1)
	assert.Equal(t, ring[0], ring[len(ring)-1])
	for _, p := range ring[:len(ring)-1] {
		assert.InDelta(t, 5.0, DistanceKm(52.52, 13.405, p[1], p[0]), 0.01)
	}
}

func TestRegionFeatures(t *testing.T) {
	inequality := 1.25
	snapshots := []models.RegionSnapshot{
		{
			Region: "mitte", Latitude: 52.52, Longitude: 13.405, RadiusKm: 3, Ranked: true,
			Total: 120, AvgPricePerSqm: 17.5, StdErr: 0.4, InequalityIndex: &inequality,
			Deciles: []float64{10, 11, 12, 13, 14, 15, 16, 17, 18}, ComputedAt: time.Now(),
		},
		{
			Region: "empty", Latitude: 48.1, Longitude: 11.5, RadiusKm: 2,
			InsufficientData: true, ComputedAt: time.Now(),
		},
	}

	fc := RegionFeatures(snapshots)
	require.Len(t, fc.Features, 2)

	first := fc.Features[0]
	assert.Equal(t, "mitte", first.ID)
	_, isPolygon := first.Geometry.(orb.Polygon)
	assert.True(t, isPolygon)
	assert.Equal(t, 17.5, first.Properties["avg_price_per_sqm"])
	assert.Equal(t, 1.25, first.Properties["inequality_index"])

	second := fc.Features[1]
	_, hasPrice := second.Properties["avg_price_per_sqm"]
	assert.False(t, hasPrice)
	_, hasInequality := second.Properties["inequality_index"]
	assert.False(t, hasInequality)

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"FeatureCollection"`)
}
