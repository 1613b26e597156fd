package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"rentstats/server/internal/models"
)

// circleSegments is the number of vertices used to approximate a region circle.
const circleSegments = 64

// Circle approximates the circle of radiusKm around (lat, lng) as a closed ring.
func Circle(lat, lng, radiusKm float64) orb.Ring {
	center := Point(lat, lng)
	ring := make(orb.Ring, 0, circleSegments+1)
	for i := 0; i < circleSegments; i++ {
		bearing := 360.0 * float64(i) / circleSegments
		ring = append(ring, geo.PointAtBearingAndDistance(center, bearing, radiusKm*1000))
	}
	// Close the ring
	ring = append(ring, ring[0])
	return ring
}

// RegionFeature builds a GeoJSON polygon feature for a region snapshot with
// its stats as properties.
func RegionFeature(s models.RegionSnapshot) *geojson.Feature {
	feature := geojson.NewFeature(orb.Polygon{Circle(s.Latitude, s.Longitude, s.RadiusKm)})
	feature.ID = s.Region
	feature.Properties = geojson.Properties{
		"region":            s.Region,
		"center":            []float64{s.Latitude, s.Longitude},
		"radius_km":         s.RadiusKm,
		"ranked":            s.Ranked,
		"total":             s.Total,
		"insufficient_data": s.InsufficientData,
		"deciles":           s.Deciles,
		"computed_at":       s.ComputedAt,
	}
	if !s.InsufficientData {
		feature.Properties["avg_price_per_sqm"] = s.AvgPricePerSqm
		feature.Properties["std_err"] = s.StdErr
	}
	if s.InequalityIndex != nil {
		feature.Properties["inequality_index"] = *s.InequalityIndex
	}
	return feature
}

// RegionFeatures collects region snapshots into a FeatureCollection.
func RegionFeatures(snapshots []models.RegionSnapshot) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range snapshots {
		fc.Append(RegionFeature(s))
	}
	return fc
}
