package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"rentstats/server/internal/models"
)

// Listings is the read-only view the filter iterates over. Both a store
// snapshot and a previous selection satisfy it.
type Listings interface {
	Len() int
	At(i int) models.Listing
}

// Selection adapts a slice of listings to the Listings view.
type Selection []models.Listing

func (s Selection) Len() int                { return len(s) }
func (s Selection) At(i int) models.Listing { return s[i] }

// Point converts a latitude/longitude pair into an orb point (lon, lat order).
func Point(lat, lng float64) orb.Point {
	return orb.Point{lng, lat}
}

// DistanceKm returns the great-circle distance between two coordinates
// using the haversine formula.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	return geo.DistanceHaversine(Point(lat1, lng1), Point(lat2, lng2)) / 1000
}

// Select returns the listings within q.RadiusKm of the query center that pass
// the living-space and room filters, in source order. The query is expected
// to be normalized. A positive q.Limit stops the scan after that many matches.
func Select(listings Listings, q models.RegionQuery) []models.Listing {
	center := Point(q.Latitude, q.Longitude)
	radiusMeters := q.RadiusKm * 1000
	rooms := q.RoomSet()

	bound, useBound := searchBound(center, radiusMeters)

	selected := make([]models.Listing, 0)
	n := listings.Len()
	for i := 0; i < n; i++ {
		l := listings.At(i)

		if l.LivingSpace < q.MinLivingSpace || l.LivingSpace > q.MaxLivingSpace {
			continue
		}
		if rooms != nil && (l.Rooms == nil || !rooms[*l.Rooms]) {
			continue
		}

		p := Point(l.Latitude, l.Longitude)
		if useBound && !bound.Contains(p) {
			continue
		}
		if geo.DistanceHaversine(center, p) > radiusMeters {
			continue
		}

		selected = append(selected, l)
		if q.Limit > 0 && len(selected) >= q.Limit {
			break
		}
	}

	return selected
}

// searchBound returns a box enclosing the search circle, padded so rounding
// never excludes a point on the circle. Boxes crossing the antimeridian are
// not used.
func searchBound(center orb.Point, radiusMeters float64) (orb.Bound, bool) {
	bound := geo.NewBoundAroundPoint(center, radiusMeters)
	if bound.Min[0] > bound.Max[0] {
		return bound, false
	}
	return bound.Pad(1e-6), true
}
