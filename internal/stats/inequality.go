package stats

import (
	"math"

	"rentstats/server/internal/models"
)

// NeighborhoodSlopes regresses each neighborhood of the selection on its own
// and returns the slopes of neighborhoods with enough data. Listings without
// a neighborhood are ignored.
func NeighborhoodSlopes(listings []models.Listing) map[string]float64 {
	partitions := make(map[string][]models.Listing)
	for _, l := range listings {
		if l.Neighborhood == "" {
			continue
		}
		partitions[l.Neighborhood] = append(partitions[l.Neighborhood], l)
	}

	slopes := make(map[string]float64, len(partitions))
	for name, part := range partitions {
		reg, err := Regress(part)
		if err != nil {
			continue
		}
		slopes[name] = reg.Slope
	}
	return slopes
}

// InequalityIndex is the population standard deviation of the per-neighborhood
// slopes. It returns nil when fewer than two neighborhoods have a slope.
func InequalityIndex(listings []models.Listing) *float64 {
	slopes := NeighborhoodSlopes(listings)
	if len(slopes) < 2 {
		return nil
	}

	values := make([]float64, 0, len(slopes))
	for _, s := range slopes {
		values = append(values, s)
	}
	sd := StdDev(values)
	return &sd
}

// StdDev returns the population standard deviation of values.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}
