package stats

import (
	"math"
	"sort"

	"rentstats/server/internal/models"
)

// Deciles returns the nine decile boundaries of per-listing rent per square
// meter, ascending. Boundary k (1..9) interpolates linearly between the
// sorted values at 0-based rank k*(n-1)/10. Fewer than two listings yield an
// empty slice.
func Deciles(listings []models.Listing) []float64 {
	n := len(listings)
	if n < 2 {
		return []float64{}
	}

	values := make([]float64, n)
	for i, l := range listings {
		values[i] = l.PricePerSqm()
	}
	sort.Float64s(values)

	out := make([]float64, 9)
	for k := 1; k <= 9; k++ {
		out[k-1] = interpolate(values, float64(k*(n-1))/10)
	}
	return out
}

func interpolate(sorted []float64, rank float64) float64 {
	lo := int(math.Floor(rank))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
