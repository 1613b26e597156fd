package ranking

import (
	"fmt"
	"sort"

	"rentstats/server/internal/models"
)

// Indicator selects the value regions are ranked by.
type Indicator int

const (
	IndicatorAvgPricePerSqm Indicator = iota
	IndicatorTotal
	IndicatorInequality
)

// String returns the string representation of an Indicator
func (i Indicator) String() string {
	switch i {
	case IndicatorAvgPricePerSqm:
		return "avg_price_per_sqm"
	case IndicatorTotal:
		return "total"
	case IndicatorInequality:
		return "inequality_index"
	default:
		return "unknown"
	}
}

// ParseIndicator maps a query parameter to an Indicator. An empty string
// selects the average price per square meter.
func ParseIndicator(s string) (Indicator, error) {
	switch s {
	case "", "avg_price_per_sqm":
		return IndicatorAvgPricePerSqm, nil
	case "total":
		return IndicatorTotal, nil
	case "inequality_index":
		return IndicatorInequality, nil
	default:
		return 0, models.NewQueryError("by", "unknown ranking indicator %q", s)
	}
}

// Value returns the indicator's value for a snapshot and whether the snapshot
// has one.
func (i Indicator) Value(s models.RegionSnapshot) (float64, bool) {
	switch i {
	case IndicatorAvgPricePerSqm:
		if s.InsufficientData {
			return 0, false
		}
		return s.AvgPricePerSqm, true
	case IndicatorTotal:
		return float64(s.Total), true
	case IndicatorInequality:
		if s.InequalityIndex == nil {
			return 0, false
		}
		return *s.InequalityIndex, true
	default:
		panic(fmt.Sprintf("ranking: unknown indicator %d", int(i)))
	}
}

// Entry is one ranked region.
type Entry struct {
	Rank     int                   `json:"rank"`
	Value    float64               `json:"value"`
	Snapshot models.RegionSnapshot `json:"region"`
}

// Rank orders ranked-eligible snapshots by the indicator, highest first.
// Snapshots without a value for the indicator are left out; ties are broken
// by region name.
func Rank(snapshots []models.RegionSnapshot, by Indicator) []Entry {
	entries := make([]Entry, 0, len(snapshots))
	for _, s := range snapshots {
		if !s.Ranked {
			continue
		}
		v, ok := by.Value(s)
		if !ok {
			continue
		}
		entries = append(entries, Entry{Value: v, Snapshot: s})
	}

	sort.SliceStable(entries, func(a, b int) bool {
		if entries[a].Value != entries[b].Value {
			return entries[a].Value > entries[b].Value
		}
		return entries[a].Snapshot.Region < entries[b].Snapshot.Region
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
