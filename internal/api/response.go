package api

import (
	"time"

	"github.com/shopspring/decimal"

	"rentstats/server/internal/models"
	"rentstats/server/internal/ranking"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	moneyPlaces = 2
	errorPlaces = 4
)

func round(v float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(places)
}

func roundPtr(v float64, places int32) *decimal.Decimal {
	d := round(v, places)
	return &d
}

// StatsResponse is the JSON form of a region stats result. Regression fields
// are omitted when the selection has insufficient data.
type StatsResponse struct {
	Total            int                `json:"total"`
	InsufficientData bool               `json:"insufficient_data"`
	AvgPricePerSqm   *decimal.Decimal   `json:"avg_price_per_sqm,omitempty"`
	Intercept        *decimal.Decimal   `json:"intercept,omitempty"`
	StdErr           *decimal.Decimal   `json:"std_err,omitempty"`
	InequalityIndex  *decimal.Decimal   `json:"inequality_index,omitempty"`
	Deciles          []decimal.Decimal  `json:"deciles"`
	SnapshotID       string             `json:"snapshot_id"`
	SnapshotLoadedAt time.Time          `json:"snapshot_loaded_at"`
	Query            models.RegionQuery `json:"query"`
	Place            *models.Place      `json:"place,omitempty"`
}

func newStatsResponse(q models.RegionQuery, result models.StatsResult) StatsResponse {
	resp := StatsResponse{
		Total:            result.Total,
		InsufficientData: result.InsufficientData,
		Deciles:          roundAll(result.Deciles, moneyPlaces),
		SnapshotID:       result.SnapshotID,
		SnapshotLoadedAt: result.SnapshotLoadedAt,
		Query:            q,
	}
	if !result.InsufficientData {
		resp.AvgPricePerSqm = roundPtr(result.AvgPricePerSqm, moneyPlaces)
		resp.Intercept = roundPtr(result.Intercept, moneyPlaces)
		resp.StdErr = roundPtr(result.StdErr, errorPlaces)
	}
	if result.InequalityIndex != nil {
		resp.InequalityIndex = roundPtr(*result.InequalityIndex, errorPlaces)
	}
	return resp
}

func roundAll(values []float64, places int32) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = round(v, places)
	}
	return out
}

// RegionResponse is the JSON form of a persisted region snapshot.
type RegionResponse struct {
	Region           string            `json:"region"`
	Latitude         float64           `json:"latitude"`
	Longitude        float64           `json:"longitude"`
	RadiusKm         float64           `json:"radius_km"`
	Ranked           bool              `json:"ranked"`
	Total            int               `json:"total"`
	InsufficientData bool              `json:"insufficient_data"`
	AvgPricePerSqm   *decimal.Decimal  `json:"avg_price_per_sqm,omitempty"`
	StdErr           *decimal.Decimal  `json:"std_err,omitempty"`
	InequalityIndex  *decimal.Decimal  `json:"inequality_index,omitempty"`
	Deciles          []decimal.Decimal `json:"deciles"`
	SnapshotID       string            `json:"snapshot_id"`
	ComputedAt       time.Time         `json:"computed_at"`
}

func newRegionResponse(s models.RegionSnapshot) RegionResponse {
	resp := RegionResponse{
		Region:           s.Region,
		Latitude:         s.Latitude,
		Longitude:        s.Longitude,
		RadiusKm:         s.RadiusKm,
		Ranked:           s.Ranked,
		Total:            s.Total,
		InsufficientData: s.InsufficientData,
		Deciles:          roundAll(s.Deciles, moneyPlaces),
		SnapshotID:       s.SnapshotID,
		ComputedAt:       s.ComputedAt,
	}
	if !s.InsufficientData {
		resp.AvgPricePerSqm = roundPtr(s.AvgPricePerSqm, moneyPlaces)
		resp.StdErr = roundPtr(s.StdErr, errorPlaces)
	}
	if s.InequalityIndex != nil {
		resp.InequalityIndex = roundPtr(*s.InequalityIndex, errorPlaces)
	}
	return resp
}

// RankingEntry is one row of the ranking response.
type RankingEntry struct {
	Rank   int             `json:"rank"`
	Value  decimal.Decimal `json:"value"`
	Region RegionResponse  `json:"region"`
}

func newRankingEntries(entries []ranking.Entry, by ranking.Indicator) []RankingEntry {
	places := int32(moneyPlaces)
	if by == ranking.IndicatorInequality {
		places = errorPlaces
	}

	out := make([]RankingEntry, len(entries))
	for i, e := range entries {
		out[i] = RankingEntry{
			Rank:   e.Rank,
			Value:  round(e.Value, places),
			Region: newRegionResponse(e.Snapshot),
		}
	}
	return out
}
