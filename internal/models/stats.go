package models

import "time"

// StatsResult is the aggregated view of one region query.
type StatsResult struct {
	Total int `json:"total"`
	// InsufficientData is set when the selection cannot support a regression.
	// AvgPricePerSqm, Intercept and StdErr are zero and must not be read then.
	InsufficientData bool      `json:"insufficient_data"`
	AvgPricePerSqm   float64   `json:"avg_price_per_sqm"`
	Intercept        float64   `json:"intercept"`
	StdErr           float64   `json:"std_err"`
	InequalityIndex  *float64  `json:"inequality_index"`
	Deciles          []float64 `json:"deciles"`

	SnapshotID       string    `json:"snapshot_id,omitempty"`
	SnapshotLoadedAt time.Time `json:"snapshot_loaded_at,omitempty"`
}

// RegionSnapshot is a persisted, precomputed StatsResult for a configured region.
type RegionSnapshot struct {
	ID               uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Region           string    `json:"region" gorm:"not null;index"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	RadiusKm         float64   `json:"radius_km"`
	Ranked           bool      `json:"ranked"`
	Total            int       `json:"total"`
	InsufficientData bool      `json:"insufficient_data"`
	AvgPricePerSqm   float64   `json:"avg_price_per_sqm"`
	StdErr           float64   `json:"std_err"`
	InequalityIndex  *float64  `json:"inequality_index"`
	Deciles          []float64 `json:"deciles" gorm:"serializer:json"`
	SnapshotID       string    `json:"snapshot_id"`
	ComputedAt       time.Time `json:"computed_at" gorm:"not null;index"`
}

func (RegionSnapshot) TableName() string {
	return "region_snapshots"
}

// NewRegionSnapshot copies a StatsResult into a persistable snapshot row.
func NewRegionSnapshot(region Region, result StatsResult, computedAt time.Time) RegionSnapshot {
	return RegionSnapshot{
		Region:           region.Name,
		Latitude:         region.Latitude,
		Longitude:        region.Longitude,
		RadiusKm:         region.RadiusKm,
		Ranked:           region.Ranked,
		Total:            result.Total,
		InsufficientData: result.InsufficientData,
		AvgPricePerSqm:   result.AvgPricePerSqm,
		StdErr:           result.StdErr,
		InequalityIndex:  result.InequalityIndex,
		Deciles:          result.Deciles,
		SnapshotID:       result.SnapshotID,
		ComputedAt:       computedAt,
	}
}

// Region is a named circle whose stats are precomputed periodically.
type Region struct {
	Name      string  `json:"name" yaml:"name"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	RadiusKm  float64 `json:"radius_km" yaml:"radius_km"`
	Ranked    bool    `json:"ranked" yaml:"ranked"`
}

// Query returns the default region query for the region.
func (r Region) Query() RegionQuery {
	return NewRegionQuery(r.Latitude, r.Longitude, r.RadiusKm)
}

// Place is a geocoding result.
type Place struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"display_name"`
	Type        string  `json:"type"`
}
