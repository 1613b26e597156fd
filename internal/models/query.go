package models

import (
	"math"
	"sort"
)

const (
	// MaxRadiusKm is the ceiling applied to every region query.
	MaxRadiusKm = 20.0

	DefaultMinLivingSpace = 0.0
	DefaultMaxLivingSpace = 200.0
)

// RegionQuery selects listings inside a circle with optional attribute filters.
type RegionQuery struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	RadiusKm       float64 `json:"radius_km"`
	MinLivingSpace float64 `json:"min_living_space"`
	MaxLivingSpace float64 `json:"max_living_space"`
	// Rooms nil means no room filter. An empty non-nil set matches nothing.
	Rooms []int `json:"rooms,omitempty"`
	// Limit 0 means no cap.
	Limit int `json:"limit,omitempty"`
}

// NewRegionQuery returns a query around the given center with default
// living-space bounds and no room filter.
func NewRegionQuery(lat, lng, radiusKm float64) RegionQuery {
	return RegionQuery{
		Latitude:       lat,
		Longitude:      lng,
		RadiusKm:       radiusKm,
		MinLivingSpace: DefaultMinLivingSpace,
		MaxLivingSpace: DefaultMaxLivingSpace,
	}
}

// Normalize validates the query and applies the radius ceiling. The returned
// query has a sorted, de-duplicated room set.
func (q RegionQuery) Normalize() (RegionQuery, error) {
	if !isFinite(q.Latitude) || q.Latitude < -90 || q.Latitude > 90 {
		return q, NewQueryError("latitude", "must be within [-90, 90], got %v", q.Latitude)
	}
	if !isFinite(q.Longitude) || q.Longitude < -180 || q.Longitude > 180 {
		return q, NewQueryError("longitude", "must be within [-180, 180], got %v", q.Longitude)
	}
	if !isFinite(q.RadiusKm) || q.RadiusKm <= 0 {
		return q, NewQueryError("radius", "must be positive, got %v", q.RadiusKm)
	}
	if q.RadiusKm > MaxRadiusKm {
		q.RadiusKm = MaxRadiusKm
	}

	if !isFinite(q.MinLivingSpace) || q.MinLivingSpace < 0 {
		return q, NewQueryError("min_space", "must be >= 0, got %v", q.MinLivingSpace)
	}
	if !isFinite(q.MaxLivingSpace) || q.MaxLivingSpace > DefaultMaxLivingSpace {
		return q, NewQueryError("max_space", "must be <= %v, got %v", DefaultMaxLivingSpace, q.MaxLivingSpace)
	}
	if q.MinLivingSpace > q.MaxLivingSpace {
		return q, NewQueryError("min_space", "%v exceeds max_space %v", q.MinLivingSpace, q.MaxLivingSpace)
	}

	if q.Rooms != nil {
		rooms := make([]int, 0, len(q.Rooms))
		seen := make(map[int]bool, len(q.Rooms))
		for _, r := range q.Rooms {
			if r < 0 {
				return q, NewQueryError("rooms", "room count must be >= 0, got %d", r)
			}
			if !seen[r] {
				seen[r] = true
				rooms = append(rooms, r)
			}
		}
		sort.Ints(rooms)
		q.Rooms = rooms
	}

	if q.Limit < 0 {
		return q, NewQueryError("limit", "must be >= 0, got %d", q.Limit)
	}

	return q, nil
}

// RoomSet returns the room filter as a lookup set, or nil when there is no
// room filter.
func (q RegionQuery) RoomSet() map[int]bool {
	if q.Rooms == nil {
		return nil
	}
	set := make(map[int]bool, len(q.Rooms))
	for _, r := range q.Rooms {
		set[r] = true
	}
	return set
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
