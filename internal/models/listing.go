package models

import "time"

// Listing is a single observed rental offer. Listings are never modified once
// they are part of a store snapshot.
type Listing struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	ExternalID   string    `json:"external_id" gorm:"uniqueIndex;not null"`
	Latitude     float64   `json:"latitude" gorm:"not null;index:idx_listings_coordinates"`
	Longitude    float64   `json:"longitude" gorm:"not null;index:idx_listings_coordinates"`
	LivingSpace  float64   `json:"living_space" gorm:"not null"`
	TotalRent    float64   `json:"total_rent" gorm:"not null"`
	Rooms        *int      `json:"rooms"`
	Neighborhood string    `json:"neighborhood" gorm:"index"`
	ObservedAt   time.Time `json:"observed_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName pins the table name independently of the struct name.
func (Listing) TableName() string {
	return "listings"
}

// PricePerSqm returns the listing's own rent per square meter.
func (l Listing) PricePerSqm() float64 {
	return l.TotalRent / l.LivingSpace
}

// HasRooms reports whether the room count is known.
func (l Listing) HasRooms() bool {
	return l.Rooms != nil
}
