package listings

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rentstats/server/internal/models"
)

// Store is an immutable snapshot of listings in insertion order. A Store is
// never modified after NewStore returns, so any number of goroutines may read
// it without locking.
type Store struct {
	id       uuid.UUID
	loadedAt time.Time
	listings []models.Listing
}

// NewStore copies the given listings into a new snapshot. Listings without a
// positive living space and rent, or with non-finite coordinates, are dropped.
func NewStore(listings []models.Listing, logger *logrus.Logger) *Store {
	kept := make([]models.Listing, 0, len(listings))
	dropped := 0
	for _, l := range listings {
		if !usable(l) {
			dropped++
			continue
		}
		if l.Rooms != nil {
			rooms := *l.Rooms
			l.Rooms = &rooms
		}
		kept = append(kept, l)
	}

	s := &Store{
		id:       uuid.New(),
		loadedAt: time.Now(),
		listings: kept,
	}

	if logger != nil && dropped > 0 {
		logger.WithFields(logrus.Fields{
			"snapshot_id": s.id.String(),
			"dropped":     dropped,
			"kept":        len(kept),
		}).Warn("Dropped unusable listings while building store")
	}

	return s
}

func usable(l models.Listing) bool {
	if !(l.LivingSpace > 0) || !(l.TotalRent > 0) {
		return false
	}
	if math.IsInf(l.LivingSpace, 0) || math.IsInf(l.TotalRent, 0) {
		return false
	}
	if math.IsNaN(l.Latitude) || math.IsNaN(l.Longitude) {
		return false
	}
	return l.Latitude >= -90 && l.Latitude <= 90 && l.Longitude >= -180 && l.Longitude <= 180
}

// ID identifies the snapshot.
func (s *Store) ID() string {
	return s.id.String()
}

// LoadedAt is when the snapshot was built.
func (s *Store) LoadedAt() time.Time {
	return s.loadedAt
}

// Len returns the number of listings in the snapshot.
func (s *Store) Len() int {
	return len(s.listings)
}

// At returns the i-th listing in insertion order.
func (s *Store) At(i int) models.Listing {
	return s.listings[i]
}
