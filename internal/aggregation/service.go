package aggregation

import (
	"errors"
	"os"

	"github.com/sirupsen/logrus"

	"rentstats/server/internal/geometry"
	"rentstats/server/internal/listings"
	"rentstats/server/internal/models"
	"rentstats/server/internal/stats"
)

// SnapshotSource hands out the current listing store.
type SnapshotSource interface {
	Snapshot() *listings.Store
}

// Service answers region stats queries against the published listing store.
type Service struct {
	source SnapshotSource
	logger *logrus.Logger
}

// NewService creates a new aggregation service
func NewService(source SnapshotSource, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Service{
		source: source,
		logger: logger,
	}
}

// Summarize runs the regression statistics and the decile calculator over the
// same selection.
func Summarize(selection []models.Listing) (models.StatsResult, error) {
	result, err := stats.Compute(selection)
	result.Deciles = stats.Deciles(selection)
	return result, err
}

// StatsForRegion validates the query, takes one store snapshot, filters it
// once and summarizes the selection. When the selection cannot be regressed
// the partial result is returned together with models.ErrInsufficientData.
func (s *Service) StatsForRegion(q models.RegionQuery) (models.StatsResult, error) {
	q, err := q.Normalize()
	if err != nil {
		return models.StatsResult{}, err
	}

	return s.statsForSnapshot(s.source.Snapshot(), q)
}

// StatsForRegions computes every region against one shared snapshot.
// Regions with insufficient data are returned with the flag set; an invalid
// region definition aborts the whole call.
func (s *Service) StatsForRegions(regions []models.Region) ([]models.StatsResult, error) {
	store := s.source.Snapshot()

	results := make([]models.StatsResult, 0, len(regions))
	for _, region := range regions {
		q, err := region.Query().Normalize()
		if err != nil {
			return nil, err
		}

		result, err := s.statsForSnapshot(store, q)
		if err != nil && !errors.Is(err, models.ErrInsufficientData) {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *Service) statsForSnapshot(store *listings.Store, q models.RegionQuery) (models.StatsResult, error) {
	selection := geometry.Select(store, q)

	result, err := Summarize(selection)
	result.SnapshotID = store.ID()
	result.SnapshotLoadedAt = store.LoadedAt()

	entry := s.logger.WithFields(logrus.Fields{
		"snapshot_id": store.ID(),
		"latitude":    q.Latitude,
		"longitude":   q.Longitude,
		"radius_km":   q.RadiusKm,
		"total":       result.Total,
	})
	if err != nil {
		entry.WithError(err).Debug("Region has insufficient data for regression")
		return result, err
	}
	entry.Debug("Computed region stats")

	return result, nil
}
