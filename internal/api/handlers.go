package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rentstats/server/internal/listings"
	"rentstats/server/internal/models"
)

// StatsService answers region queries against the current listing snapshot
type StatsService interface {
	StatsForRegion(q models.RegionQuery) (models.StatsResult, error)
}

// Geocoder resolves free text to a place
type Geocoder interface {
	Geocode(ctx context.Context, text string) (*models.Place, error)
}

// Ingestor accepts listing batches for asynchronous persistence
type Ingestor interface {
	Push(listings []*models.Listing) error
}

// SnapshotSource hands out the current listing store
type SnapshotSource interface {
	Snapshot() *listings.Store
}

type Handler struct {
	stats        StatsService
	geocoder     Geocoder
	ingestor     Ingestor
	source       SnapshotSource
	logger       *logrus.Logger
	maxBatchSize int
}

func NewHandler(stats StatsService, geocoder Geocoder, ingestor Ingestor, source SnapshotSource, maxBatchSize int, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if maxBatchSize <= 0 {
		maxBatchSize = 100
	}

	return &Handler{
		stats:        stats,
		geocoder:     geocoder,
		ingestor:     ingestor,
		source:       source,
		logger:       logger,
		maxBatchSize: maxBatchSize,
	}
}

// respondError maps domain errors to HTTP status codes
func (h *Handler) respondError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, models.ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrUpstreamUnavailable):
		h.logger.WithError(err).Error(message)
		c.JSON(http.StatusBadGateway, gin.H{"error": message})
	default:
		h.logger.WithError(err).Error(message)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}

func parseFloatParam(c *gin.Context, name string, required bool, fallback float64) (float64, error) {
	raw, ok := c.GetQuery(name)
	if !ok || strings.TrimSpace(raw) == "" {
		if required {
			return 0, models.NewQueryError(name, "is required")
		}
		return fallback, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, models.NewQueryError(name, "not a number: %q", raw)
	}
	return v, nil
}

// parseRooms parses a comma separated room list. An absent or empty
// parameter means no room filter.
func parseRooms(c *gin.Context) ([]int, error) {
	raw := strings.TrimSpace(c.Query("rooms"))
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	rooms := make([]int, 0, len(parts))
	for _, part := range parts {
		r, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, models.NewQueryError("rooms", "not a room count: %q", part)
		}
		rooms = append(rooms, r)
	}
	return rooms, nil
}

// parseFilters reads the attribute filters shared by /stats and /search
// into q.
func parseFilters(c *gin.Context, q *models.RegionQuery) error {
	var err error
	if q.MinLivingSpace, err = parseFloatParam(c, "min_space", false, models.DefaultMinLivingSpace); err != nil {
		return err
	}
	if q.MaxLivingSpace, err = parseFloatParam(c, "max_space", false, models.DefaultMaxLivingSpace); err != nil {
		return err
	}
	if q.Rooms, err = parseRooms(c); err != nil {
		return err
	}

	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return models.NewQueryError("limit", "not an integer: %q", raw)
		}
		q.Limit = limit
	}
	return nil
}

func parseRegionQuery(c *gin.Context) (models.RegionQuery, error) {
	lat, err := parseFloatParam(c, "lat", true, 0)
	if err != nil {
		return models.RegionQuery{}, err
	}
	lng, err := parseFloatParam(c, "lng", true, 0)
	if err != nil {
		return models.RegionQuery{}, err
	}
	radius, err := parseFloatParam(c, "radius", true, 0)
	if err != nil {
		return models.RegionQuery{}, err
	}

	q := models.NewRegionQuery(lat, lng, radius)
	if err := parseFilters(c, &q); err != nil {
		return models.RegionQuery{}, err
	}
	return q, nil
}

// writeStats runs the query and writes the result. Insufficient data is a
// successful response with the flag set.
func (h *Handler) writeStats(c *gin.Context, q models.RegionQuery, place *models.Place) {
	result, err := h.stats.StatsForRegion(q)
	if err != nil && !errors.Is(err, models.ErrInsufficientData) {
		h.respondError(c, err, "Failed to compute region stats")
		return
	}

	if normalized, nerr := q.Normalize(); nerr == nil {
		q = normalized
	}
	resp := newStatsResponse(q, result)
	resp.Place = place
	c.JSON(http.StatusOK, resp)
}

// GetRegionStats handles GET /api/stats
func (h *Handler) GetRegionStats(c *gin.Context) {
	q, err := parseRegionQuery(c)
	if err != nil {
		h.respondError(c, err, "Invalid query")
		return
	}
	h.writeStats(c, q, nil)
}

// SearchRegionStats geocodes the q parameter and returns the stats around
// the resulting place.
func (h *Handler) SearchRegionStats(c *gin.Context) {
	text := c.Query("q")
	radius, err := parseFloatParam(c, "radius", false, 2)
	if err != nil {
		h.respondError(c, err, "Invalid query")
		return
	}

	place, err := h.geocoder.Geocode(c.Request.Context(), text)
	if err != nil {
		h.respondError(c, err, "Failed to geocode place")
		return
	}

	q := models.NewRegionQuery(place.Latitude, place.Longitude, radius)
	if err := parseFilters(c, &q); err != nil {
		h.respondError(c, err, "Invalid query")
		return
	}
	h.writeStats(c, q, place)
}

// ListingInput is the ingestion payload of a single listing
type ListingInput struct {
	ExternalID   string     `json:"external_id" binding:"required"`
	Latitude     *float64   `json:"latitude" binding:"required"`
	Longitude    *float64   `json:"longitude" binding:"required"`
	LivingSpace  float64    `json:"living_space" binding:"required,gt=0"`
	TotalRent    float64    `json:"total_rent" binding:"required,gt=0"`
	Rooms        *int       `json:"rooms" binding:"omitempty,gte=0"`
	Neighborhood string     `json:"neighborhood"`
	ObservedAt   *time.Time `json:"observed_at"`
}

func (in ListingInput) toListing(now time.Time) (*models.Listing, error) {
	lat, lng := *in.Latitude, *in.Longitude
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("listing %s: coordinates out of range", in.ExternalID)
	}

	observedAt := now
	if in.ObservedAt != nil {
		observedAt = *in.ObservedAt
	}
	return &models.Listing{
		ExternalID:   in.ExternalID,
		Latitude:     lat,
		Longitude:    lng,
		LivingSpace:  in.LivingSpace,
		TotalRent:    in.TotalRent,
		Rooms:        in.Rooms,
		Neighborhood: strings.TrimSpace(in.Neighborhood),
		ObservedAt:   observedAt,
	}, nil
}

// IngestListings handles POST /api/listings. Listings are split into
// batches and queued; they become visible after the next store refresh.
func (h *Handler) IngestListings(c *gin.Context) {
	var inputs []ListingInput
	if err := c.ShouldBindJSON(&inputs); err != nil {
		h.logger.WithError(err).Warn("Invalid listings payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if len(inputs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No listings given"})
		return
	}

	now := time.Now()
	batch := make([]*models.Listing, 0, len(inputs))
	for _, in := range inputs {
		l, err := in.toListing(now)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		batch = append(batch, l)
	}

	batches := 0
	for start := 0; start < len(batch); start += h.maxBatchSize {
		end := start + h.maxBatchSize
		if end > len(batch) {
			end = len(batch)
		}

		if err := h.ingestor.Push(batch[start:end]); err != nil {
			h.logger.WithError(err).WithFields(logrus.Fields{
				"accepted": start,
				"total":    len(batch),
			}).Warn("Failed to queue listings")

			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":    "Ingestion queue unavailable, retry later",
				"accepted": start,
			})
			return
		}
		batches++
	}

	h.logger.WithFields(logrus.Fields{
		"listings": len(batch),
		"batches":  batches,
	}).Info("Queued listings for ingestion")

	c.JSON(http.StatusAccepted, gin.H{
		"accepted": len(batch),
		"batches":  batches,
	})
}

// Health reports the currently published listing snapshot
func (h *Handler) Health(c *gin.Context) {
	store := h.source.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"snapshot_id": store.ID(),
		"listings":    store.Len(),
		"loaded_at":   store.LoadedAt(),
	})
}
