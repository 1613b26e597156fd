package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rentstats/server/config"
	"rentstats/server/internal/geometry"
	"rentstats/server/internal/models"
	"rentstats/server/internal/ranking"
)

const (
	defaultHistoryLimit = 24
	maxHistoryLimit     = 500
)

// RegionStore reads persisted region snapshots
type RegionStore interface {
	LatestRegionSnapshots(ctx context.Context) ([]models.RegionSnapshot, error)
	RegionHistory(ctx context.Context, region string, limit int) ([]models.RegionSnapshot, error)
}

// RegionHandler serves the configured regions and their precomputed stats
type RegionHandler struct {
	store   RegionStore
	regions []models.Region
	logger  *logrus.Logger
}

func NewRegionHandler(store RegionStore, regions []models.Region, logger *logrus.Logger) *RegionHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &RegionHandler{
		store:   store,
		regions: regions,
		logger:  logger,
	}
}

// ListRegions returns the configured regions
func (h *RegionHandler) ListRegions(c *gin.Context) {
	c.JSON(http.StatusOK, h.regions)
}

// GetRegion returns a region with its snapshot history, newest first
func (h *RegionHandler) GetRegion(c *gin.Context) {
	name := c.Param("name")
	region := config.GetRegionByName(h.regions, name)
	if region == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Region not found"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = v
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	history, err := h.store.RegionHistory(c.Request.Context(), name, limit)
	if err != nil {
		h.logger.WithError(err).WithField("region", name).Error("Failed to get region history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get region history"})
		return
	}

	snapshots := make([]RegionResponse, len(history))
	for i, s := range history {
		snapshots[i] = newRegionResponse(s)
	}
	c.JSON(http.StatusOK, gin.H{
		"region":  region,
		"history": snapshots,
	})
}

// GetRanking ranks the latest region snapshots by the indicator in "by"
func (h *RegionHandler) GetRanking(c *gin.Context) {
	by, err := ranking.ParseIndicator(c.Query("by"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snapshots, err := h.store.LatestRegionSnapshots(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get region snapshots")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get region snapshots"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"by":      by.String(),
		"regions": newRankingEntries(ranking.Rank(snapshots, by), by),
	})
}

// GetRegionsGeoJSON returns the latest region snapshots as a GeoJSON
// FeatureCollection of region circles
func (h *RegionHandler) GetRegionsGeoJSON(c *gin.Context) {
	snapshots, err := h.store.LatestRegionSnapshots(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get region snapshots")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get region snapshots"})
		return
	}

	data, err := geometry.RegionFeatures(snapshots).MarshalJSON()
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode region features")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode region features"})
		return
	}
	c.Data(http.StatusOK, "application/geo+json", data)
}
