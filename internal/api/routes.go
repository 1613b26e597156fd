package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter creates the gin engine with CORS for the given origins
func NewRouter(allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}
	router.Use(cors.New(corsConfig))

	return router
}

func SetupRoutes(router *gin.Engine, handler *Handler, regionHandler *RegionHandler) {
	api := router.Group("/api")
	{
		api.GET("/health", handler.Health)
		api.GET("/stats", handler.GetRegionStats)
		api.GET("/search", handler.SearchRegionStats)
		api.POST("/listings", handler.IngestListings)

		api.GET("/regions", regionHandler.ListRegions)
		api.GET("/regions.geojson", regionHandler.GetRegionsGeoJSON)
		api.GET("/regions/:name", regionHandler.GetRegion)
		api.GET("/ranking", regionHandler.GetRanking)
	}
}
