// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/ecoagent/backend-go/internal/api/handlers"
	"github.com/andresuchdata/ecoagent/backend-go/internal/api/middleware"
	"github.com/andresuchdata/ecoagent/backend-go/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	WasteRisk *service.WasteRiskService
	Suppliers *service.SupplierService
	Datasets  *service.DatasetService
	Impact    *service.ImpactService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.Metrics())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.WasteRisk != nil {
			wasteRiskHandler := handlers.NewWasteRiskHandler(services.WasteRisk)
			wasteRiskGroup := apiGroup.Group("/waste-risk")
			{
				wasteRiskGroup.GET("", wasteRiskHandler.EvaluateAll)
				wasteRiskGroup.GET("/:product_id", wasteRiskHandler.Evaluate)
			}
		}

		if services.Suppliers != nil {
			supplierHandler := handlers.NewSupplierHandler(services.Suppliers)
			supplierGroup := apiGroup.Group("/suppliers")
			{
				supplierGroup.GET("/rank", supplierHandler.Rank)
				supplierGroup.GET("/:supplier_id/score", supplierHandler.Score)
				supplierGroup.GET("/:supplier_id/purchases", supplierHandler.Purchases)
			}
		}

		if services.Datasets != nil {
			datasetHandler := handlers.NewDatasetHandler(services.Datasets)
			datasetGroup := apiGroup.Group("/datasets")
			{
				datasetGroup.GET("", datasetHandler.List)
				datasetGroup.POST("/sync", datasetHandler.Sync)
				datasetGroup.GET("/:dataset", datasetHandler.Fetch)
				datasetGroup.POST("/:dataset", datasetHandler.Upload)
				datasetGroup.POST("/:dataset/import", datasetHandler.Import)
			}
		}

		if services.Impact != nil {
			impactHandler := handlers.NewImpactHandler(services.Impact)
			apiGroup.POST("/impact/usage", impactHandler.RecordUsage)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
