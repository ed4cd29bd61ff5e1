// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/marketlens/backend-go/internal/api/handlers"
	"github.com/andresuchdata/marketlens/backend-go/internal/api/middleware"
	"github.com/andresuchdata/marketlens/backend-go/internal/ingest"
	"github.com/andresuchdata/marketlens/backend-go/internal/service"
)

type Services struct {
	Workspaces handlers.WorkspaceService
	Ingest     handlers.IngestService
	KPI        handlers.KPIService
	Catalog    handlers.CatalogService
	Rollups    handlers.RollupService
	Forecasts  handlers.ForecastService
	Actions    handlers.ActionService
}

type Options struct {
	AllowedOrigins []string
	MaxUploadMB    int64
}

// Upload routes are named after the report kinds.
var myntraUploads = []ingest.Kind{
	ingest.KindSales,
	ingest.KindReturns,
	ingest.KindCatalog,
	ingest.KindStock,
	ingest.KindWeeklyPerf,
}

var flipkartUploads = []ingest.Kind{
	ingest.KindFlipkartEvents,
	ingest.KindFlipkartListing,
	ingest.KindFlipkartTraffic,
}

func NewRouter(services *Services, opts Options) *gin.Engine {
	registerValidators()

	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	apiGroup := router.Group("/api/v1")
	apiGroup.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	if services == nil {
		return router
	}

	if services.Workspaces != nil {
		workspaceHandler := handlers.NewWorkspaceHandler(services.Workspaces)
		workspaceGroup := apiGroup.Group("/workspaces")
		{
			workspaceGroup.GET("", workspaceHandler.ListWorkspaces)
			workspaceGroup.POST("", workspaceHandler.CreateWorkspace)
			workspaceGroup.DELETE("/:slug", workspaceHandler.DeleteWorkspace)
		}
	}

	if services.Ingest != nil {
		ingestHandler := handlers.NewIngestHandler(services.Ingest, opts.MaxUploadMB)
		ingestGroup := apiGroup.Group("/ingest")
		for _, kind := range append(append([]ingest.Kind{}, myntraUploads...), flipkartUploads...) {
			ingestGroup.POST("/"+string(kind), ingestHandler.Upload(kind))
		}
	}

	if services.Rollups != nil {
		rollupHandler := handlers.NewRollupHandler(services.Rollups)
		apiGroup.POST("/rollup/refresh", rollupHandler.Refresh)
	}

	if services.KPI != nil {
		kpiHandler := handlers.NewKPIHandler(services.KPI)
		kpiGroup := apiGroup.Group("/kpi")
		{
			kpiGroup.GET("/summary", kpiHandler.GetSummary)
			kpiGroup.GET("/returns-trend", kpiHandler.GetReturnsTrend)
			kpiGroup.GET("/top-return-styles", kpiHandler.GetTopReturnStyles)
			kpiGroup.GET("/top-return-skus", kpiHandler.GetTopReturnSKUs)
			kpiGroup.GET("/returns-cohort", kpiHandler.GetReturnsCohort)
		}
		returnsGroup := apiGroup.Group("/returns")
		{
			returnsGroup.GET("/reasons", kpiHandler.GetReturnReasons)
			returnsGroup.GET("/heatmap/style-reason", kpiHandler.GetStyleReasonHeatmap)
			returnsGroup.GET("/heatmap/sku-reason", kpiHandler.GetSKUReasonHeatmap)
		}
	}

	if services.Catalog != nil {
		catalogHandler := handlers.NewCatalogHandler(services.Catalog)
		apiGroup.GET("/brands", catalogHandler.GetBrands)
		apiGroup.GET("/kpi/zero-sales-since-live", catalogHandler.GetZeroSalesSinceLive)
	}

	if services.Rollups != nil && services.Forecasts != nil {
		styleHandler := handlers.NewStyleHandler(services.Rollups, services.Forecasts)
		styleGroup := apiGroup.Group("/style")
		{
			styleGroup.GET("/monthly", styleHandler.GetStyleMonthly)
			styleGroup.GET("/size-forecast", styleHandler.GetSizeForecast)
			styleGroup.GET("/sku-forecast", styleHandler.GetSKUForecast)
		}
	}

	if services.Actions != nil {
		actionHandler := handlers.NewActionHandler(services.Actions)
		apiGroup.GET("/action-board", actionHandler.GetActionBoard)
	}

	return router
}

func corsConfig(allowedOrigins []string) cors.Config {
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	cfg := cors.Config{
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
			cfg.AllowOrigins = nil
			cfg.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			cfg.AllowOrigins = normalizedOrigins
		}
	}
	return cfg
}

// registerValidators adds the "slug" tag to gin's validator.
func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	if err := v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return service.ValidSlug(fl.Field().String())
	}); err != nil {
		log.Error().Err(err).Msg("failed to register slug validator")
	}
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		for _, part := range strings.Split(origin, ",") {
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
