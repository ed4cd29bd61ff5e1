package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/service"
)

type CatalogHandler struct {
	service CatalogService
}

func NewCatalogHandler(service CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// GetBrands handles GET /brands
func (h *CatalogHandler) GetBrands(c *gin.Context) {
	p, err := parsePortal(c)
	if err != nil {
		writeError(c, err)
		return
	}

	brands, err := h.service.Brands(c.Request.Context(), workspaceSlug(c), p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, brands)
}

// GetZeroSalesSinceLive handles GET /kpi/zero-sales-since-live
func (h *CatalogHandler) GetZeroSalesSinceLive(c *gin.Context) {
	p, err := parsePortal(c)
	if err != nil {
		writeError(c, err)
		return
	}
	minDays, err := queryInt(c, "min_days_live", service.DefaultZeroSalesMinDays)
	if err != nil {
		writeError(c, err)
		return
	}
	topN, err := queryInt(c, "top_n", service.DefaultZeroSalesTopN)
	if err != nil {
		writeError(c, err)
		return
	}

	var ascending bool
	switch dir := strings.ToLower(strings.TrimSpace(c.Query("sort_dir"))); dir {
	case "", "desc":
	case "asc":
		ascending = true
	default:
		writeError(c, domain.NewValidationError("sort_dir", "must be asc or desc, got %q", dir))
		return
	}

	out, err := h.service.ZeroSalesSinceLive(c.Request.Context(), service.ZeroSalesRequest{
		WorkspaceSlug: workspaceSlug(c),
		Portal:        p,
		Brand:         strings.TrimSpace(c.Query("brand")),
		MinDaysLive:   minDays,
		TopN:          topN,
		Ascending:     ascending,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
