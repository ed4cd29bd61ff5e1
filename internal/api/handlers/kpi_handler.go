package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/marketlens/backend-go/internal/attribution"
	"github.com/andresuchdata/marketlens/backend-go/internal/service"
)

type KPIHandler struct {
	service KPIService
}

func NewKPIHandler(service KPIService) *KPIHandler {
	return &KPIHandler{service: service}
}

// GetSummary handles GET /kpi/summary
func (h *KPIHandler) GetSummary(c *gin.Context) {
	params, err := parseKPIParams(c, attribution.Overall)
	if err != nil {
		writeError(c, err)
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), params)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetReturnsTrend handles GET /kpi/returns-trend
func (h *KPIHandler) GetReturnsTrend(c *gin.Context) {
	params, err := parseKPIParams(c, attribution.Overall)
	if err != nil {
		writeError(c, err)
		return
	}

	trend, err := h.service.ReturnsTrend(c.Request.Context(), params)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trend)
}

// GetTopReturnStyles handles GET /kpi/top-return-styles
func (h *KPIHandler) GetTopReturnStyles(c *gin.Context) {
	h.topReturns(c, h.service.TopReturnStyles)
}

// GetTopReturnSKUs handles GET /kpi/top-return-skus
func (h *KPIHandler) GetTopReturnSKUs(c *gin.Context) {
	h.topReturns(c, h.service.TopReturnSKUs)
}

type topFunc func(ctx context.Context, p service.KPIParams, minOrders int64, topN int) (*service.TopReturns, error)

func (h *KPIHandler) topReturns(c *gin.Context, fetch topFunc) {
	params, err := parseKPIParams(c, attribution.SameMonth)
	if err != nil {
		writeError(c, err)
		return
	}
	minOrders, err := queryInt(c, "min_orders", service.DefaultMinOrders)
	if err != nil {
		writeError(c, err)
		return
	}
	topN, err := queryInt(c, "top_n", service.DefaultTopN)
	if err != nil {
		writeError(c, err)
		return
	}

	top, err := fetch(c.Request.Context(), params, int64(minOrders), topN)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, top)
}

// GetReturnReasons handles GET /returns/reasons
func (h *KPIHandler) GetReturnReasons(c *gin.Context) {
	params, err := parseReturnDateParams(c)
	if err != nil {
		writeError(c, err)
		return
	}
	topN, err := queryInt(c, "top_n", service.DefaultReasonsTopN)
	if err != nil {
		writeError(c, err)
		return
	}

	reasons, err := h.service.ReturnReasons(c.Request.Context(), params, topN)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reasons)
}

// GetStyleReasonHeatmap handles GET /returns/heatmap/style-reason
func (h *KPIHandler) GetStyleReasonHeatmap(c *gin.Context) {
	h.heatmap(c, attribution.GroupStyle)
}

// GetSKUReasonHeatmap handles GET /returns/heatmap/sku-reason
func (h *KPIHandler) GetSKUReasonHeatmap(c *gin.Context) {
	h.heatmap(c, attribution.GroupSKU)
}

func (h *KPIHandler) heatmap(c *gin.Context, by attribution.GroupBy) {
	params, err := parseReturnDateParams(c)
	if err != nil {
		writeError(c, err)
		return
	}
	topReasons, err := queryInt(c, "top_reasons", service.DefaultHeatmapReasons)
	if err != nil {
		writeError(c, err)
		return
	}
	topRows, err := queryInt(c, "top_rows", service.DefaultHeatmapRows)
	if err != nil {
		writeError(c, err)
		return
	}

	heatmap, err := h.service.ReturnsHeatmap(c.Request.Context(), service.HeatmapRequest{
		KPIParams:  params,
		By:         by,
		TopReasons: topReasons,
		TopRows:    topRows,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, heatmap)
}

// GetReturnsCohort handles GET /kpi/returns-cohort
func (h *KPIHandler) GetReturnsCohort(c *gin.Context) {
	params, err := parseReturnDateParams(c)
	if err != nil {
		writeError(c, err)
		return
	}

	cohort, err := h.service.ReturnsCohort(c.Request.Context(), params)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cohort)
}
