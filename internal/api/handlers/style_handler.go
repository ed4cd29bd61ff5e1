package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/marketlens/backend-go/internal/attribution"
	"github.com/andresuchdata/marketlens/backend-go/internal/forecast"
	"github.com/andresuchdata/marketlens/backend-go/internal/service"
)

type StyleHandler struct {
	rollups   RollupService
	forecasts ForecastService
}

func NewStyleHandler(rollups RollupService, forecasts ForecastService) *StyleHandler {
	return &StyleHandler{rollups: rollups, forecasts: forecasts}
}

// GetStyleMonthly handles GET /style/monthly. start and end accept YYYY-MM or
// YYYY-MM-DD; both default to the last twelve months.
func (h *StyleHandler) GetStyleMonthly(c *gin.Context) {
	now := time.Now().UTC()
	to := attribution.MonthStart(now)
	from := to.AddDate(0, -11, 0)

	var err error
	if raw := strings.TrimSpace(c.Query("start")); raw != "" {
		if from, err = attribution.ParseMonth(raw); err != nil {
			writeError(c, err)
			return
		}
	}
	if raw := strings.TrimSpace(c.Query("end")); raw != "" {
		if to, err = attribution.ParseMonth(raw); err != nil {
			writeError(c, err)
			return
		}
	}
	p, err := parsePortal(c)
	if err != nil {
		writeError(c, err)
		return
	}

	resp, err := h.rollups.StyleMonthly(c.Request.Context(), service.StyleMonthlyQuery{
		WorkspaceSlug: workspaceSlug(c),
		From:          from,
		To:            to,
		StyleKey:      c.Query("style_key"),
		Portal:        p,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetSizeForecast handles GET /style/size-forecast
func (h *StyleHandler) GetSizeForecast(c *gin.Context) {
	h.forecast(c, forecast.BySize)
}

// GetSKUForecast handles GET /style/sku-forecast
func (h *StyleHandler) GetSKUForecast(c *gin.Context) {
	h.forecast(c, forecast.BySKU)
}

func (h *StyleHandler) forecast(c *gin.Context, bucketing forecast.Bucketing) {
	w, err := attribution.ParseWindow(c.Query("start"), c.Query("end"))
	if err != nil {
		writeError(c, err)
		return
	}
	params, err := parseForecastParams(c)
	if err != nil {
		writeError(c, err)
		return
	}

	resp, err := h.forecasts.Forecast(c.Request.Context(), service.ForecastRequest{
		WorkspaceSlug: workspaceSlug(c),
		StyleKey:      c.Query("style_key"),
		Window:        w,
		Brand:         c.Query("brand"),
		Bucketing:     bucketing,
		Params:        params,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// parseForecastParams reads the forecast knobs. Out-of-range values are
// clamped by the calculator; only unparsable values are rejected.
func parseForecastParams(c *gin.Context) (forecast.Params, error) {
	p := forecast.DefaultParams()
	var err error
	if p.ForecastDays, err = queryInt(c, "forecast_days", p.ForecastDays); err != nil {
		return p, err
	}
	if p.SalesDays, err = queryInt(c, "sales_days", p.SalesDays); err != nil {
		return p, err
	}
	if p.SpikeMultiplier, err = queryFloat(c, "spike_multiplier", p.SpikeMultiplier); err != nil {
		return p, err
	}
	if p.LeadTimeDays, err = queryInt(c, "lead_time_days", p.LeadTimeDays); err != nil {
		return p, err
	}
	if p.TargetCoverDays, err = queryInt(c, "target_cover_days", p.TargetCoverDays); err != nil {
		return p, err
	}
	if p.SafetyStockPct, err = queryFloat(c, "safety_stock_pct", p.SafetyStockPct); err != nil {
		return p, err
	}
	p.ExcludeRTO = parseBool(c.Query("exclude_rto"))
	return p, nil
}
