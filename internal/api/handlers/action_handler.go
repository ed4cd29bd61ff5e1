package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/marketlens/backend-go/internal/action"
	"github.com/andresuchdata/marketlens/backend-go/internal/attribution"
	"github.com/andresuchdata/marketlens/backend-go/internal/service"
)

type ActionHandler struct {
	service ActionService
}

func NewActionHandler(service ActionService) *ActionHandler {
	return &ActionHandler{service: service}
}

// GetActionBoard handles GET /action-board. end is the as-of date and
// defaults to today.
func (h *ActionHandler) GetActionBoard(c *gin.Context) {
	var (
		asOf time.Time
		err  error
	)
	if raw := strings.TrimSpace(c.Query("end")); raw != "" {
		if asOf, err = attribution.ParseDate("end", raw); err != nil {
			writeError(c, err)
			return
		}
	}

	p, err := parsePortal(c)
	if err != nil {
		writeError(c, err)
		return
	}

	th := action.DefaultThresholds()
	minOrders, err := queryInt(c, "min_orders", int(th.MinOrders))
	if err != nil {
		writeError(c, err)
		return
	}
	th.MinOrders = int64(minOrders)
	if th.HighReturnPct, err = queryFloat(c, "high_return_pct", th.HighReturnPct); err != nil {
		writeError(c, err)
		return
	}
	if th.NewAgeDays, err = queryInt(c, "new_age_days", th.NewAgeDays); err != nil {
		writeError(c, err)
		return
	}
	topN, err := queryInt(c, "top_n", 0)
	if err != nil {
		writeError(c, err)
		return
	}

	board, err := h.service.Board(c.Request.Context(), service.BoardRequest{
		WorkspaceSlug: workspaceSlug(c),
		AsOf:          asOf,
		Portal:        p,
		Brand:         strings.TrimSpace(c.Query("brand")),
		Thresholds:    th,
		InStockOnly:   parseBool(c.Query("in_stock_only")),
		TopN:          topN,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}
