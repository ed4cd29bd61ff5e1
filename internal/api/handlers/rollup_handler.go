package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type RollupHandler struct {
	service RollupService
}

func NewRollupHandler(service RollupService) *RollupHandler {
	return &RollupHandler{service: service}
}

// Refresh handles POST /rollup/refresh?months=YYYY-MM,...&full_refresh=
func (h *RollupHandler) Refresh(c *gin.Context) {
	var months []string
	for _, raw := range c.QueryArray("months") {
		for _, m := range strings.Split(raw, ",") {
			if m = strings.TrimSpace(m); m != "" {
				months = append(months, m)
			}
		}
	}

	result, err := h.service.Refresh(c.Request.Context(), workspaceSlug(c), months, parseBool(c.Query("full_refresh")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
