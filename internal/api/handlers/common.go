package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/marketlens/backend-go/internal/attribution"
	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/portal"
	"github.com/andresuchdata/marketlens/backend-go/internal/service"
)

// writeError maps service errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	var (
		ve *domain.ValidationError
		ce *domain.ConflictError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": ve.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "details": err.Error()})
	case errors.As(err, &ce):
		c.JSON(http.StatusConflict, gin.H{"error": ce.Message, "details": ce.Details})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflict", "details": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "details": err.Error()})
	}
}

func workspaceSlug(c *gin.Context) string {
	return service.NormalizeSlug(c.Query("workspace_slug"))
}

func parsePortal(c *gin.Context) (portal.Portal, error) {
	p, err := portal.Parse(c.Query("portal"))
	if err != nil {
		return portal.All, domain.NewValidationError("portal", "%s", err.Error())
	}
	return p, nil
}

// parseKPIParams reads the filters shared by the KPI endpoints. defaultMode
// applies when return_mode is absent.
func parseKPIParams(c *gin.Context, defaultMode attribution.Mode) (service.KPIParams, error) {
	w, err := attribution.ParseWindow(c.Query("start"), c.Query("end"))
	if err != nil {
		return service.KPIParams{}, err
	}

	mode := defaultMode
	if raw := strings.TrimSpace(c.Query("return_mode")); raw != "" {
		if mode, err = attribution.ParseMode(raw); err != nil {
			return service.KPIParams{}, err
		}
	}

	p, err := parsePortal(c)
	if err != nil {
		return service.KPIParams{}, err
	}

	return service.KPIParams{
		WorkspaceSlug: workspaceSlug(c),
		Window:        w,
		Mode:          mode,
		Brand:         strings.TrimSpace(c.Query("brand")),
		Portal:        p,
	}, nil
}

// parseReturnDateParams reads the KPI filters for endpoints that always count
// returns by return date. return_mode is rejected rather than ignored.
func parseReturnDateParams(c *gin.Context) (service.KPIParams, error) {
	if _, ok := c.GetQuery("return_mode"); ok {
		return service.KPIParams{}, domain.NewValidationError("return_mode", "is not supported here; returns are counted by return date")
	}
	return parseKPIParams(c, attribution.Overall)
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer, got %q", raw)
	}
	return v, nil
}

func queryFloat(c *gin.Context, name string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be a number, got %q", raw)
	}
	return v, nil
}

// parseBool accepts the usual spellings; anything else is false.
func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// formOrQuery reads name from the query string, falling back to a multipart
// form field.
func formOrQuery(c *gin.Context, name string) string {
	if v := c.Query(name); v != "" {
		return v
	}
	return c.PostForm(name)
}
