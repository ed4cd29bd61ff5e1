package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/marketlens/backend-go/internal/ingest"
	"github.com/andresuchdata/marketlens/backend-go/internal/service"
)

type IngestHandler struct {
	service        IngestService
	maxUploadBytes int64
}

func NewIngestHandler(service IngestService, maxUploadMB int64) *IngestHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 64
	}
	return &IngestHandler{service: service, maxUploadBytes: maxUploadMB << 20}
}

// Upload returns the handler for POST /ingest/<kind>. The report arrives as
// multipart field "file"; replace (or replace_history for traffic) selects
// replace semantics.
func (h *IngestHandler) Upload(kind ingest.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

		header, err := c.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large", "details": err.Error()})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data", "details": "multipart field \"file\" is required"})
			return
		}

		f, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data", "details": err.Error()})
			return
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data", "details": err.Error()})
			return
		}

		replace := parseBool(formOrQuery(c, "replace"))
		if kind == ingest.KindFlipkartTraffic {
			replace = replace || parseBool(formOrQuery(c, "replace_history"))
		}

		slug := formOrQuery(c, "workspace_slug")
		result, err := h.service.Ingest(c.Request.Context(), service.IngestRequest{
			Kind:          kind,
			WorkspaceSlug: service.NormalizeSlug(slug),
			Filename:      header.Filename,
			Data:          data,
			Replace:       replace,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
