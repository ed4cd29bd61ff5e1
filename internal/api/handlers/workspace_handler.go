package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
)

type WorkspaceHandler struct {
	service WorkspaceService
}

func NewWorkspaceHandler(service WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{service: service}
}

type createWorkspaceRequest struct {
	Slug string `json:"slug" binding:"required,slug"`
	Name string `json:"name" binding:"max=200"`
}

// ListWorkspaces handles GET /workspaces
func (h *WorkspaceHandler) ListWorkspaces(c *gin.Context) {
	workspaces, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if workspaces == nil {
		workspaces = []domain.Workspace{}
	}
	c.JSON(http.StatusOK, gin.H{"workspaces": workspaces})
}

// CreateWorkspace handles POST /workspaces
func (h *WorkspaceHandler) CreateWorkspace(c *gin.Context) {
	var req createWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	ws, err := h.service.Create(c.Request.Context(), req.Slug, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ws)
}

// DeleteWorkspace handles DELETE /workspaces/:slug
func (h *WorkspaceHandler) DeleteWorkspace(c *gin.Context) {
	slug := c.Param("slug")
	counts, err := h.service.Delete(c.Request.Context(), slug, parseBool(c.Query("force")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": slug, "counts": counts})
}
