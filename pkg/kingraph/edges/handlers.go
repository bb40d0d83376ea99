package edges

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kingraph/kingraph/pkg/kingraph/engine"
	"github.com/kingraph/kingraph/pkg/kingraph/store"
)

// Handler handles direct edge CRUD, bypassing entity-level reconciliation
type Handler struct {
	engine *engine.Engine
}

// NewHandler creates a new edges handler
func NewHandler(e *engine.Engine) *Handler {
	return &Handler{engine: e}
}

// CreateEdgeRequest represents the request to connect two entities
type CreateEdgeRequest struct {
	AID   string  `json:"a_id" binding:"required"`
	BID   string  `json:"b_id" binding:"required"`
	Label *string `json:"label"`
}

// UpdateEdgeRequest represents a label change
type UpdateEdgeRequest struct {
	Label *string `json:"label"`
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrConstraintViolation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unique constraint violation"})
	case errors.Is(err, store.ErrInvalidOperation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// Create connects two entities. Idempotent: if the pair is already
// connected the existing edge id is returned.
// @Summary Create an edge
// @Description Connect two entities; returns the existing edge id when already connected
// @Tags edges
// @Accept json
// @Produce json
// @Param request body CreateEdgeRequest true "Edge endpoints"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Self edge or malformed id"
// @Router /edges [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateEdgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if uuid.Validate(req.AID) != nil || uuid.Validate(req.BID) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entity id"})
		return
	}

	edge, err := h.engine.CreateEdge(c.Request.Context(), req.AID, req.BID, req.Label)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": edge.ID})
}

// Update changes an edge's label
// @Summary Update an edge
// @Tags edges
// @Accept json
// @Produce json
// @Param id path string true "Edge ID"
// @Param request body UpdateEdgeRequest true "New label"
// @Success 200 {object} map[string]bool
// @Failure 404 {object} map[string]string "Edge not found"
// @Router /edges/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	var req UpdateEdgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.engine.UpdateEdge(c.Request.Context(), c.Param("id"), req.Label); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

// Delete removes an edge
// @Summary Delete an edge
// @Tags edges
// @Produce json
// @Param id path string true "Edge ID"
// @Success 200 {object} map[string]bool
// @Failure 404 {object} map[string]string "Edge not found"
// @Router /edges/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	if err := h.engine.DeleteEdge(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// RegisterRoutes registers edge routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/edges", h.Create)
	rg.PATCH("/edges/:id", h.Update)
	rg.DELETE("/edges/:id", h.Delete)
}
