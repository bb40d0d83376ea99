package groups

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kingraph/kingraph/pkg/kingraph/engine"
	"github.com/kingraph/kingraph/pkg/kingraph/models"
	"github.com/kingraph/kingraph/pkg/kingraph/store"
)

// Handler handles group-related requests
type Handler struct {
	engine *engine.Engine
	store  *store.Store
}

// NewHandler creates a new groups handler
func NewHandler(e *engine.Engine, s *store.Store) *Handler {
	return &Handler{engine: e, store: s}
}

// CreateGroupRequest represents the request to create a group
type CreateGroupRequest struct {
	Name          string  `json:"name" binding:"required"`
	Description   string  `json:"description"`
	ColorHex      string  `json:"color_hex"`
	ParentGroupID *string `json:"parent_group_id"`
}

// UpdateGroupRequest represents a partial group update; omitted fields are
// left untouched. An empty parent_group_id clears the parent.
type UpdateGroupRequest struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	ColorHex      *string `json:"color_hex"`
	ParentGroupID *string `json:"parent_group_id"`
}

// GroupResponse represents a group in API responses
type GroupResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	ColorHex      string  `json:"color_hex"`
	ParentGroupID *string `json:"parent_group_id"`
}

func toResponse(g *models.Group) GroupResponse {
	return GroupResponse{
		ID:            g.ID,
		Name:          g.Name,
		Description:   g.Description,
		ColorHex:      g.ColorHex,
		ParentGroupID: g.ParentGroupID,
	}
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

// List returns all groups
// @Summary List groups
// @Tags groups
// @Produce json
// @Success 200 {array} GroupResponse
// @Router /groups [get]
func (h *Handler) List(c *gin.Context) {
	groups, err := h.store.ListGroups()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
		return
	}

	resp := make([]GroupResponse, len(groups))
	for i := range groups {
		resp[i] = toResponse(&groups[i])
	}
	c.JSON(http.StatusOK, resp)
}

// Create creates a new group
// @Summary Create a group
// @Tags groups
// @Accept json
// @Produce json
// @Param request body CreateGroupRequest true "Group details"
// @Success 201 {object} GroupResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Router /groups [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, err := h.engine.CreateGroup(c.Request.Context(), engine.GroupInput{
		Name:          req.Name,
		Description:   req.Description,
		ColorHex:      req.ColorHex,
		ParentGroupID: req.ParentGroupID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toResponse(g))
}

// Update applies a partial update to a group
// @Summary Update a group
// @Tags groups
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param request body UpdateGroupRequest true "Fields to update"
// @Success 200 {object} GroupResponse
// @Failure 404 {object} map[string]string "Group not found"
// @Router /groups/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g, err := h.engine.UpdateGroup(c.Request.Context(), c.Param("id"), engine.GroupPatch{
		Name:          req.Name,
		Description:   req.Description,
		ColorHex:      req.ColorHex,
		ParentGroupID: req.ParentGroupID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(g))
}

// Delete deletes a group, reassigning the main group of entities that
// pointed at it
// @Summary Delete a group
// @Tags groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} map[string]bool
// @Failure 404 {object} map[string]string "Group not found"
// @Router /groups/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	if err := h.engine.DeleteGroup(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// RegisterRoutes registers group routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/groups", h.List)
	rg.POST("/groups", h.Create)
	rg.PATCH("/groups/:id", h.Update)
	rg.DELETE("/groups/:id", h.Delete)
}
