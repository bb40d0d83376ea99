package entities

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kingraph/kingraph/pkg/kingraph/engine"
	"github.com/kingraph/kingraph/pkg/kingraph/models"
	"github.com/kingraph/kingraph/pkg/kingraph/store"
)

// Handler handles entity-related requests
type Handler struct {
	engine *engine.Engine
	store  *store.Store
}

// NewHandler creates a new entities handler
func NewHandler(e *engine.Engine, s *store.Store) *Handler {
	return &Handler{engine: e, store: s}
}

// CreateEntityRequest represents the request to create an entity
type CreateEntityRequest struct {
	Name            string   `json:"name" binding:"required"`
	ContactEmail    string   `json:"contact_email"`
	ContactPhone    string   `json:"contact_phone"`
	Notes           string   `json:"notes"`
	MainGroupID     string   `json:"main_group_id"`
	IsCurrentUser   bool     `json:"is_current_user"`
	X               *float64 `json:"x"`
	Y               *float64 `json:"y"`
	GroupsIn        []string `json:"groups_in"`
	ConnectedPeople []string `json:"connected_people"`
}

// UpdateEntityRequest represents a partial entity update; omitted fields
// are left untouched
type UpdateEntityRequest struct {
	Name            *string   `json:"name"`
	ContactEmail    *string   `json:"contact_email"`
	ContactPhone    *string   `json:"contact_phone"`
	Notes           *string   `json:"notes"`
	MainGroupID     *string   `json:"main_group_id"`
	IsCurrentUser   *bool     `json:"is_current_user"`
	X               *float64  `json:"x"`
	Y               *float64  `json:"y"`
	GroupsIn        *[]string `json:"groups_in"`
	ConnectedPeople *[]string `json:"connected_people"`
}

// EntityResponse represents an entity in API responses
type EntityResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	ContactEmail  *string  `json:"contact_email"`
	ContactPhone  *string  `json:"contact_phone"`
	Notes         string   `json:"notes"`
	MainGroupID   *string  `json:"mainGroupId"`
	IsCurrentUser bool     `json:"isCurrentUser"`
	X             *float64 `json:"x"`
	Y             *float64 `json:"y"`
}

func toResponse(e *models.Entity) EntityResponse {
	return EntityResponse{
		ID:            e.ID,
		Name:          e.Name,
		ContactEmail:  e.ContactEmail,
		ContactPhone:  e.ContactPhone,
		Notes:         e.Notes,
		MainGroupID:   e.MainGroupID,
		IsCurrentUser: e.IsCurrentUser,
		X:             e.PosX,
		Y:             e.PosY,
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

// List returns entities, optionally filtered by name search or group
// @Summary List entities
// @Description Get all entities, optionally filtered by name substring or group membership
// @Tags entities
// @Produce json
// @Param search query string false "Name substring, case-insensitive"
// @Param group_id query string false "Only members of this group"
// @Success 200 {array} EntityResponse
// @Router /entities [get]
func (h *Handler) List(c *gin.Context) {
	ents, err := h.store.ListEntities(c.Query("search"), c.Query("group_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch entities"})
		return
	}

	resp := make([]EntityResponse, len(ents))
	for i := range ents {
		resp[i] = toResponse(&ents[i])
	}
	c.JSON(http.StatusOK, resp)
}

// Get returns a single entity
// @Summary Get an entity
// @Tags entities
// @Produce json
// @Param id path string true "Entity ID"
// @Success 200 {object} EntityResponse
// @Failure 404 {object} map[string]string "Entity not found"
// @Router /entities/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	ent, err := h.store.GetEntity(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(ent))
}

// Create creates an entity with its memberships and connections
// @Summary Create an entity
// @Description Create an entity; groups_in become memberships and connected_people become edges
// @Tags entities
// @Accept json
// @Produce json
// @Param request body CreateEntityRequest true "Entity details"
// @Success 201 {object} EntityResponse
// @Failure 400 {object} map[string]string "Validation or uniqueness error"
// @Router /entities [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ent, err := h.engine.CreateEntity(c.Request.Context(), engine.EntityInput{
		Name:          req.Name,
		ContactEmail:  req.ContactEmail,
		ContactPhone:  req.ContactPhone,
		Notes:         req.Notes,
		MainGroupID:   req.MainGroupID,
		IsCurrentUser: req.IsCurrentUser,
		PosX:          req.X,
		PosY:          req.Y,
		GroupIDs:      req.GroupsIn,
		ConnectedIDs:  req.ConnectedPeople,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toResponse(ent))
}

// Update applies a partial update, reconciling memberships and connections
// when their desired sets are supplied
// @Summary Update an entity
// @Description Patch entity fields; groups_in/connected_people, when present, are reconciled as desired-state sets
// @Tags entities
// @Accept json
// @Produce json
// @Param id path string true "Entity ID"
// @Param request body UpdateEntityRequest true "Fields to update"
// @Success 200 {object} EntityResponse
// @Failure 400 {object} map[string]string "Validation or uniqueness error"
// @Failure 404 {object} map[string]string "Entity not found"
// @Router /entities/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	var req UpdateEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ent, err := h.engine.UpdateEntity(c.Request.Context(), c.Param("id"), engine.EntityPatch{
		Name:          req.Name,
		ContactEmail:  req.ContactEmail,
		ContactPhone:  req.ContactPhone,
		Notes:         req.Notes,
		MainGroupID:   req.MainGroupID,
		IsCurrentUser: req.IsCurrentUser,
		PosX:          req.X,
		PosY:          req.Y,
		GroupIDs:      req.GroupsIn,
		ConnectedIDs:  req.ConnectedPeople,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(ent))
}

// Delete removes an entity and every edge touching it
// @Summary Delete an entity
// @Tags entities
// @Produce json
// @Param id path string true "Entity ID"
// @Success 200 {object} map[string]bool
// @Failure 404 {object} map[string]string "Entity not found"
// @Router /entities/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	if err := h.engine.DeleteEntity(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// RegisterRoutes registers entity routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/entities", h.List)
	rg.POST("/entities", h.Create)
	rg.GET("/entities/:id", h.Get)
	rg.PATCH("/entities/:id", h.Update)
	rg.DELETE("/entities/:id", h.Delete)
}
