package graph

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kingraph/kingraph/pkg/kingraph/cache"
	"github.com/kingraph/kingraph/pkg/kingraph/engine"
	"github.com/kingraph/kingraph/pkg/kingraph/store"
	"go.uber.org/zap"
)

// Handler serves the cached graph view and bulk position updates
type Handler struct {
	engine *engine.Engine
	store  *store.Store
	cache  cache.Cache
	logger *zap.Logger
}

// NewHandler creates a new graph handler
func NewHandler(e *engine.Engine, s *store.Store, c cache.Cache, logger *zap.Logger) *Handler {
	return &Handler{engine: e, store: s, cache: c, logger: logger}
}

// PositionUpdate is one entry of a bulk layout update
type PositionUpdate struct {
	ID string   `json:"id" binding:"required"`
	X  *float64 `json:"x"`
	Y  *float64 `json:"y"`
}

// Get returns the graph projection
// @Summary Get the graph
// @Description Get the full graph view of nodes, links and groups
// @Tags graph
// @Produce json
// @Success 200 {object} Graph
// @Router /graph [get]
func (h *Handler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	cached, ok, err := h.cache.Get(ctx, cache.GraphKey)
	if err != nil {
		h.logger.Warn("graph cache read failed", zap.Error(err))
	} else if ok {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
		return
	}

	g, err := Build(h.store)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build graph"})
		return
	}
	payload, err := json.Marshal(g)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode graph"})
		return
	}
	if err := h.cache.Set(ctx, cache.GraphKey, string(payload), cache.GraphTTL); err != nil {
		h.logger.Warn("graph cache write failed", zap.Error(err))
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

// UpdatePositions bulk-updates entity layout positions
// @Summary Update node positions
// @Description Persist layout positions for a batch of entities
// @Tags graph
// @Accept json
// @Produce json
// @Param request body []PositionUpdate true "Positions"
// @Success 200 {object} map[string]int
// @Router /graph/positions [put]
func (h *Handler) UpdatePositions(c *gin.Context) {
	var req []PositionUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	positions := make([]engine.Position, len(req))
	for i, p := range req {
		positions[i] = engine.Position{ID: p.ID, X: p.X, Y: p.Y}
	}

	count, err := h.engine.SetPositions(c.Request.Context(), positions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update positions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": count})
}

// RegisterRoutes registers graph routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/graph", h.Get)
	rg.PUT("/graph/positions", h.UpdatePositions)
}
