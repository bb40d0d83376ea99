package telemetry

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler accepts client telemetry events. Best effort: events are logged
// and acknowledged, never stored.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a new telemetry handler
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{logger: logger}
}

// Ingest logs a telemetry event and returns 202
// @Summary Ingest a telemetry event
// @Tags telemetry
// @Accept json
// @Produce json
// @Success 202 {object} map[string]bool
// @Router /telemetry [post]
func (h *Handler) Ingest(c *gin.Context) {
	var event map[string]interface{}
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ts := event["ts"]
	if ts == nil {
		ts = float64(time.Now().Unix())
	}
	h.logger.Info("telemetry event",
		zap.Any("type", event["type"]),
		zap.Any("user", event["user"]),
		zap.Any("ts", ts),
	)
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

// RegisterRoutes registers telemetry routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/telemetry", h.Ingest)
}
