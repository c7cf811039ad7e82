package handler

import (
	"LingoChat/internal/model"
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StatsSource is implemented by hub.MonitorService.
type StatsSource interface {
	GetStats(ctx context.Context) (*model.DashboardStats, error)
	GetClients(authenticatedOnly bool) []model.ClientInfo
}

// MonitorHandler handles monitoring API endpoints
type MonitorHandler interface {
	GetHubStats(c *gin.Context)
	GetClients(c *gin.Context)
}

type monitorHandler struct {
	monitorService StatsSource
	logger         *zap.Logger
}

func NewMonitorHandler(monitorService StatsSource, logger *zap.Logger) MonitorHandler {
	return &monitorHandler{
		monitorService: monitorService,
		logger:         logger,
	}
}

// GetHubStats returns the current dashboard snapshot
// @Summary Get dashboard statistics
// @Description Returns conversation, message and language totals with live connection counts
// @Tags Monitor
// @Produce json
// @Success 200 {object} model.DashboardStats
// @Router /monitor/stats [get]
func (h *monitorHandler) GetHubStats(c *gin.Context) {
	stats, err := h.monitorService.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "dashboard statistics retrieved", stats)
}

// GetClients lists connected websocket clients. ?authenticated=true hides
// anonymous connections.
func (h *monitorHandler) GetClients(c *gin.Context) {
	authenticatedOnly, _ := strconv.ParseBool(c.DefaultQuery("authenticated", "false"))
	respond(c, http.StatusOK, "clients retrieved", h.monitorService.GetClients(authenticatedOnly))
}
