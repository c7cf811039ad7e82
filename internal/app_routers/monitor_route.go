package approuters

import (
	"LingoChat/internal/configuration"

	"github.com/gin-gonic/gin"
)

// MonitorRouters sets up monitoring API routes
func MonitorRouters(router *gin.Engine, container *configuration.Container) {
	monitorGroup := router.Group("/monitor")
	{
		monitorGroup.GET("/stats", container.MonitorHandler.GetHubStats)
		monitorGroup.GET("/clients", container.MonitorHandler.GetClients)
	}
}
