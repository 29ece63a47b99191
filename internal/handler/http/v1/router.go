package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Все маршруты инцидентов требуют аутентификации
	incidents := api.Group("/incidents", JWTAuthMiddleware(h.cfg, h.logger))
	{
		incidents.POST("", h.createIncident)
		incidents.GET("", h.listIncidents)
		incidents.GET("/stats", h.getStats)
		incidents.GET("/:id", h.getIncident)
		incidents.PATCH("/:id/status", h.updateStatus)
		incidents.POST("/:id/lgu", h.assignLgu)
		incidents.DELETE("/:id", h.deleteIncident)
	}

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
}
