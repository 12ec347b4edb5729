package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Подача заявок закрыта ключом, только если ключи заданы
	write := []gin.HandlerFunc{}
	if len(h.cfg.APIKeys) > 0 {
		write = append(write, APIKeyAuthMiddleware(h.cfg, h.logger))
	}

	requests := api.Group("/requests")
	{
		requests.POST("", append(write, h.createRequest)...)
		requests.GET("", h.listRequests)
		requests.GET("/nearby", h.listNearby)
		requests.GET("/:request_id", h.getRequest)
	}

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
}
