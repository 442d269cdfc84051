package handlers

import (
	"status-notification/internal/core/services"

	"github.com/gin-gonic/gin"
)

const headerAPIKey = "X-API-Key"

type Handler struct {
	monitorSvc *services.MonitorService
}

func New(monitorSvc *services.MonitorService) *Handler {
	return &Handler{
		monitorSvc: monitorSvc,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	// Heartbeats
	r.POST("/update_status", h.UpdateStatus)

	// Status
	r.GET("/status_tree", h.StatusTree)
	r.GET("/check_status", h.CheckStatus)

	// Monitoring control
	r.POST("/pause", h.Pause)
	r.POST("/resume", h.Resume)
	r.POST("/delete", h.Delete)
}
