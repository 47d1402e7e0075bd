package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"lifeline/models"
	"lifeline/services"
	"lifeline/utils"
	"lifeline/websocket"
)

// DispatchController exposes read-only snapshots of live coordinator state
// for dashboards. Nothing here can mutate dispatch state.
type DispatchController struct {
	dispatchService *services.DispatchService
	hub             *websocket.Hub
	startedAt       time.Time
}

func NewDispatchController(dispatchService *services.DispatchService, hub *websocket.Hub) *DispatchController {
	return &DispatchController{
		dispatchService: dispatchService,
		hub:             hub,
		startedAt:       time.Now(),
	}
}

// Health reports process liveness.
func (dc *DispatchController) Health(c *gin.Context) {
	utils.SuccessResponse(c, "OK", models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Services: map[string]string{
			"coordinator": "up",
			"websocket":   "up",
		},
		Version: "1.0.0",
		Uptime:  time.Since(dc.startedAt).Round(time.Second).String(),
	})
}

// GetActiveRequests lists all non-terminal emergency requests.
func (dc *DispatchController) GetActiveRequests(c *gin.Context) {
	utils.SuccessResponse(c, "Active requests retrieved successfully", dc.dispatchService.ActiveRequests())
}

// GetResponders lists all registered responders with availability.
func (dc *DispatchController) GetResponders(c *gin.Context) {
	utils.SuccessResponse(c, "Responders retrieved successfully", dc.dispatchService.Responders())
}

// GetFacilities lists all registered facilities.
func (dc *DispatchController) GetFacilities(c *gin.Context) {
	utils.SuccessResponse(c, "Facilities retrieved successfully", dc.dispatchService.Facilities())
}

// GetStats reports coordinator and connection counters.
func (dc *DispatchController) GetStats(c *gin.Context) {
	utils.SuccessResponse(c, "Statistics retrieved successfully", gin.H{
		"dispatch":    dc.dispatchService.Stats(),
		"connections": dc.hub.GetStats(),
	})
}
