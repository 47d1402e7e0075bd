package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"lifeline/config"
	"lifeline/controllers"
	"lifeline/middleware"
	"lifeline/services"
	"lifeline/websocket"
)

// SetupRoutes wires the WebSocket endpoint and the read-only ops API.
func SetupRoutes(cfg *config.Config, dispatchService *services.DispatchService, hub *websocket.Hub) *gin.Engine {
	router := gin.New()

	errorHandler := middleware.NewErrorHandler(cfg.Environment, logrus.StandardLogger())
	router.Use(errorHandler.Handle())
	router.Use(middleware.LoggerMiddleware(middleware.LoggerConfig{
		SkipPaths: []string{"/health"},
	}))
	router.Use(middleware.CORSMiddleware(cfg.Environment))

	dispatchController := controllers.NewDispatchController(dispatchService, hub)
	wsController := controllers.NewWebSocketController(hub, cfg.RateLimitRequests, cfg.RateLimitPeriod())

	router.GET("/health", dispatchController.Health)
	router.GET("/ws", wsController.HandleWebSocket)

	v1 := router.Group("/api/v1")
	{
		dispatch := v1.Group("/dispatch")
		{
			dispatch.GET("/requests", dispatchController.GetActiveRequests)
			dispatch.GET("/responders", dispatchController.GetResponders)
			dispatch.GET("/facilities", dispatchController.GetFacilities)
			dispatch.GET("/stats", dispatchController.GetStats)
		}
	}

	return router
}
