package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"lifeline/utils"
	"lifeline/websocket"
)

// WebSocketController upgrades HTTP connections into dispatch sessions.
// Connections are unauthenticated; a client earns a role by registering
// one, or plays the requester role implicitly by opening a request.
type WebSocketController struct {
	hub       *websocket.Hub
	upgrader  gorilla.Upgrader
	rateLimit int
	rateWin   time.Duration
}

func NewWebSocketController(hub *websocket.Hub, rateLimit int, rateWindow time.Duration) *WebSocketController {
	upgrader := gorilla.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			// In production, implement proper origin checking
			return true
		},
	}

	return &WebSocketController{
		hub:       hub,
		upgrader:  upgrader,
		rateLimit: rateLimit,
		rateWin:   rateWindow,
	}
}

// HandleWebSocket establishes a WebSocket connection for dispatch traffic.
func (wsc *WebSocketController) HandleWebSocket(c *gin.Context) {
	conn, err := wsc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.Errorf("Failed to upgrade WebSocket connection: %v", err)
		utils.BadRequestResponse(c, "Failed to establish WebSocket connection")
		return
	}

	client := websocket.NewClient(wsc.hub, conn, utils.GenerateUUID(), wsc.rateLimit, wsc.rateWin)

	wsc.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
