package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"lifeline/models"
	"lifeline/utils"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Buffer size for client send channel
	sendBufferSize = 64
)

// Client is one live connection. The role it plays (requester, responder,
// facility) is decided by whatever it registers later, or nothing at all;
// every handler tolerates the unregistered case.
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	connectionID string
	connectedAt  time.Time

	// Buffered channel of outbound messages. Never closed; the write pump
	// exits through ctx instead, so Send stays safe from other goroutines.
	send chan models.WSMessage

	rateLimiter *utils.RateLimiter

	// stateMutex guards isActive, lastActivity, and pingFailCount, which
	// are touched from other goroutines: dispatch fan-out, the hub's
	// sweep, and the pong handler on the read pump.
	stateMutex    sync.Mutex
	isActive      bool
	lastActivity  time.Time
	pingFailCount int

	closeOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
}

func NewClient(hub *Hub, conn *websocket.Conn, connectionID string, rateLimit int, rateWindow time.Duration) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		conn:         conn,
		hub:          hub,
		connectionID: connectionID,
		connectedAt:  time.Now(),
		lastActivity: time.Now(),
		send:         make(chan models.WSMessage, sendBufferSize),
		rateLimiter:  utils.NewRateLimiter(rateLimit, rateWindow),
		isActive:     true,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// ConnectionID implements services.ClientConn.
func (c *Client) ConnectionID() string {
	return c.connectionID
}

// Send implements services.ClientConn. Non-blocking: a slow client drops
// messages instead of stalling the coordinator, and a closed client swallows
// them.
func (c *Client) Send(message models.WSMessage) bool {
	if !c.active() {
		return false
	}

	select {
	case c.send <- message:
		c.hub.incrementMessagesSent()
		return true
	default:
		c.hub.incrementMessagesDropped()
		logrus.Warnf("Send channel full for connection %s, dropping %s", c.connectionID, message.Type)
		return false
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.touch()
		c.resetPingFailures()
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			_, messageData, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logrus.Errorf("WebSocket error for connection %s: %v", c.connectionID, err)
				}
				return
			}

			c.touch()

			if !c.rateLimiter.Allow() {
				c.sendError(models.WSErrorRateLimit, "Rate limit exceeded", "")
				continue
			}

			c.handleMessage(messageData)
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				logrus.Errorf("Write error for connection %s: %v", c.connectionID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if c.addPingFailure() > 3 {
					logrus.Warnf("Ping failed for connection %s, disconnecting", c.connectionID)
					return
				}
			}
		}
	}
}

func (c *Client) handleMessage(messageData []byte) {
	var wsRequest models.WSRequest
	if err := json.Unmarshal(messageData, &wsRequest); err != nil {
		c.sendError(models.WSErrorMalformedInput, "Invalid message format", "")
		return
	}

	ds := c.hub.dispatchService

	switch wsRequest.Type {
	case models.WSEventResponderRegister:
		var req models.RegisterResponderRequest
		if err := c.unmarshalData(wsRequest.Data, &req); err != nil {
			c.sendError(models.WSErrorMalformedInput, "Invalid registration data", wsRequest.RequestID)
			return
		}
		responder, err := ds.RegisterResponder(c, req)
		if err != nil {
			c.sendServiceError(err, wsRequest.RequestID)
			return
		}
		c.sendResponse(models.WSEventResponderRegistered, models.WSRegistered{ID: responder.ID, Role: models.RoleResponder}, wsRequest.RequestID)

	case models.WSEventFacilityRegister:
		var req models.RegisterFacilityRequest
		if err := c.unmarshalData(wsRequest.Data, &req); err != nil {
			c.sendError(models.WSErrorMalformedInput, "Invalid registration data", wsRequest.RequestID)
			return
		}
		facility, err := ds.RegisterFacility(c, req)
		if err != nil {
			c.sendServiceError(err, wsRequest.RequestID)
			return
		}
		c.sendResponse(models.WSEventFacilityRegistered, models.WSRegistered{ID: facility.ID, Role: models.RoleFacility}, wsRequest.RequestID)

	case models.WSEventResponderLocation:
		var req models.UpdateLocationRequest
		if err := c.unmarshalData(wsRequest.Data, &req); err != nil {
			c.sendError(models.WSErrorMalformedInput, "Invalid location data", wsRequest.RequestID)
			return
		}
		if err := ds.UpdateLocation(c.connectionID, req); err != nil {
			c.sendServiceError(err, wsRequest.RequestID)
		}

	case models.WSEventNewRequest:
		var req models.NewEmergencyRequest
		if err := c.unmarshalData(wsRequest.Data, &req); err != nil {
			c.sendError(models.WSErrorMalformedInput, "Invalid emergency data", wsRequest.RequestID)
			return
		}
		if _, err := ds.NewRequest(c, req); err != nil {
			c.sendServiceError(err, wsRequest.RequestID)
		}

	case models.WSEventResponderAccept:
		var req models.AcceptRequest
		if err := c.unmarshalData(wsRequest.Data, &req); err != nil {
			c.sendError(models.WSErrorMalformedInput, "Request ID required", wsRequest.RequestID)
			return
		}
		if err := ds.Accept(c, req.RequestID); err != nil {
			c.sendServiceError(err, wsRequest.RequestID)
		}

	case models.WSEventResponderReject:
		var req models.RejectRequest
		if err := c.unmarshalData(wsRequest.Data, &req); err != nil {
			c.sendError(models.WSErrorMalformedInput, "Request ID required", wsRequest.RequestID)
			return
		}
		if err := ds.Reject(c, req.RequestID); err != nil {
			c.sendServiceError(err, wsRequest.RequestID)
		}

	case models.WSEventRequesterCancel:
		var req models.CancelRequest
		if err := c.unmarshalData(wsRequest.Data, &req); err != nil {
			c.sendError(models.WSErrorMalformedInput, "Request ID required", wsRequest.RequestID)
			return
		}
		if err := ds.Cancel(c.connectionID, req.RequestID); err != nil {
			c.sendServiceError(err, wsRequest.RequestID)
		}

	case models.WSEventPing:
		c.sendResponse(models.WSEventPong, nil, wsRequest.RequestID)

	default:
		c.sendError(models.WSErrorMalformedInput, "Unknown message type", wsRequest.RequestID)
	}
}

func (c *Client) sendServiceError(err error, requestID string) {
	if serviceErr, ok := utils.GetServiceError(err); ok {
		c.sendError(serviceErr.Code, serviceErr.Message, requestID)
		return
	}
	c.sendError(models.WSErrorMalformedInput, err.Error(), requestID)
}

func (c *Client) sendError(code, message, requestID string) {
	errorMsg := models.WSMessage{
		Type: models.WSEventError,
		Data: models.WSError{
			Code:      code,
			Message:   message,
			Timestamp: time.Now(),
		},
		RequestID: requestID,
		Timestamp: time.Now(),
	}

	select {
	case c.send <- errorMsg:
	default:
		// Channel full
	}
}

func (c *Client) sendResponse(msgType string, data interface{}, requestID string) {
	response := models.WSMessage{
		Type:      msgType,
		Data:      data,
		RequestID: requestID,
		Timestamp: time.Now(),
	}

	select {
	case c.send <- response:
	default:
		// Channel full
	}
}

func (c *Client) cleanup() {
	c.closeOnce.Do(func() {
		c.stateMutex.Lock()
		c.isActive = false
		c.stateMutex.Unlock()

		c.cancel()

		c.hub.unregister <- c

		if c.conn != nil {
			c.conn.Close()
		}
	})
}

func (c *Client) active() bool {
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()
	return c.isActive
}

func (c *Client) touch() {
	c.stateMutex.Lock()
	c.lastActivity = time.Now()
	c.stateMutex.Unlock()
}

func (c *Client) idleFor() time.Duration {
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()
	return time.Since(c.lastActivity)
}

func (c *Client) resetPingFailures() {
	c.stateMutex.Lock()
	c.pingFailCount = 0
	c.stateMutex.Unlock()
}

func (c *Client) addPingFailure() int {
	c.stateMutex.Lock()
	defer c.stateMutex.Unlock()
	c.pingFailCount++
	return c.pingFailCount
}

func (c *Client) unmarshalData(data map[string]interface{}, target interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, target)
}
