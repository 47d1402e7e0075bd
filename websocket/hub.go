package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"lifeline/models"
	"lifeline/services"
)

// Hub owns the set of live client connections. Registration and
// unregistration are serialized through channels in Run; every connection
// close funnels into the dispatch service's single cleanup path, whatever
// role the connection held.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	dispatchService *services.DispatchService

	// Hub statistics
	stats HubStats

	// Mutex for thread safety
	mutex sync.RWMutex

	// Context for shutdown
	ctx    context.Context
	cancel context.CancelFunc

	cleanupTicker *time.Ticker
}

type HubStats struct {
	TotalConnections  int64
	ActiveConnections int
	MessagesSent      int64
	MessagesDropped   int64
	StartTime         time.Time

	mutex sync.Mutex
}

func NewHub(dispatchService *services.DispatchService) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	hub := &Hub{
		clients:         make(map[*Client]bool),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		dispatchService: dispatchService,
		stats: HubStats{
			StartTime: time.Now(),
		},
		ctx:    ctx,
		cancel: cancel,
	}

	hub.cleanupTicker = time.NewTicker(5 * time.Minute)

	return hub
}

func (h *Hub) Run() {
	logrus.Info("WebSocket Hub starting...")

	go h.runCleanup()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.ctx.Done():
			logrus.Info("WebSocket Hub shutting down...")
			return
		}
	}
}

// Register hands a new client to the hub's serialization loop.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	h.clients[client] = true
	h.mutex.Unlock()

	h.stats.mutex.Lock()
	h.stats.ActiveConnections++
	h.stats.TotalConnections++
	active := h.stats.ActiveConnections
	h.stats.mutex.Unlock()

	h.dispatchService.HandleConnect(client)

	logrus.Infof("Client connected: %s (Total: %d)", client.connectionID, active)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
	}
	h.mutex.Unlock()

	if !ok {
		return
	}

	h.stats.mutex.Lock()
	h.stats.ActiveConnections--
	active := h.stats.ActiveConnections
	h.stats.mutex.Unlock()

	h.dispatchService.HandleDisconnect(client.connectionID)

	logrus.Infof("Client disconnected: %s (Total: %d)", client.connectionID, active)
}

// GetStats returns a snapshot of connection-level counters.
func (h *Hub) GetStats() models.WSHubStats {
	h.stats.mutex.Lock()
	defer h.stats.mutex.Unlock()

	return models.WSHubStats{
		TotalConnections:  h.stats.TotalConnections,
		ActiveConnections: h.stats.ActiveConnections,
		MessagesSent:      h.stats.MessagesSent,
		MessagesDropped:   h.stats.MessagesDropped,
		Uptime:            time.Since(h.stats.StartTime),
		LastUpdate:        time.Now(),
	}
}

func (h *Hub) incrementMessagesSent() {
	h.stats.mutex.Lock()
	h.stats.MessagesSent++
	h.stats.mutex.Unlock()
}

func (h *Hub) incrementMessagesDropped() {
	h.stats.mutex.Lock()
	h.stats.MessagesDropped++
	h.stats.mutex.Unlock()
}

func (h *Hub) runCleanup() {
	for {
		select {
		case <-h.cleanupTicker.C:
			h.performCleanup()
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) performCleanup() {
	h.mutex.RLock()
	var stale []*Client
	for client := range h.clients {
		if !client.active() || client.idleFor() > 5*time.Minute {
			stale = append(stale, client)
		}
	}
	h.mutex.RUnlock()

	for _, client := range stale {
		logrus.Warnf("Removing inactive client: %s", client.connectionID)
		client.cleanup()
	}
}

func (h *Hub) Shutdown() {
	logrus.Info("Shutting down WebSocket Hub...")

	h.cleanupTicker.Stop()

	h.mutex.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.RUnlock()

	for _, client := range clients {
		client.cleanup()
	}

	h.cancel()

	logrus.Info("WebSocket Hub shutdown complete")
}
