package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
	"github.com/lorrc/complaint-desk-bff/internal/core/ports"
)

const (
	defaultPongWait       = 60 * time.Second
	defaultSendBufferSize = 256
)

// Config tunes the connections managed by a Hub.
type Config struct {
	PingInterval   time.Duration
	PongWait       time.Duration
	SendBufferSize int
}

func (c Config) withDefaults() Config {
	if c.PongWait <= 0 {
		c.PongWait = defaultPongWait
	}
	// Pings must be sent before the peer's read deadline expires.
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = (c.PongWait * 9) / 10
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = defaultSendBufferSize
	}
	return c
}

// userEvent is a store event addressed to every connection of one user.
type userEvent struct {
	userID uuid.UUID
	event  domain.Event
}

// Hub maintains the set of active Clients and delivers store events to them.
type Hub struct {
	// Clients maps user IDs to their active connections
	// A single user can have multiple connections (multiple tabs/devices)
	clients map[uuid.UUID]map[*Client]bool

	// Broadcast channel for events
	broadcast chan userEvent

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// mu protects the clients map
	mu sync.RWMutex

	// done is closed when Run returns
	done     chan struct{}
	doneOnce sync.Once

	cfg    Config
	logger *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(cfg Config, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		broadcast:  make(chan userEvent, 1024),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
		cfg:        cfg.withDefaults(),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// Broadcast queues an event for every connection of userID.
// This method implements the ports.EventBroadcaster interface.
func (h *Hub) Broadcast(userID uuid.UUID, event domain.Event) error {
	select {
	case h.broadcast <- userEvent{userID: userID, event: event}:
		return nil
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
			"topic", event.Topic,
			"user_id", userID,
		)
		return nil
	}
}

// Run starts the hub's event loop until ctx is done. This MUST be run as a goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.doneOnce.Do(func() { close(h.done) })
			h.closeAll()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Attach registers client with a running hub. It returns false once the hub
// has stopped.
func (h *Hub) Attach(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Detach unregisters client; it never blocks after the hub has stopped.
func (h *Hub) Detach(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// registerClient adds a client to the hub
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]bool)
	}
	h.clients[client.UserID][client] = true

	h.logger.Info("client registered",
		"user_id", client.UserID,
		"total_connections", len(h.clients[client.UserID]),
	)
}

// unregisterClient removes a client from the hub and closes its send channel
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if userClients, ok := h.clients[client.UserID]; ok {
		if _, exists := userClients[client]; exists {
			delete(userClients, client)
			if len(userClients) == 0 {
				delete(h.clients, client.UserID)
			}
		}
	}

	client.CloseSend()

	h.logger.Info("client unregistered",
		"user_id", client.UserID,
	)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, userClients := range h.clients {
		for client := range userClients {
			client.CloseSend()
		}
		delete(h.clients, userID)
	}
}

// deliver sends an event to the user's connections that follow its topic
func (h *Hub) deliver(msg userEvent) {
	h.mu.RLock()
	userClients, ok := h.clients[msg.userID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	// Copy the client list to avoid holding the lock while sending
	clients := make([]*Client, 0, len(userClients))
	for client := range userClients {
		if client.Follows(msg.event.Topic) {
			clients = append(clients, client)
		}
	}
	h.mu.RUnlock()

	h.logger.Debug("delivering event",
		"event_type", msg.event.Type,
		"topic", msg.event.Topic,
		"user_id", msg.userID,
		"client_count", len(clients),
	)

	for _, client := range clients {
		select {
		case client.Send <- msg.event:
		default:
			// Slow consumer; it reconnects and reloads the snapshot.
			h.logger.Warn("client send buffer full, unregistering",
				"user_id", client.UserID,
			)
			h.unregisterClient(client)
		}
	}
}

// GetClientCount returns the total number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, userClients := range h.clients {
		count += len(userClients)
	}
	return count
}

// IsUserConnected checks if a user has any active connections
func (h *Hub) IsUserConnected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.clients[userID]
	return ok && len(clients) > 0
}
