package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lorrc/complaint-desk-bff/internal/core/domain"
	apperrors "github.com/lorrc/complaint-desk-bff/internal/core/errors"
	"github.com/lorrc/complaint-desk-bff/internal/core/ports"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 1024

	// Time allowed to apply a command received from the peer.
	commandTimeout = 5 * time.Second
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound store events. Only the hub closes it.
	Send chan domain.Event

	// replies carries answers to the peer's own messages; it is never closed.
	replies chan domain.Event

	// User ID for this client.
	UserID uuid.UUID

	// topics the client follows; empty means every topic.
	topics map[domain.Topic]bool

	commands ports.ClientCommandHandler

	// closeOnce ensures the Send channel is only closed once
	closeOnce sync.Once

	// mu protects topics
	mu sync.RWMutex

	logger *slog.Logger
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, commands ports.ClientCommandHandler, logger *slog.Logger) *Client {
	return &Client{
		Hub:      hub,
		Conn:     conn,
		Send:     make(chan domain.Event, hub.cfg.SendBufferSize),
		replies:  make(chan domain.Event, 8),
		UserID:   userID,
		topics:   make(map[domain.Topic]bool),
		commands: commands,
		logger:   logger.With("user_id", userID.String()),
	}
}

// CloseSend safely closes the Send channel exactly once
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

// Follows reports whether events of topic should reach this client.
func (c *Client) Follows(topic domain.Topic) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.topics) == 0 || c.topics[topic]
}

// Subscribe restricts the client to the given topics (in addition to any
// already followed).
func (c *Client) Subscribe(topics ...domain.Topic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range topics {
		c.topics[t] = true
	}
}

// Unsubscribe stops following topics. Removing every topic brings the
// client back to receiving everything.
func (c *Client) Unsubscribe(topics ...domain.Topic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range topics {
		delete(c.topics, t)
	}
}

// Topics returns a copy of the followed topics
func (c *Client) Topics() []domain.Topic {
	c.mu.RLock()
	defer c.mu.RUnlock()

	topics := make([]domain.Topic, 0, len(c.topics))
	for t := range c.topics {
		topics = append(topics, t)
	}
	return topics
}

// ReadPump pumps messages from the websocket connection to the hub.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Detach(c)
		_ = c.Conn.Close()
	}()

	pongWait := c.Hub.cfg.PongWait
	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump pumps messages from the hub to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.Hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel. Send close message.
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.writeJSON(event); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case reply := <-c.replies:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}
			if err := c.writeJSON(reply); err != nil {
				c.logger.Error("failed to write reply", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// writeJSON writes a JSON message to the websocket connection
func (c *Client) writeJSON(event domain.Event) error {
	w, err := c.Conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(w).Encode(event); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

// --- Incoming Message Handling ---

// handleIncomingMessage processes messages received from the client
func (c *Client) handleIncomingMessage(message []byte) {
	var msg domain.ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		c.reply(domain.Event{Type: domain.EventError, Payload: "Message invalide"})
		return
	}

	switch msg.Type {
	case domain.ClientEscape, domain.ClientOutsideClick:
		c.handleCommand(msg.Type)

	case domain.ClientSubscribe:
		c.Subscribe(validTopics(msg.Topics)...)

	case domain.ClientUnsubscribe:
		c.Unsubscribe(msg.Topics...)

	case domain.ClientPing:
		// Client-side keep-alive, respond with pong
		c.reply(domain.Event{Type: domain.EventPong})

	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
}

func (c *Client) handleCommand(command domain.ClientMessageType) {
	if c.commands == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	err := c.commands.HandleClientCommand(ctx, c.UserID, command)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrSessionNotFound):
		// Nothing open yet for this user.
		c.logger.Debug("command without session", "command", command)
	default:
		c.logger.Warn("failed to apply client command", "command", command, "error", err)
	}
}

func (c *Client) reply(event domain.Event) {
	select {
	case c.replies <- event:
	default:
		// Channel full, skip the reply
	}
}

func validTopics(topics []domain.Topic) []domain.Topic {
	valid := make([]domain.Topic, 0, len(topics))
	for _, t := range topics {
		if t.IsValid() {
			valid = append(valid, t)
		}
	}
	return valid
}
