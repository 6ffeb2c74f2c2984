package ws

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/go-demo/roomchat/internal/chat"
)

// Hub maintains the set of active clients and delivers chat events to
// them. It implements chat.Notifier.
type Hub struct {
	// Registered clients by connection identity
	clients map[string]*Client

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed once Run has returned
	done chan struct{}

	// Mutex for thread-safe access
	mu sync.RWMutex

	// Events dropped because a client's buffer was full or it was gone
	dropped atomic.Int64

	// Logger
	logger *zap.Logger
}

// NewHub creates a new Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub and returns when ctx is cancelled. Remaining clients
// are closed on the way out.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

// Register adds client to the hub and returns once events for it can be
// delivered. It returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		<-client.registered
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes client from the hub and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.id] = client
	close(client.registered)

	h.logger.Info("Client connected",
		zap.String("identity", client.id),
		zap.String("remote_addr", client.remoteAddr),
		zap.Int("total_clients", len(h.clients)),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	current, ok := h.clients[client.id]
	if !ok || current != client {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.id)
	client.Close()
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("Client disconnected",
		zap.String("identity", client.id),
		zap.Int("total_clients", total),
	)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, client := range h.clients {
		client.Close()
		delete(h.clients, id)
	}
}

// Notify encodes event and queues it for identity. It never blocks: events
// for unknown identities or full buffers are dropped.
func (h *Hub) Notify(identity string, event chat.Event) {
	msg, err := NewEventMessage(event)
	if err != nil {
		h.logger.Error("Failed to encode event",
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to marshal message",
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
		return
	}

	h.mu.RLock()
	client, ok := h.clients[identity]
	h.mu.RUnlock()

	if !ok {
		h.dropped.Add(1)
		return
	}
	if !client.enqueue(data) {
		h.dropped.Add(1)
	}
}

// IsConnected reports whether identity has a live connection.
func (h *Hub) IsConnected(identity string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[identity]
	return ok
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetStats returns hub statistics
func (h *Hub) GetStats() map[string]int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return map[string]int64{
		"total_clients":  int64(len(h.clients)),
		"dropped_events": h.dropped.Load(),
	}
}
