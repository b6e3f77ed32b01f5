package server

import (
	"encoding/json"
	"sync"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"

	"github.com/ezivnuska/pokertable/pkg/engine"
)

// Envelope is the wire format for every outbound message.
type Envelope struct {
	Event   string      `json:"event"`
	Table   string      `json:"table,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// client is one websocket connection. Writes go through the send channel so
// only the write pump touches the connection.
type client struct {
	id       string
	playerID string
	conn     *websocket.Conn
	send     chan []byte
}

// Hub tracks connected clients and fans table events out to them. It
// implements engine.Notifier, so the engine publishes through it without
// knowing anything about websockets.
type Hub struct {
	log slog.Logger

	mu      sync.RWMutex
	clients map[string]*client

	register   chan *client
	unregister chan *client
}

// NewHub creates an empty hub.
func NewHub(log slog.Logger) *Hub {
	if log == nil {
		log = slog.Disabled
	}
	return &Hub{
		log:        log,
		clients:    make(map[string]*client),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

// Run processes connection registrations until the channel feeding it closes.
// Meant to run in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.send)
			}
			h.mu.Unlock()
		}
	}
}

// Publish implements engine.Notifier by broadcasting the event to every
// connected client. A slow client's full buffer drops the message rather than
// blocking the engine.
func (h *Hub) Publish(event engine.EventType, tableCode string, payload interface{}) {
	data, err := json.Marshal(Envelope{Event: string(event), Table: tableCode, Payload: payload})
	if err != nil {
		h.log.Errorf("failed to marshal %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Warnf("dropping %s event for slow client %s", event, c.id)
		}
	}
}

// sendTo delivers a message to one client, dropping it if the buffer is full.
func (h *Hub) sendTo(c *client, env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.log.Errorf("failed to marshal %s reply: %v", env.Event, err)
		return
	}
	select {
	case c.send <- data:
	default:
		h.log.Warnf("dropping %s reply for slow client %s", env.Event, c.id)
	}
}

// clientCount returns the number of connected clients.
func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
