package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Websocket message types.
const (
	MessageTypeEvent       = "event"
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
	MessageTypeError       = "error"
)

// Message is the websocket envelope.
type Message struct {
	Type       string    `json:"type"`
	InstanceID string    `json:"game_instance_id,omitempty"`
	Data       any       `json:"data,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Hub tracks websocket clients and their per-instance subscriptions. It is
// also a Sink: published events go to the clients watching that instance.
type Hub struct {
	clients    map[string]map[*Client]bool // by instance id
	allClients map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	broadcast   chan *Message
	subscribe   chan subscription
	unsubscribe chan subscription
	done        chan struct{}

	mu     sync.RWMutex
	logger *slog.Logger
}

type subscription struct {
	client     *Client
	instanceID string
}

// NewHub creates a hub. Call Run to start it.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:     make(map[string]map[*Client]bool),
		allClients:  make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		subscribe:   make(chan subscription, 64),
		unsubscribe: make(chan subscription, 64),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Run serves registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			h.logger.Info("WebSocket hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.allClients[c] = true
			h.mu.Unlock()
			h.logger.Debug("Client registered", "client_id", c.id)

		case c := <-h.unregister:
			h.mu.Lock()
			if h.allClients[c] {
				delete(h.allClients, c)
				for id, subs := range h.clients {
					delete(subs, c)
					if len(subs) == 0 {
						delete(h.clients, id)
					}
				}
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Debug("Client unregistered", "client_id", c.id)

		case s := <-h.subscribe:
			h.mu.Lock()
			if h.allClients[s.client] {
				if h.clients[s.instanceID] == nil {
					h.clients[s.instanceID] = make(map[*Client]bool)
				}
				h.clients[s.instanceID][s.client] = true
			}
			h.mu.Unlock()

		case s := <-h.unsubscribe:
			h.mu.Lock()
			if subs, ok := h.clients[s.instanceID]; ok {
				delete(subs, s.client)
				if len(subs) == 0 {
					delete(h.clients, s.instanceID)
				}
			}
			h.mu.Unlock()

		case m := <-h.broadcast:
			h.deliver(m)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.allClients {
		close(c.send)
	}
	h.allClients = make(map[*Client]bool)
	h.clients = make(map[string]map[*Client]bool)
}

// deliver sends a message to the instance's subscribers. Slow clients with a
// full buffer miss the message.
func (h *Hub) deliver(m *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(m)
	if err != nil {
		h.logger.Error("Failed to marshal message", "error", err)
		return
	}
	for c := range h.clients[m.InstanceID] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("Client buffer full, skipping", "client_id", c.id)
		}
	}
}

// Publish queues events for live subscribers. It never blocks: when the
// broadcast buffer is full the event is dropped, since the outbox remains the
// durable record.
func (h *Hub) Publish(_ context.Context, events []Event) error {
	for _, e := range events {
		m := &Message{Type: MessageTypeEvent, InstanceID: e.InstanceID, Data: e, Timestamp: time.Now()}
		select {
		case h.broadcast <- m:
		default:
			h.logger.Warn("Broadcast channel full, dropping event", "event_id", e.ID)
		}
	}
	return nil
}

func (h *Hub) send(ch chan *Client, c *Client) {
	select {
	case ch <- c:
	case <-h.done:
	}
}

func (h *Hub) sendSub(ch chan subscription, s subscription) {
	select {
	case ch <- s:
	case <-h.done:
	}
}

func (h *Hub) Register(c *Client)   { h.send(h.register, c) }
func (h *Hub) Unregister(c *Client) { h.send(h.unregister, c) }

func (h *Hub) Subscribe(c *Client, instanceID string) {
	h.sendSub(h.subscribe, subscription{client: c, instanceID: instanceID})
}

func (h *Hub) Unsubscribe(c *Client, instanceID string) {
	h.sendSub(h.unsubscribe, subscription{client: c, instanceID: instanceID})
}

// Subscribers returns how many clients watch an instance.
func (h *Hub) Subscribers(instanceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[instanceID])
}

// Connections returns the number of connected clients.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}
