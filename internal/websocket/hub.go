// Package websocket provides WebSocket connection management and per-topic
// message broadcasting.
package websocket

import (
	"log"
	"sync"

	"github.com/ocean-haven/booking/internal/metrics"
)

// TopicOwner receives every owner-facing event.
const TopicOwner = "owner"

// BookingTopic is the topic carrying one booking's conversation.
func BookingTopic(bookingID string) string {
	return "booking:" + bookingID
}

type publication struct {
	topic string
	data  []byte
}

// Hub tracks connected clients by topic and fans published messages out to
// the clients of that topic.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan publication
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan publication, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			metrics.SetWSClients(n)
			log.Printf("WebSocket client joined %s (total: %d)", client.topic, n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.SetWSClients(n)
			log.Printf("WebSocket client left %s (total: %d)", client.topic, n)

		case pub := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if client.topic != pub.topic {
					continue
				}
				select {
				case client.send <- pub.data:
				default:
					// Slow client: drop it rather than stall the topic.
					close(client.send)
					delete(h.clients, client)
				}
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.SetWSClients(n)

		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			metrics.SetWSClients(0)
			return
		}
	}
}

// Stop ends the event loop and disconnects every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Publish queues data for every client subscribed to topic.
func (h *Hub) Publish(topic string, data []byte) {
	select {
	case h.broadcast <- publication{topic: topic, data: data}:
	default:
		log.Printf("Broadcast channel full, dropping message for %s", topic)
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.send)
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Client is one WebSocket connection subscribed to a single topic.
type Client struct {
	topic string
	send  chan []byte
}

// NewClient creates a client listening on topic.
func NewClient(topic string) *Client {
	return &Client{
		topic: topic,
		send:  make(chan []byte, 256),
	}
}

// Topic returns the topic the client listens on.
func (c *Client) Topic() string {
	return c.topic
}

// Send returns the channel of outbound messages. It is closed when the hub
// drops the client.
func (c *Client) Send() <-chan []byte {
	return c.send
}
