package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBuffer     = 256
)

// Hub fans events out to websocket subscribers grouped by training id.
// A single broadcast loop serves all channels, so events published to the
// same training reach each subscriber in publish order.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan Message
	done       chan struct{}

	mu     sync.RWMutex
	logger *zap.Logger
}

// Message carries one serialized event for one training channel.
type Message struct {
	TrainingID string
	Payload    []byte
}

// NewHub builds a hub. Call Run before subscribing.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Message, sendBuffer),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations and broadcasts until the context is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			// Unblocks pumps still trying to register or unregister.
			close(h.done)
			return
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.trainingID] == nil {
				h.clients[client.trainingID] = make(map[*Client]struct{})
			}
			h.clients[client.trainingID][client] = struct{}{}
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.trainingID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.clients, client.trainingID)
					}
				}
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[message.TrainingID] {
				select {
				case client.send <- message.Payload:
				default:
					// Slow consumer: drop the connection, delivery is
					// best-effort.
					close(client.send)
					delete(h.clients[message.TrainingID], client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a payload for every subscriber of the training channel.
func (h *Hub) Broadcast(trainingID string, payload []byte) {
	h.broadcast <- Message{TrainingID: trainingID, Payload: payload}
}

// SubscriberCount reports the current subscribers of one channel.
func (h *Hub) SubscriberCount(trainingID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[trainingID])
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for trainingID, clients := range h.clients {
		for client := range clients {
			close(client.send)
		}
		delete(h.clients, trainingID)
	}
}

// Client is one websocket subscription scoped to a single training channel.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	trainingID string
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Subscribe upgrades the HTTP request and pumps events until the peer
// disconnects. It blocks for the lifetime of the connection.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, trainingID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	client := &Client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		trainingID: trainingID,
	}
	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return nil
	}

	go client.writePump()
	client.readPump()
	return nil
}

// readPump discards inbound frames and tears the client down on disconnect.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
