package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cx-tal-miterani/shuttle-booking-system/internal/logger"
	"github.com/cx-tal-miterani/shuttle-booking-system/internal/models"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MessageTypeSnapshot MessageType = "trip_instance_snapshot"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// Message represents a WebSocket message
type Message struct {
	Type           MessageType                  `json:"type"`
	TripInstanceID uuid.UUID                    `json:"tripInstanceId"`
	Snapshot       *models.TripInstanceSnapshot `json:"snapshot,omitempty"`
	Timestamp      int64                        `json:"timestamp"`
}

// Client is one connection watching a trip instance
type Client struct {
	hub            *Hub
	conn           *websocket.Conn
	send           chan []byte
	tripInstanceID uuid.UUID
}

// Hub fans snapshots out to the clients of each trip instance
type Hub struct {
	clients    map[uuid.UUID]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
	upgrader   websocket.Upgrader
	log        *logger.Logger
	mu         sync.RWMutex
}

var globalHub *Hub
var hubOnce sync.Once

// GetHub returns the process-wide hub, started on first use
func GetHub(log *logger.Logger) *Hub {
	hubOnce.Do(func() {
		globalHub = NewHub(log)
		go globalHub.Run(context.Background())
	})
	return globalHub
}

// NewHub creates a new Hub
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// Run processes registrations and broadcasts until ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.tripInstanceID] == nil {
				h.clients[client.tripInstanceID] = make(map[*Client]bool)
			}
			h.clients[client.tripInstanceID][client] = true
			h.log.Debug("WebSocket client registered", "trip_instance_id", client.tripInstanceID, "total", len(h.clients[client.tripInstanceID]))
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				h.log.Error("Failed to marshal websocket message", "error", err)
				continue
			}

			h.mu.Lock()
			for client := range h.clients[message.TripInstanceID] {
				select {
				case client.send <- data:
				default:
					// slow reader, drop it
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held
func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.tripInstanceID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	h.log.Debug("WebSocket client unregistered", "trip_instance_id", client.tripInstanceID, "remaining", len(clients))
	if len(clients) == 0 {
		delete(h.clients, client.tripInstanceID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for client := range clients {
			h.remove(client)
		}
	}
}

// BroadcastSnapshot pushes a fresh snapshot to everyone watching the instance.
// It never blocks the caller; when the queue is full the update is dropped.
func (h *Hub) BroadcastSnapshot(snapshot models.TripInstanceSnapshot) {
	msg := newSnapshotMessage(snapshot)
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("WebSocket broadcast queue full, dropping snapshot", "trip_instance_id", snapshot.TripInstanceID)
	}
}

// GetClientCount returns the number of clients watching a trip instance
func (h *Hub) GetClientCount(tripInstanceID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[tripInstanceID])
}

// Serve upgrades the request and streams snapshots of the trip instance,
// starting with initial.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, initial models.TripInstanceSnapshot) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:            h,
		conn:           conn,
		send:           make(chan []byte, sendBuffer),
		tripInstanceID: initial.TripInstanceID,
	}
	if data, err := json.Marshal(newSnapshotMessage(initial)); err == nil {
		client.send <- data
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func newSnapshotMessage(snapshot models.TripInstanceSnapshot) *Message {
	return &Message{
		Type:           MessageTypeSnapshot,
		TripInstanceID: snapshot.TripInstanceID,
		Snapshot:       &snapshot,
		Timestamp:      time.Now().UnixMilli(),
	}
}

// readPump only watches for close and pong frames; clients do not send data
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("WebSocket read error", "trip_instance_id", c.tripInstanceID, "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
