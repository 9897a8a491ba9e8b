package ws

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vnkhanh/e-learning-backend/utils"
)

const sendBufferSize = 256

type Client struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
	Send   chan []byte
}

// Message là khung JSON gửi xuống client
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Hub giữ các kết nối theo user; một user có thể mở nhiều tab
type Hub struct {
	clients map[uuid.UUID]map[*Client]struct{}
	mu      sync.RWMutex
	log     *utils.Logger
}

func NewHub(log *utils.Logger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]map[*Client]struct{}),
		log:     log.With("component", "ws.Hub"),
	}
}

func (h *Hub) RegisterUser(userID uuid.UUID, conn *websocket.Conn) *Client {
	client := &Client{UserID: userID, Conn: conn, Send: make(chan []byte, sendBufferSize)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[userID]; !ok {
		h.clients[userID] = make(map[*Client]struct{})
	}
	h.clients[userID][client] = struct{}{}
	return client
}

func (h *Hub) UnregisterUser(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := clients[client]; ok {
		close(client.Send)
		delete(clients, client)
	}
	if len(clients) == 0 {
		delete(h.clients, client.UserID)
	}
}

func (h *Hub) encode(event string, payload interface{}) ([]byte, bool) {
	data, err := json.Marshal(Message{Type: event, Data: payload})
	if err != nil {
		h.log.Error("ws marshal failed", "event", event, "error", err)
		return nil, false
	}
	return data, true
}

func (h *Hub) enqueue(client *Client, event string, data []byte) {
	select {
	case client.Send <- data:
	default:
		h.log.Warn("ws send buffer full, dropping message", "user_id", client.UserID, "event", event)
	}
}

// NotifyUser gửi sự kiện tới mọi kết nối của user; client đầy buffer thì bỏ qua message
func (h *Hub) NotifyUser(userID uuid.UUID, event string, payload interface{}) {
	data, ok := h.encode(event, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[userID] {
		h.enqueue(client, event, data)
	}
}

// sendTo chỉ gửi cho một kết nối, dùng cho message chào khi vừa kết nối
func (h *Hub) sendTo(client *Client, event string, payload interface{}) {
	if data, ok := h.encode(event, payload); ok {
		h.enqueue(client, event, data)
	}
}

func (h *Hub) SendBadgeUpdate(userID uuid.UUID, unread int64) {
	h.NotifyUser(userID, "badge_update", map[string]interface{}{"unread_count": unread})
}

type Stats struct {
	Users       int `json:"users"`
	Connections int `json:"connections"`
}

func (h *Hub) GetStats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	stats := Stats{Users: len(h.clients)}
	for _, clients := range h.clients {
		stats.Connections += len(clients)
	}
	return stats
}

// writePump chạy tới khi Send bị đóng hoặc ghi lỗi
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
		_ = c.Conn.Close()
	}()
	for msg := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readPump chỉ để phát hiện client ngắt kết nối
func (c *Client) readPump() {
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
