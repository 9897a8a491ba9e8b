package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// TokenVerifier trả user id từ access token
type TokenVerifier func(token string) (uuid.UUID, error)

type Handler struct {
	hub      *Hub
	verify   TokenVerifier
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, verify TokenVerifier, allowedOrigins []string) *Handler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Handler{
		hub:    hub,
		verify: verify,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(origins) == 0 || origins[origin]
			},
		},
	}
}

// HandleUserWebSocket: GET /ws/notifications?token=<access token>
func (h *Handler) HandleUserWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Thiếu token"})
		return
	}
	userID, err := h.verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token không hợp lệ hoặc hết hạn"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.log.Warn("websocket upgrade thất bại", "error", err)
		return
	}
	client := h.hub.RegisterUser(userID, conn)
	h.hub.log.Info("user ws connected", "user_id", userID)

	h.hub.sendTo(client, "connected", gin.H{"user_id": userID})

	go client.writePump()
	client.readPump()

	h.hub.UnregisterUser(client)
	h.hub.log.Info("user ws disconnected", "user_id", userID)
}
