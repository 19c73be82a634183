package live

import (
	"log"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// RegisterRoutes mounts the feed on an already authenticated group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/ws", h.WebSocket)
}

// WebSocket handles GET /api/v1/admin/ws
func (h *Handler) WebSocket(c *gin.Context) {
	if err := h.hub.Serve(c.Writer, c.Request, c.GetString("subject")); err != nil {
		// The upgrader has already written the HTTP error.
		log.Printf("live_upgrade_failed error=%q", err.Error())
	}
}
