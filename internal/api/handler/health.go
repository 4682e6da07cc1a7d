package handler

import (
	"net/http"

	"github.com/EliasAN1/Stacktictoe/internal/api/response"
)

// ConnectionCounter reports how many realtime connections are open
type ConnectionCounter interface {
	ClientCount() int
}

// HealthHandler handles the health check
type HealthHandler struct {
	connections ConnectionCounter
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(connections ConnectionCounter) *HealthHandler {
	return &HealthHandler{connections: connections}
}

// Get handles GET /api/v1/health
func (h *HealthHandler) Get(w http.ResponseWriter, _ *http.Request) {
	resp := response.Health{Status: "ok"}
	if h.connections != nil {
		resp.Connections = h.connections.ClientCount()
	}
	response.JSON(w, http.StatusOK, resp)
}
