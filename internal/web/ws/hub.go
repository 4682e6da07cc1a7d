// Package ws carries realtime events over websockets. The Hub tracks live
// connections and their group memberships and implements realtime.Notifier.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/EliasAN1/Stacktictoe/internal/model"
	"github.com/EliasAN1/Stacktictoe/internal/realtime"
)

// Handler receives connection lifecycle and inbound events
type Handler interface {
	Connect(ctx context.Context, conn model.ConnID)
	Disconnect(ctx context.Context, conn model.ConnID)
	Handle(ctx context.Context, conn model.ConnID, env model.Envelope)
}

// Config holds configuration for the hub
type Config struct {
	// AllowedOrigins lists origins permitted to upgrade. Empty or "*" allows any.
	AllowedOrigins []string
	// SendBufferSize is the number of frames queued per connection before drops
	SendBufferSize int
	// MaxMessageSize bounds inbound frames. It must fit an acceptChallenge
	// carrying a full chat history, escaped.
	MaxMessageSize int64
}

// DefaultConfig returns default hub configuration
func DefaultConfig() Config {
	return Config{
		SendBufferSize: 256,
		MaxMessageSize: 1 << 20,
	}
}

// Hub manages websocket clients and their groups
type Hub struct {
	cfg      Config
	handler  Handler
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[model.ConnID]*Client
	groups  map[string]map[model.ConnID]struct{}
}

// Ensure Hub implements realtime.Notifier
var _ realtime.Notifier = (*Hub)(nil)

// NewHub creates a new Hub. SetHandler must be called before serving.
func NewHub(cfg Config, logger *slog.Logger) *Hub {
	defaults := DefaultConfig()
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = defaults.SendBufferSize
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}

	h := &Hub{
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "ws")),
		clients: make(map[model.ConnID]*Client),
		groups:  make(map[string]map[model.ConnID]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// SetHandler installs the event handler. The hub and the dispatcher depend
// on each other, so the handler is wired after construction.
func (h *Hub) SetHandler(handler Handler) {
	h.handler = handler
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 || slices.Contains(h.cfg.AllowedOrigins, "*") {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(h.cfg.AllowedOrigins, origin)
}

// ServeHTTP upgrades the request and runs the connection until it closes
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := &Client{
		id:          model.ConnID(uuid.NewString()),
		hub:         h,
		conn:        conn,
		send:        make(chan []byte, h.cfg.SendBufferSize),
		connectedAt: time.Now(),
	}
	h.register(client)

	// Handlers outlive the upgrade request
	ctx := context.WithoutCancel(r.Context())

	go client.writePump()
	h.handler.Connect(ctx, client.id)
	client.readPump(ctx)
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("ws client registered",
		slog.String("conn_id", string(client.id)),
		slog.Int("total_clients", clientCount))
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.id)
	close(client.send)
	for group, members := range h.groups {
		delete(members, client.id)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("ws client unregistered",
		slog.String("conn_id", string(client.id)),
		slog.Duration("connection_duration", time.Since(client.connectedAt)),
		slog.Int("total_clients", clientCount))
}

// encode builds the wire frame for an event
func (h *Hub) encode(event model.EventType, payload any) ([]byte, bool) {
	env, err := model.NewEnvelope(event, payload)
	if err != nil {
		h.logger.Error("failed to encode event",
			slog.String("event", string(event)),
			slog.String("error", err.Error()))
		return nil, false
	}
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("failed to encode envelope",
			slog.String("event", string(event)),
			slog.String("error", err.Error()))
		return nil, false
	}
	return data, true
}

// deliver queues a frame without blocking. Must be called with h.mu held.
func (h *Hub) deliver(client *Client, event model.EventType, frame []byte) {
	select {
	case client.send <- frame:
	default:
		h.logger.Warn("ws message dropped - client buffer full",
			slog.String("conn_id", string(client.id)),
			slog.String("event", string(event)))
	}
}

func (h *Hub) Emit(conn model.ConnID, event model.EventType, payload any) {
	frame, ok := h.encode(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if client, ok := h.clients[conn]; ok {
		h.deliver(client, event, frame)
	}
}

func (h *Hub) EmitToGroup(group string, except model.ConnID, event model.EventType, payload any) {
	frame, ok := h.encode(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.groups[group] {
		if conn == except {
			continue
		}
		if client, ok := h.clients[conn]; ok {
			h.deliver(client, event, frame)
		}
	}
}

func (h *Hub) Join(conn model.ConnID, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; !ok {
		return
	}
	members, ok := h.groups[group]
	if !ok {
		members = make(map[model.ConnID]struct{})
		h.groups[group] = members
	}
	members[conn] = struct{}{}
}

func (h *Hub) Leave(conn model.ConnID, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.groups[group]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

func (h *Hub) Members(group string) []model.ConnID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := make([]model.ConnID, 0, len(h.groups[group]))
	for conn := range h.groups[group] {
		members = append(members, conn)
	}
	slices.Sort(members)
	return members
}

func (h *Hub) Groups(conn model.ConnID) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var groups []string
	for group, members := range h.groups {
		if _, ok := members[conn]; ok {
			groups = append(groups, group)
		}
	}
	slices.Sort(groups)
	return groups
}

func (h *Hub) Connected(conn model.ConnID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[conn]
	return ok
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll closes every connection. Each read pump then runs its disconnect.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		_ = client.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		client.conn.Close()
	}
	h.logger.Info("ws hub closed", slog.Int("disconnected_clients", len(clients)))
}
