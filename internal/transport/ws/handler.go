package ws

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MisterSquishy/RankedChoice/internal/app"
)

// Handler handles WebSocket connections
type Handler struct {
	hub      *app.PollHub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *app.PollHub, logger *slog.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Allow all origins for development
				// In production, you should validate the origin
				return true
			},
		},
		logger: logger,
	}
}

// ServeHTTP handles WebSocket upgrade requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Get scope from query params
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		http.Error(w, "scope is required", http.StatusBadRequest)
		return
	}

	// Get or assign voter ID
	voterID := r.URL.Query().Get("voterId")
	isReturning := voterID != ""
	if !isReturning {
		voterID = uuid.New().String()
	}

	// Get the poll session. Finished polls stay reachable so voters can
	// review results.
	session, err := h.hub.GetSession(scope)
	if err != nil {
		http.Error(w, "No poll in this scope", http.StatusNotFound)
		return
	}

	// Upgrade connection to WebSocket
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	// Create client
	client := NewClient(conn, session, voterID, h.logger)

	// Register client with session
	session.RegisterClient(voterID, client)

	h.logger.Info("websocket connected",
		"scope", scope,
		"voterID", voterID,
		"isReturning", isReturning,
	)

	// Send current poll state, including the voter's own ballot
	client.sendConnected()

	// Start the client
	client.Run()
}
