package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/finquest/finquest/internal/identity"
)

// WebSocketHandler handles WebSocket upgrade requests for game connections.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	stateProvider     StateProvider
	resolver          identity.Resolver
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(cm *ConnectionManager, sp StateProvider, resolver identity.Resolver) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		stateProvider:     sp,
		resolver:          resolver,
	}
}

// HandleGameConnection handles WebSocket connections for a specific game.
// Browsers cannot set headers on WebSocket upgrades, so the bearer token
// rides in a query parameter.
func (h *WebSocketHandler) HandleGameConnection(w http.ResponseWriter, r *http.Request) {
	gameID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "token is required", http.StatusUnauthorized)
		return
	}
	id, err := h.resolver.Resolve(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.connectionManager.UpgradeConnection(w, r, id.UserID.String(), gameID)
	if err != nil {
		log.Error().
			Err(err).
			Str("game_id", gameID.String()).
			Str("user_id", id.UserID.String()).
			Msg("failed to upgrade WebSocket connection")
		return
	}

	// Serve the authoritative snapshot before any pushed event, so the
	// client never has to trust continuity it didn't observe.
	h.sendSnapshot(r.Context(), conn)
}

// sendSnapshot pushes one authoritative snapshot to a single connection.
func (h *WebSocketHandler) sendSnapshot(ctx context.Context, conn *Connection) {
	details, err := h.stateProvider.GetGameState(ctx, conn.GameID)
	if err != nil {
		log.Error().Err(err).Str("game_id", conn.GameID.String()).Msg("failed to build snapshot")
		return
	}

	payload, err := encodeSnapshot(details)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode snapshot")
		return
	}
	h.connectionManager.SendToConnection(conn, payload)
}

// HandleConnectionStats returns statistics about active connections.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	stats := h.connectionManager.GetConnectionStats()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers WebSocket routes with the router.
func (h *WebSocketHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws/games/{id}", h.HandleGameConnection).Methods(http.MethodGet)
	r.HandleFunc("/ws/stats", h.HandleConnectionStats).Methods(http.MethodGet)
}
