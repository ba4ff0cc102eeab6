package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtside/go/internal/host"
)

// WebSocketHandler handles WebSocket upgrade requests for match viewers
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
	}
}

// HandleMatchConnection handles GET /ws/match?code=XXXXXX&role=spectator|tablet|host.
// The role is whatever the client asks for: there is no authentication, so read-only
// spectators are a client convention and not an access control.
func (h *WebSocketHandler) HandleMatchConnection(w http.ResponseWriter, r *http.Request) {
	code, ok := host.NormalizeCode(r.URL.Query().Get("code"))
	if !ok {
		http.Error(w, "a valid match code is required", http.StatusBadRequest)
		return
	}

	role, err := ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.connectionManager.UpgradeConnection(w, r, code, role); err != nil {
		switch {
		case errors.Is(err, errUpgradeFailed):
		case IsNotFound(err):
			http.Error(w, "match not found", http.StatusNotFound)
		default:
			log.Error().
				Err(err).
				Str("match_code", code).
				Str("role", string(role)).
				Msg("failed to open viewer connection")
			http.Error(w, "failed to open connection", http.StatusInternalServerError)
		}
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	stats := h.connectionManager.GetConnectionStats()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

// RegisterRoutes registers WebSocket routes
func (h *WebSocketHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws/match", h.HandleMatchConnection).Methods(http.MethodGet)
	router.HandleFunc("/ws/stats", h.HandleConnectionStats).Methods(http.MethodGet)
}
