package gateway

import (
	"context"
	"net/http"

	"speedwordle/internal/logging"
)

// Handler upgrades incoming HTTP requests to websocket connections and
// registers each one with the hub.
type Handler struct {
	hub    *Hub
	auth   *TokenVerifier
	logger *logging.Logger
}

func NewHandler(hub *Hub, auth *TokenVerifier, logger *logging.Logger) *Handler {
	return &Handler{hub: hub, auth: auth, logger: logger}
}

// HandleWebSocket upgrades the connection, verifies the bearer token if one
// was presented, and starts the client's pumps. An absent or invalid token
// does not refuse the upgrade: the connection is accepted unauthenticated
// per §4.H, and every subsequent matchmaking/game message from it is
// rejected by the hub's dispatch layer instead.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientID := generateClientID()

	if h.hub.security != nil {
		if err := h.hub.security.ValidateConnection(r, clientID); err != nil {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.LogError(context.Background(), err, "gateway: websocket upgrade failed", "remote_addr", r.RemoteAddr)
		}
		return
	}

	client := newClient(conn, h.hub, clientID, clientIP(r))

	if token := bearerToken(r); token != "" && h.auth != nil {
		if playerID, username, elo, err := h.auth.Verify(token); err == nil {
			client.authenticate(playerID, username, elo)
			h.hub.engine.Sessions().Register(playerID, client)
		}
	}

	h.hub.register <- client
	client.run()
}

// bearerToken reads the handshake token from the Authorization header or,
// for browser websocket clients that cannot set custom headers, the
// "token" query parameter.
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); len(auth) > 7 && auth[:7] == "Bearer " {
		return auth[7:]
	}
	return r.URL.Query().Get("token")
}
