package live

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"mentor-meet-api/internal/api"
	"mentor-meet-api/internal/auth"
	"mentor-meet-api/internal/model"
)

// SessionLister supplies the snapshot sent on connect.
type SessionLister interface {
	ListSessions(ctx context.Context) ([]model.Session, error)
}

type Handler struct {
	hub      *Hub
	sessions SessionLister
	secret   string
	issuer   string
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, sessions SessionLister, secret, issuer string) *Handler {
	return &Handler{
		hub:      hub,
		sessions: sessions,
		secret:   secret,
		issuer:   issuer,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			// token auth, any origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// token reads ?token= or an Authorization bearer header.
func token(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := token(r)
	if raw == "" {
		http.Error(w, "no token", http.StatusUnauthorized)
		return
	}
	claims, err := auth.ParseToken(raw, h.secret, h.issuer)
	if err != nil {
		http.Error(w, "bad token", http.StatusUnauthorized)
		return
	}

	list, err := h.sessions.ListSessions(r.Context())
	if err != nil {
		h.hub.log.Error("live snapshot", "error", err)
		http.Error(w, "sessions unavailable", http.StatusServiceUnavailable)
		return
	}
	snapshot, err := json.Marshal(api.Event{Type: api.EventSnapshot, Sessions: api.FromSessions(list)})
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied
		h.hub.log.Warn("websocket upgrade", "error", err)
		return
	}

	c := newClient(conn, claims.UserID())
	// queued before registering so the snapshot is always first
	c.send <- snapshot
	if !h.hub.register(c) {
		c.close()
		return
	}
	h.hub.log.Debug("live client connected", "user_id", c.userID)
	defer h.hub.unregister(c)

	go c.writeLoop()
	c.readLoop()
}
