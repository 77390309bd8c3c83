package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/planforge/api/internal/infra/http/middleware"
	"github.com/planforge/api/pkg/apierror"
	"github.com/planforge/api/pkg/logger"
)

// Handler upgrades authenticated HTTP requests to WebSocket connections.
type Handler struct {
	hub      *Hub
	logger   *logger.Logger
	upgrader websocket.Upgrader
}

// HandlerOption configures the handler.
type HandlerOption func(*Handler)

// WithAllowedOrigins restricts upgrades to requests from the given
// origins. "*" allows any. Requests without an Origin header, typically
// non-browser clients, are always accepted.
func WithAllowedOrigins(origins []string) HandlerOption {
	return func(h *Handler) {
		allowAll := false
		allowed := make(map[string]bool, len(origins))
		for _, o := range origins {
			if o == "*" {
				allowAll = true
			}
			allowed[o] = true
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowAll || allowed[origin]
		}
	}
}

// NewHandler creates a WebSocket handler. Without WithAllowedOrigins every
// origin is accepted.
func NewHandler(hub *Hub, log *logger.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		hub:    hub,
		logger: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeWS upgrades the connection and starts the client's pumps. The auth
// middleware must have run first; anonymous requests are rejected.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		h.logger.Warn("websocket connection attempt without auth",
			"remote_addr", r.RemoteAddr,
		)
		apierror.Unauthorized("authentication required").WriteJSON(w)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed",
			"user_id", userID,
			"error", err,
		)
		return
	}

	client := NewClient(h.hub, conn, userID, h.logger)
	h.hub.RegisterClient(client)

	h.logger.Info("websocket client connected",
		"client_id", client.ID,
		"user_id", userID,
		"remote_addr", r.RemoteAddr,
	)

	go client.WritePump()
	go client.ReadPump()
}
