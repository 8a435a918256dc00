package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	wsAdapter "github.com/lorrc/service-desk-sla/internal/adapters/primary/websocket"
	"github.com/lorrc/service-desk-sla/internal/config"
)

// WebSocketHandler upgrades authenticated callers to a live event stream of
// ticket timelines and SLA breach alerts. It is mounted behind
// JWTMiddleware, which accepts the token as a query parameter.
type WebSocketHandler struct {
	hub      *wsAdapter.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *wsAdapter.Hub, cfg *config.Config, logger *slog.Logger) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:    hub,
		logger: logger.With("handler", "websocket"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		CheckOrigin:     h.checkOrigin(cfg.IsDevelopment(), cfg.WebSocket.AllowedOrigins),
	}
	return h
}

// checkOrigin accepts requests without an Origin header (non-browser
// clients) and browsers from an allowed host. Development accepts any origin.
func (h *WebSocketHandler) checkOrigin(development bool, allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if development {
			h.logger.Warn("allowing websocket origin in development mode",
				"origin", origin,
				"remote_addr", r.RemoteAddr,
			)
			return true
		}
		if originAllowed(origin, allowed) {
			return true
		}
		h.logger.Warn("websocket connection rejected due to origin",
			"origin", origin,
			"remote_addr", r.RemoteAddr,
			"allowed_origins", allowed,
		)
		return false
	}
}

// originAllowed matches the origin's host against exact hosts and
// "*.example.com" patterns, which also match the bare domain.
func originAllowed(origin string, allowed []string) bool {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := parsed.Host
	for _, pattern := range allowed {
		if domain, ok := strings.CutPrefix(pattern, "*."); ok {
			if host == domain || strings.HasSuffix(host, "."+domain) {
				return true
			}
			continue
		}
		if host == pattern {
			return true
		}
	}
	return false
}

// ServeHTTP handles GET /api/v1/ws
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := getClaims(w, r)
	if !ok {
		return
	}
	requestID := GetRequestID(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket connection",
			"request_id", requestID,
			"user_id", claims.UserID,
			"error", err,
		)
		return
	}

	client := wsAdapter.NewClient(h.hub, conn, claims.UserID, claims.TenantID, h.logger)
	if !h.hub.Attach(client) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = conn.Close()
		return
	}

	h.logger.Info("websocket connection established",
		"request_id", requestID,
		"user_id", claims.UserID,
		"tenant_id", claims.TenantID,
		"remote_addr", r.RemoteAddr,
	)

	go client.WritePump()
	go client.ReadPump()
}
