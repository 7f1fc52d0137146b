package feed

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// Handler serves the activity stream. Clients receive the backlog first and
// then every new event as one JSON text frame.
type Handler struct {
	hub           *Hub
	allowedOrigin string
}

// NewHandler creates a WebSocket handler. An empty allowedOrigin or "*"
// accepts any origin.
func NewHandler(hub *Hub, allowedOrigin string) *Handler {
	return &Handler{hub: hub, allowedOrigin: allowedOrigin}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "feed closed"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	sub, backlog := h.hub.subscribe()
	defer h.hub.unsubscribe(sub)

	// The feed is write-only; CloseRead handles control frames and cancels
	// ctx once the client goes away.
	ctx := ws.CloseRead(r.Context())

	for _, a := range backlog {
		if err := write(ctx, ws, a); err != nil {
			slog.Debug("Activity backlog write failed", "error", err)
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			slog.Debug("Activity subscriber disconnected", "ip", r.RemoteAddr)
			return
		case a := <-sub.ch:
			if err := write(ctx, ws, a); err != nil {
				if ctx.Err() == nil {
					slog.Warn("Activity write failed", "error", err)
				}
				return
			}
		}
	}
}

func write(ctx context.Context, ws *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, v)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
