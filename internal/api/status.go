//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ashureev/modmail/internal/domain"
	"github.com/ashureev/modmail/internal/store"
	"github.com/go-chi/chi/v5"
)

// SessionSource exposes the relay session state.
type SessionSource interface {
	Snapshot() domain.SessionSnapshot
}

// StatusHandler serves health, ignore list and session endpoints.
type StatusHandler struct {
	store         store.IgnoreStore
	session       SessionSource
	version       string
	healthTimeout time.Duration
}

// NewStatusHandler creates a status handler.
func NewStatusHandler(st store.IgnoreStore, session SessionSource, version string) *StatusHandler {
	return &StatusHandler{
		store:         st,
		session:       session,
		version:       version,
		healthTimeout: 5 * time.Second,
	}
}

// RegisterRoutes registers the status routes.
func (h *StatusHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/session", h.Session)
		r.Get("/ignored", h.ListIgnored)
		r.Get("/ignored/{userID}", h.GetIgnored)
	})
}

// Health reports database reachability and whether the relay is ready.
// Only an unreachable database makes the service unhealthy.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.healthTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok", "relay": "starting"}
	status := map[string]interface{}{
		"status":  "healthy",
		"version": h.version,
		"checks":  checks,
	}
	statusCode := http.StatusOK

	if err := h.store.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}
	if h.session.Snapshot().Ready {
		checks["relay"] = "ready"
	}

	JSON(w, statusCode, status)
}

// Session returns the relay session snapshot.
func (h *StatusHandler) Session(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.session.Snapshot())
}

// ListIgnored returns every ignore list entry.
func (h *StatusHandler) ListIgnored(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.ListIgnored(r.Context())
	if err != nil {
		slog.Error("Failed to list ignored users", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list ignored users")
		return
	}
	if entries == nil {
		entries = []domain.IgnoreEntry{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(entries),
		"ignored": entries,
	})
}

// GetIgnored returns a single entry or 404 when the user is not ignored.
func (h *StatusHandler) GetIgnored(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseUint(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid user id")
		return
	}

	entry, err := h.store.IsIgnored(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to look up ignored user", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to look up user")
		return
	}
	if entry == nil {
		Error(w, http.StatusNotFound, "user is not ignored")
		return
	}
	JSON(w, http.StatusOK, entry)
}
