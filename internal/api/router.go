//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"net/http"

	"github.com/ashureev/modmail/internal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig collects the handlers mounted by NewRouter.
type RouterConfig struct {
	Status         *StatusHandler
	Activity       http.Handler
	Dashboard      http.Handler
	AllowedOrigins []string
}

// NewRouter builds the operator HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	cfg.Status.RegisterRoutes(r)
	r.Handle("/metrics", promhttp.Handler())
	if cfg.Activity != nil {
		r.Get("/ws/activity", cfg.Activity.ServeHTTP)
	}
	if cfg.Dashboard != nil {
		r.Handle("/*", cfg.Dashboard)
	}
	return r
}
