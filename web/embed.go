// Package web embeds the operator dashboard: a single static page that lists
// the ignore list and follows the live activity feed.
package web

import (
	"bytes"
	_ "embed"
	"net/http"
	"time"
)

//go:embed dist/index.html
var dashboardPage []byte

// DashboardHandler serves the dashboard page for every GET or HEAD path. The
// page is never cached.
func DashboardHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h := w.Header()
		h.Set("Content-Type", "text/html; charset=utf-8")
		h.Set("Cache-Control", "no-cache")
		h.Set("X-Content-Type-Options", "nosniff")
		http.ServeContent(w, r, "index.html", time.Time{}, bytes.NewReader(dashboardPage))
	})
}
