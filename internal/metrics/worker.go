package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/modmail/internal/domain"
)

// IgnoreLister lists the ignore list.
type IgnoreLister interface {
	ListIgnored(ctx context.Context) ([]domain.IgnoreEntry, error)
}

// StartIgnoreListWorker runs a background goroutine that keeps the
// IgnoredUsers gauge current until ctx is done.
func StartIgnoreListWorker(ctx context.Context, lister IgnoreLister, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Ignore list metrics worker started", "interval", interval)

		refreshIgnored(ctx, lister)
		for {
			select {
			case <-ticker.C:
				refreshIgnored(ctx, lister)
			case <-ctx.Done():
				slog.Info("Ignore list metrics worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func refreshIgnored(ctx context.Context, lister IgnoreLister) (int, bool) {
	entries, err := lister.ListIgnored(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("Ignore list metrics refresh failed", "error", err)
		}
		return 0, false
	}
	IgnoredUsers.Set(float64(len(entries)))
	return len(entries), true
}
