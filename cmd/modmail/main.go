// modmail - relays private messages between users and a staff channel.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/joho/godotenv"

	"github.com/ashureev/modmail/internal/antispam"
	"github.com/ashureev/modmail/internal/api"
	"github.com/ashureev/modmail/internal/attachment"
	"github.com/ashureev/modmail/internal/config"
	"github.com/ashureev/modmail/internal/discord"
	"github.com/ashureev/modmail/internal/feed"
	"github.com/ashureev/modmail/internal/metrics"
	"github.com/ashureev/modmail/internal/relay"
	"github.com/ashureev/modmail/internal/store"
	"github.com/ashureev/modmail/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	if err := run(); err != nil {
		slog.Error("modmail stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	version := versioninfo.Short()
	slog.Info("Starting modmail", "version", version, "port", cfg.Port, "db_path", cfg.DBPath)

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}

	client, err := discord.New(cfg.Token)
	if err != nil {
		return err
	}

	hub := feed.NewHub(100)
	engine := relay.New(
		client,
		repo,
		antispam.New(cfg.AntiSpam.Messages, cfg.AntiSpam.Window),
		attachment.NewHTTPFetcher(cfg.Attachments.Limit),
		relay.Settings{
			ChannelID:          cfg.ChannelID,
			Prefix:             cfg.CommandPrefix,
			Presence:           cfg.Playing,
			AnonymousStaff:     cfg.AnonymousStaff,
			PostStartupMessage: cfg.PostStartupMessage,
			Limits:             cfg.Attachments,
			BuildInfo:          buildInfo(),
		},
		relay.WithActivitySink(hub),
	)

	router := api.NewRouter(api.RouterConfig{
		Status:         api.NewStatusHandler(repo, engine, version),
		Activity:       feed.NewHandler(hub, cfg.DashboardOrigin),
		Dashboard:      web.DashboardHandler(),
		AllowedOrigins: cfg.AllowedOrigins(),
	})

	// WebSocket feeds are long-lived, so no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.StartIgnoreListWorker(ctx, repo, time.Minute)

	engineErr := make(chan error, 1)
	go func() {
		engineErr <- engine.Run(ctx)
	}()

	if err := client.Start(ctx, cfg.ChannelID, engine); err != nil {
		return err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			slog.Error("Failed to close discord session", "error", closeErr)
		}
	}()

	go func() {
		slog.Info("Status server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Status server failed", "error", err)
			stop()
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-engineErr:
	}
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	if runErr != nil {
		return runErr
	}
	slog.Info("Server stopped successfully")
	return nil
}

func buildInfo() string {
	rev := versioninfo.Revision
	if len(rev) > 7 {
		rev = rev[:7]
	}
	return fmt.Sprintf("Version %s, commit %s, %s", versioninfo.Version, rev, runtime.Version())
}
