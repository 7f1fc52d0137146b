// Package relay implements the modmail relay: user DMs are posted to the
// coordination channel and staff commands posted there are executed.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/modmail/internal/antispam"
	"github.com/ashureev/modmail/internal/attachment"
	"github.com/ashureev/modmail/internal/domain"
	"github.com/ashureev/modmail/internal/shared"
	"github.com/ashureev/modmail/internal/store"
)

const (
	ackEmoji         = "✅"
	autoIgnoreReason = "Automatic anti-spam ignore"

	defaultCommandCooldown = 2 * time.Second
	defaultEventBuffer     = 64
)

// Settings configures an Engine.
type Settings struct {
	ChannelID          uint64
	Prefix             string
	Presence           string
	AnonymousStaff     bool
	PostStartupMessage bool
	Limits             attachment.Limits
	// BuildInfo is appended to the startup banner.
	BuildInfo string
	// CommandCooldown is how long a command token stays busy after the
	// command completed. Zero means two seconds.
	CommandCooldown time.Duration
}

// ActivitySink receives relay activity for operators.
type ActivitySink interface {
	Publish(a domain.Activity)
}

type noopActivitySink struct{}

func (noopActivitySink) Publish(domain.Activity) {}

// Option configures optional Engine collaborators.
type Option func(*Engine)

// WithActivitySink publishes relay activity to sink.
func WithActivitySink(sink ActivitySink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.activity = sink
		}
	}
}

// WithScheduler replaces the timer used to clear busy command tokens.
func WithScheduler(s shared.Scheduler) Option {
	return func(e *Engine) {
		e.guard.sched = s
	}
}

// Engine owns the relay session. Events are handled one at a time by Run.
type Engine struct {
	platform Platform
	store    store.IgnoreStore
	limiter  *antispam.Limiter
	fetcher  attachment.Fetcher
	activity ActivitySink
	cfg      Settings

	guard   *commandGuard
	session session
	events  chan Event
}

// New creates an Engine.
func New(p Platform, st store.IgnoreStore, lim *antispam.Limiter, f attachment.Fetcher, cfg Settings, opts ...Option) *Engine {
	if cfg.CommandCooldown <= 0 {
		cfg.CommandCooldown = defaultCommandCooldown
	}
	if cfg.Limits.Limit <= 0 {
		cfg.Limits = attachment.DefaultLimits()
	}
	e := &Engine{
		platform: p,
		store:    st,
		limiter:  lim,
		fetcher:  f,
		activity: noopActivitySink{},
		cfg:      cfg,
		guard:    newCommandGuard(cfg.CommandCooldown, shared.TimerScheduler{}),
		events:   make(chan Event, defaultEventBuffer),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dispatch queues an event for Run. It blocks while the queue is full.
func (e *Engine) Dispatch(ctx context.Context, ev Event) error {
	select {
	case e.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run handles queued events until ctx is cancelled. It returns an error only
// when the coordination channel cannot be resolved on the first Ready.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("Relay engine started", "channel_id", e.cfg.ChannelID)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Relay engine stopped")
			return nil
		case ev := <-e.events:
			if err := e.Handle(ctx, ev); err != nil {
				return err
			}
		}
	}
}

// Handle processes one event synchronously. Everything except Ready is
// dropped until the session is ready.
func (e *Engine) Handle(ctx context.Context, ev Event) error {
	if r, ok := ev.(Ready); ok {
		return e.handleReady(ctx, r)
	}
	if !e.session.isReady() {
		slog.Debug("Dropping event before ready", "event", fmt.Sprintf("%T", ev))
		return nil
	}

	switch ev := ev.(type) {
	case DirectMessage:
		e.handleDirectMessage(ctx, ev)
	case Typing:
		e.handleTyping(ctx, ev)
	case ChannelMessage:
		e.handleChannelMessage(ctx, ev)
	}
	return nil
}

// Snapshot returns the current session state.
func (e *Engine) Snapshot() domain.SessionSnapshot {
	return e.session.snapshot()
}

func (e *Engine) handleReady(ctx context.Context, r Ready) error {
	if e.session.isReady() {
		slog.Info("Platform session resumed")
		return nil
	}

	if err := e.platform.ResolveChannel(ctx, e.cfg.ChannelID); err != nil {
		return fmt.Errorf("%w: %d: %w", ErrChannelNotFound, e.cfg.ChannelID, err)
	}
	if err := e.platform.SetPresence(ctx, e.cfg.Presence); err != nil {
		slog.Warn("Failed to set presence", "error", err)
	}

	banner := fmt.Sprintf("%s is now ready.", r.Self.Tag())
	if e.cfg.BuildInfo != "" {
		banner += " " + e.cfg.BuildInfo
	}
	slog.Info(banner)
	if e.cfg.PostStartupMessage {
		e.say(ctx, banner)
	}

	e.session.markReady()
	return nil
}

// say posts plain text to the coordination channel. Failures are logged.
func (e *Engine) say(ctx context.Context, text string) {
	if _, err := e.platform.Send(ctx, e.cfg.ChannelID, Outbound{Content: text}); err != nil {
		slog.Error("Failed to post to coordination channel", "error", err)
	}
}

func (e *Engine) publish(kind domain.ActivityKind, userID, staffID uint64, detail string) {
	e.activity.Publish(domain.Activity{
		Kind:    kind,
		UserID:  userID,
		StaffID: staffID,
		Detail:  detail,
		At:      time.Now().UTC(),
	})
}

type session struct {
	mu            sync.RWMutex
	ready         bool
	lastContacted uint64
	hasLast       bool
}

func (s *session) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

func (s *session) markReady() {
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
}

func (s *session) last() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastContacted, s.hasLast
}

func (s *session) setLast(userID uint64) {
	s.mu.Lock()
	s.lastContacted = userID
	s.hasLast = true
	s.mu.Unlock()
}

func (s *session) snapshot() domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := domain.SessionSnapshot{Ready: s.ready}
	if s.hasLast {
		id := s.lastContacted
		snap.LastContacted = &id
	}
	return snap
}
