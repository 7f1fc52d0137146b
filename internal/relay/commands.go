package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/modmail/internal/command"
	"github.com/ashureev/modmail/internal/domain"
	"github.com/ashureev/modmail/internal/metrics"
	"github.com/ashureev/modmail/internal/shared"
)

const (
	textMissingID     = "Did you forget to enter an ID?"
	textBadID         = "Could not convert to int."
	textMissingText   = "Did you forget to enter a message?"
	textNoLastMessage = "There is no last message in the current session."
	textPresenceReset = "Game presence re-set."
	textNoMember      = "Failed to find member."
)

func (e *Engine) handleChannelMessage(ctx context.Context, m ChannelMessage) {
	if m.Author.Bot || m.Ref.ChannelID != e.cfg.ChannelID {
		return
	}
	cmd, ok := command.Parse(e.cfg.Prefix, m.Content)
	if !ok {
		return
	}

	line := strings.TrimSpace(m.Content)
	if !e.guard.acquire(line) {
		slog.Info("Dropping repeated command", "command", cmd.Token(), "staff_id", m.Author.ID)
		e.say(ctx, fmt.Sprintf("%s `%s%s` is already being handled, ignoring the repeat.",
			m.Author.Mention(), e.cfg.Prefix, cmd.Token()))
		return
	}
	defer e.guard.release(line)

	metrics.Commands.WithLabelValues(commandName(cmd)).Inc()

	switch c := cmd.(type) {
	case command.MissingID:
		e.say(ctx, textMissingID)
	case command.BadID:
		e.say(ctx, textBadID)
	case command.Ignore:
		e.ignore(ctx, m.Author, c)
	case command.Unignore:
		e.unignore(ctx, m.Author, c.UserID)
	case command.Reply:
		e.reply(ctx, m, c.UserID, c.Text)
	case command.UnknownTarget:
		e.say(ctx, textNoMember)
	case command.ReplyLast:
		userID, ok := e.session.last()
		if !ok {
			e.say(ctx, textNoLastMessage)
			return
		}
		e.reply(ctx, m, userID, c.Text)
	case command.ShowLast:
		userID, ok := e.session.last()
		if !ok {
			e.say(ctx, textNoLastMessage)
			return
		}
		e.say(ctx, fmt.Sprintf("%d %s", userID, domain.Mention(userID)))
	case command.FixPresence:
		if err := e.platform.SetPresence(ctx, ""); err != nil {
			slog.Warn("Failed to clear presence", "error", err)
		}
		if err := e.platform.SetPresence(ctx, e.cfg.Presence); err != nil {
			slog.Warn("Failed to set presence", "error", err)
		}
		e.say(ctx, textPresenceReset)
	}
}

func commandName(cmd command.Command) string {
	switch c := cmd.(type) {
	case command.Reply, command.UnknownTarget:
		return "reply"
	case command.MissingID, command.BadID:
		return "invalid"
	default:
		return c.Token()
	}
}

func (e *Engine) ignore(ctx context.Context, staff domain.User, c command.Ignore) {
	added, err := e.store.AddIgnore(ctx, c.UserID, c.Reason, c.Quiet)
	if err != nil {
		e.storeFailure(ctx, "ignore", c.UserID, err)
		return
	}
	if !added {
		e.say(ctx, fmt.Sprintf("%s %d is already ignored.", staff.Mention(), c.UserID))
		return
	}

	if !c.Quiet {
		text := "Your messages are being ignored by staff."
		if c.Reason != nil {
			text += " Reason: " + *c.Reason
		}
		e.notify(ctx, c.UserID, text, "not sending reason.")
	}

	slog.Info("User ignored", "user_id", c.UserID, "staff_id", staff.ID, "quiet", c.Quiet)
	e.say(ctx, fmt.Sprintf("%s %d is now ignored. Messages from this user will not appear. Use `%sunignore` to reverse.",
		staff.Mention(), c.UserID, e.cfg.Prefix))
	var detail string
	if c.Reason != nil {
		detail = *c.Reason
	}
	e.publish(domain.ActivityIgnored, c.UserID, staff.ID, detail)
}

func (e *Engine) unignore(ctx context.Context, staff domain.User, userID uint64) {
	// The quiet flag has to be read before the entry is gone.
	entry, err := e.store.IsIgnored(ctx, userID)
	if err != nil {
		e.storeFailure(ctx, "unignore", userID, err)
		return
	}
	if entry != nil && !entry.Quiet {
		e.notify(ctx, userID, "Your messages are no longer being ignored by staff.", "not sending notification.")
	}

	removed, err := e.store.RemoveIgnore(ctx, userID)
	if err != nil {
		e.storeFailure(ctx, "unignore", userID, err)
		return
	}
	if !removed {
		e.say(ctx, fmt.Sprintf("%s %d is not ignored.", staff.Mention(), userID))
		return
	}

	slog.Info("User unignored", "user_id", userID, "staff_id", staff.ID)
	e.say(ctx, fmt.Sprintf("%s %d is no longer ignored. Messages from this user will appear again. Use `%signore` to reverse.",
		staff.Mention(), userID, e.cfg.Prefix))
	e.publish(domain.ActivityUnignored, userID, staff.ID, "")
}

// notify DMs a user about an ignore list change. Failures are reported to the
// coordination channel and not retried.
func (e *Engine) notify(ctx context.Context, userID uint64, text, skipped string) {
	member, err := e.platform.Member(ctx, userID)
	if err != nil && !errors.Is(err, ErrTargetNotFound) {
		slog.Warn("Failed to resolve member", "user_id", userID, "error", err)
	}
	if member == nil {
		e.say(ctx, "Failed to find user with ID, "+skipped)
		return
	}

	if _, err := e.platform.SendDirect(ctx, userID, Outbound{Content: text}); err != nil {
		if errors.Is(err, ErrDeliveryRefused) {
			e.say(ctx, fmt.Sprintf("%s has disabled DMs or is not in a shared server, %s", member.Mention(), skipped))
			return
		}
		slog.Warn("Failed to notify user", "user_id", userID, "error", err)
		e.say(ctx, fmt.Sprintf("Failed to notify %s, %s", member.Mention(), skipped))
	}
}

// commandGuard drops a command line while an identical line is running or
// has just finished.
type commandGuard struct {
	mu       sync.Mutex
	busy     map[string]struct{}
	cooldown time.Duration
	sched    shared.Scheduler
}

func newCommandGuard(cooldown time.Duration, sched shared.Scheduler) *commandGuard {
	return &commandGuard{
		busy:     make(map[string]struct{}),
		cooldown: cooldown,
		sched:    sched,
	}
}

func (g *commandGuard) acquire(line string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.busy[line]; ok {
		return false
	}
	g.busy[line] = struct{}{}
	return true
}

func (g *commandGuard) release(line string) {
	g.sched.AfterFunc(g.cooldown, func() {
		g.mu.Lock()
		delete(g.busy, line)
		g.mu.Unlock()
	})
}
