package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"

	"github.com/ashureev/modmail/internal/antispam"
	"github.com/ashureev/modmail/internal/attachment"
	"github.com/ashureev/modmail/internal/domain"
	"github.com/ashureev/modmail/internal/metrics"
)

func (e *Engine) handleDirectMessage(ctx context.Context, m DirectMessage) {
	if m.Author.Bot {
		return
	}
	userID := m.Author.ID

	entry, err := e.store.IsIgnored(ctx, userID)
	if err != nil {
		metrics.MessagesDropped.WithLabelValues("error").Inc()
		e.storeFailure(ctx, "check the ignore list for", userID, err)
		return
	}
	if entry != nil {
		metrics.MessagesDropped.WithLabelValues("ignored").Inc()
		slog.Debug("Dropping message from ignored user", "user_id", userID)
		return
	}

	if e.limiter.Hit(userID) == antispam.Tripped {
		metrics.MessagesDropped.WithLabelValues("spam").Inc()
		e.autoIgnore(ctx, userID)
		return
	}
	defer e.limiter.Release(userID)

	report := attachment.Classify(m.Attachments, e.cfg.Limits)
	if report.HasErrors() {
		metrics.MessagesDropped.WithLabelValues("attachment").Inc()
		slog.Info("Not relaying message with oversized attachment", "user_id", userID)
		e.tellSender(ctx, userID, report.ErrorText())
		e.say(ctx, fmt.Sprintf("Message from %d %s was not relayed:\n%s",
			userID, domain.Mention(userID), report.ErrorText()))
		return
	}
	if warning := report.WarningText(); warning != "" {
		e.tellSender(ctx, userID, warning)
	}

	author := e.displayIdentity(ctx, m.Author)
	card := &Card{
		Color:         colorFor(userID),
		AuthorName:    author.DisplayName(),
		AuthorIconURL: author.AvatarURL,
		Description:   m.Content,
	}
	if len(m.Attachments) > 0 {
		card.Fields = append(card.Fields, CardField{Name: "Attachments", Value: attachment.LinkList(m.Attachments)})
	}

	msg := Outbound{Content: strconv.FormatUint(userID, 10), Card: card}
	if _, err := e.platform.Send(ctx, e.cfg.ChannelID, msg); err != nil {
		metrics.MessagesDropped.WithLabelValues("error").Inc()
		slog.Error("Failed to relay message", "user_id", userID, "error", err)
		return
	}

	if err := e.platform.React(ctx, m.Ref, ackEmoji); err != nil {
		slog.Warn("Failed to acknowledge message", "user_id", userID, "error", err)
	}
	e.session.setLast(userID)
	metrics.MessagesRelayed.Inc()
	e.publish(domain.ActivityRelayed, userID, 0, "")
}

func (e *Engine) autoIgnore(ctx context.Context, userID uint64) {
	reason := autoIgnoreReason
	added, err := e.store.AddIgnore(ctx, userID, &reason, false)
	if err != nil {
		e.storeFailure(ctx, "auto-ignore", userID, err)
		return
	}
	if !added {
		return
	}

	slog.Info("User auto-ignored", "user_id", userID)
	metrics.AutoIgnores.Inc()
	e.say(ctx, fmt.Sprintf("%d %s auto-ignored due to spam. Use `%sunignore` to reverse.",
		userID, domain.Mention(userID), e.cfg.Prefix))
	e.publish(domain.ActivityAutoIgnored, userID, 0, reason)
}

// displayIdentity prefers the staff-server member over the bare account.
func (e *Engine) displayIdentity(ctx context.Context, author domain.User) domain.User {
	member, err := e.platform.Member(ctx, author.ID)
	if err != nil {
		if !errors.Is(err, ErrTargetNotFound) {
			slog.Warn("Failed to resolve member", "user_id", author.ID, "error", err)
		}
		return author
	}
	if member == nil {
		return author
	}
	if member.AvatarURL == "" {
		member.AvatarURL = author.AvatarURL
	}
	return *member
}

func (e *Engine) handleTyping(ctx context.Context, t Typing) {
	entry, err := e.store.IsIgnored(ctx, t.UserID)
	if err != nil {
		slog.Warn("Failed to check ignore list for typing", "user_id", t.UserID, "error", err)
		return
	}
	if entry != nil {
		return
	}
	if err := e.platform.Typing(ctx, e.cfg.ChannelID); err != nil {
		slog.Debug("Failed to forward typing", "error", err)
	}
}

func (e *Engine) storeFailure(ctx context.Context, action string, userID uint64, err error) {
	metrics.StoreErrors.Inc()
	slog.Error("Ignore store failure", "action", action, "user_id", userID, "error", err)
	e.say(ctx, fmt.Sprintf("Database error while trying to %s %d.", action, userID))
}

// colorFor derives a stable card colour from a user id.
func colorFor(userID uint64) int {
	r := rand.New(rand.NewPCG(userID, userID>>32))
	return r.IntN(0x1000000)
}

// tellSender answers a user in their DM. Failures are logged only.
func (e *Engine) tellSender(ctx context.Context, userID uint64, text string) {
	if _, err := e.platform.SendDirect(ctx, userID, Outbound{Content: text}); err != nil {
		slog.Warn("Failed to answer user", "user_id", userID, "error", err)
	}
}
