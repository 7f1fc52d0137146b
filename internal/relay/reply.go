package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/modmail/internal/attachment"
	"github.com/ashureev/modmail/internal/domain"
	"github.com/ashureev/modmail/internal/metrics"
)

// reply runs the staff-reply protocol for one command message.
func (e *Engine) reply(ctx context.Context, m ChannelMessage, targetID uint64, text string) {
	if text == "" && len(m.Attachments) == 0 {
		e.say(ctx, textMissingText)
		return
	}
	staff := m.Author

	target, err := e.platform.Member(ctx, targetID)
	if err != nil && !errors.Is(err, ErrTargetNotFound) {
		slog.Warn("Failed to resolve reply target", "user_id", targetID, "error", err)
	}
	if target == nil {
		e.say(ctx, textNoMember)
		return
	}
	if target.Bot {
		e.say(ctx, "You can't send messages to bots.")
		return
	}

	files, progress, ok := e.stageAttachments(ctx, m)
	if !ok {
		e.replyFailed(targetID, staff.ID, "attachments")
		return
	}

	content := staff.Mention() + ": " + text
	if e.cfg.AnonymousStaff {
		content = "Staff reply: " + text
	}
	if len(files) > 0 {
		progress.set(ctx, fmt.Sprintf("Sending message with %d attachments...", len(files)))
	}

	sent, err := e.platform.SendDirect(ctx, targetID, Outbound{Content: content, Files: files})
	if err != nil {
		if errors.Is(err, ErrDeliveryRefused) {
			metrics.StaffReplies.WithLabelValues("refused").Inc()
			e.say(ctx, fmt.Sprintf("%s %s has disabled DMs", staff.Mention(), target.Mention()))
			e.replyFailed(targetID, staff.ID, "refused")
			return
		}
		metrics.StaffReplies.WithLabelValues("failed").Inc()
		slog.Error("Failed to send staff reply", "user_id", targetID, "error", err)
		e.say(ctx, fmt.Sprintf("%s Failed to send message to %s.", staff.Mention(), target.Mention()))
		e.replyFailed(targetID, staff.ID, "error")
		return
	}

	header := fmt.Sprintf("%s replying to %d %s", staff.Mention(), targetID, target.Mention())
	entry, err := e.store.IsIgnored(ctx, targetID)
	if err != nil {
		slog.Warn("Failed to check ignore list for reply header", "user_id", targetID, "error", err)
	} else if entry != nil {
		header += " (replies ignored)"
	}

	card := &Card{Color: colorFor(targetID), Description: text}
	if len(sent.Attachments) > 0 {
		card.Fields = append(card.Fields, CardField{Name: "Attachments", Value: attachment.LinkList(sent.Attachments)})
	}
	if _, err := e.platform.Send(ctx, e.cfg.ChannelID, Outbound{Content: header, Card: card}); err != nil {
		slog.Error("Failed to post reply confirmation", "user_id", targetID, "error", err)
	}

	progress.remove(ctx)
	if err := e.platform.Delete(ctx, m.Ref); err != nil {
		slog.Warn("Failed to delete command message", "error", err)
	}

	slog.Info("Staff reply delivered", "user_id", targetID, "staff_id", staff.ID, "attachments", len(files))
	metrics.StaffReplies.WithLabelValues("delivered").Inc()
	e.publish(domain.ActivityReplied, targetID, staff.ID, "")
}

func (e *Engine) replyFailed(targetID, staffID uint64, detail string) {
	e.publish(domain.ActivityReplyFailed, targetID, staffID, detail)
}

// stageAttachments validates and downloads the attachments of a command
// message. ok is false when the reply must be aborted.
func (e *Engine) stageAttachments(ctx context.Context, m ChannelMessage) (files []attachment.File, progress *progressMessage, ok bool) {
	if len(m.Attachments) == 0 {
		return nil, nil, true
	}

	report := attachment.Classify(m.Attachments, e.cfg.Limits)
	if report.HasErrors() {
		slog.Info("Not sending reply with oversized attachment", "error", report.Err())
		e.say(ctx, report.ErrorText())
		return nil, nil, false
	}
	if warning := report.WarningText(); warning != "" {
		e.say(ctx, warning)
	}

	progress = &progressMessage{engine: e}
	start := time.Now()
	files, err := attachment.Stage(ctx, m.Attachments, e.fetcher, progress)
	metrics.AttachmentDownload.Observe(time.Since(start).Seconds())
	if err != nil {
		slog.Error("Failed to download attachments", "error", err)
		progress.remove(ctx)
		e.say(ctx, fmt.Sprintf("%s Failed to download attachments, nothing was sent.", m.Author.Mention()))
		return nil, nil, false
	}
	return files, progress, true
}

// progressMessage is a status line in the coordination channel that is
// posted once and then edited in place.
type progressMessage struct {
	engine *Engine
	ref    *MessageRef
}

func (p *progressMessage) Update(ctx context.Context, done, total int) {
	p.set(ctx, attachment.ProgressText(done, total))
}

func (p *progressMessage) set(ctx context.Context, text string) {
	if p == nil {
		return
	}
	if p.ref == nil {
		sent, err := p.engine.platform.Send(ctx, p.engine.cfg.ChannelID, Outbound{Content: text})
		if err != nil {
			slog.Warn("Failed to post progress", "error", err)
			return
		}
		p.ref = &sent.Ref
		return
	}
	if err := p.engine.platform.Edit(ctx, *p.ref, text); err != nil {
		slog.Warn("Failed to update progress", "error", err)
	}
}

func (p *progressMessage) remove(ctx context.Context) {
	if p == nil || p.ref == nil {
		return
	}
	if err := p.engine.platform.Delete(ctx, *p.ref); err != nil {
		slog.Warn("Failed to delete progress message", "error", err)
	}
	p.ref = nil
}
