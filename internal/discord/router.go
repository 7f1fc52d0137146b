package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/ashureev/modmail/internal/relay"
)

// EventSink receives relay events. The relay engine implements it.
type EventSink interface {
	Dispatch(ctx context.Context, ev relay.Event) error
}

// router translates gateway events into relay events.
type router struct {
	ctx       context.Context
	channelID uint64
	sink      EventSink
}

func (r *router) dispatch(ev relay.Event) {
	if err := r.sink.Dispatch(r.ctx, ev); err != nil {
		slog.Debug("Event not dispatched", "event", ev, "error", err)
	}
}

func (r *router) onReady(ev *discordgo.Ready) {
	slog.Info("Discord session ready", "user", ev.User.String(), "guilds", len(ev.Guilds))
	r.dispatch(relay.Ready{Self: toUser(ev.User)})
}

func (r *router) onMessageCreate(ev *discordgo.MessageCreate) {
	m := ev.Message
	if m == nil || m.Author == nil {
		return
	}

	switch {
	case m.GuildID == "":
		r.dispatch(relay.DirectMessage{
			Ref:         toRef(m),
			Author:      toUser(m.Author),
			Content:     m.Content,
			Attachments: toAttachments(m.Attachments),
		})
	case parseID(m.ChannelID) == r.channelID:
		r.dispatch(relay.ChannelMessage{
			Ref:         toRef(m),
			Author:      toUser(m.Author),
			Content:     m.Content,
			Attachments: toAttachments(m.Attachments),
		})
	}
}

func (r *router) onTypingStart(ev *discordgo.TypingStart) {
	if ev.GuildID != "" {
		return
	}
	r.dispatch(relay.Typing{UserID: parseID(ev.UserID)})
}
