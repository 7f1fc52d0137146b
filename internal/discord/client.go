// Package discord adapts a discordgo session to the relay platform.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ashureev/modmail/internal/domain"
	"github.com/ashureev/modmail/internal/relay"
)

const (
	intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMembers |
		discordgo.IntentGuildMessages |
		discordgo.IntentDirectMessages |
		discordgo.IntentDirectMessageTyping |
		discordgo.IntentMessageContent

	memberCacheSize = 1024
	memberCacheTTL  = 5 * time.Minute
)

// Client implements relay.Platform on top of a discordgo session.
type Client struct {
	session *discordgo.Session
	members *expirable.LRU[uint64, domain.User]

	mu      sync.RWMutex
	guildID string
}

var _ relay.Platform = (*Client)(nil)

// New creates a client for a bot token. It does not connect.
func New(token string) (*Client, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = intents
	// Handlers run in gateway order so the relay sees events in sequence.
	s.SyncEvents = true

	return &Client{
		session: s,
		members: expirable.NewLRU[uint64, domain.User](memberCacheSize, nil, memberCacheTTL),
	}, nil
}

// Start registers event handlers forwarding to sink and opens the gateway.
func (c *Client) Start(ctx context.Context, channelID uint64, sink EventSink) error {
	r := &router{ctx: ctx, channelID: channelID, sink: sink}

	c.session.AddHandler(func(_ *discordgo.Session, ev *discordgo.Ready) { r.onReady(ev) })
	c.session.AddHandler(func(_ *discordgo.Session, ev *discordgo.MessageCreate) { r.onMessageCreate(ev) })
	c.session.AddHandler(func(_ *discordgo.Session, ev *discordgo.TypingStart) { r.onTypingStart(ev) })
	c.session.AddHandler(func(_ *discordgo.Session, ev *discordgo.GuildMemberUpdate) {
		if ev.Member != nil && ev.Member.User != nil {
			c.members.Remove(parseID(ev.Member.User.ID))
		}
	})

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	slog.Info("Discord gateway connected")
	return nil
}

// Close closes the gateway connection.
func (c *Client) Close() error {
	return c.session.Close()
}

// ResolveChannel checks that channelID is a server text channel and
// remembers its server for member lookups.
func (c *Client) ResolveChannel(ctx context.Context, channelID uint64) error {
	id := formatID(channelID)
	ch, err := c.session.State.Channel(id)
	if err != nil {
		ch, err = c.session.Channel(id, discordgo.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("fetch channel: %w", err)
		}
	}
	if ch.GuildID == "" || ch.Type != discordgo.ChannelTypeGuildText {
		return fmt.Errorf("channel %s is not a server text channel", id)
	}

	c.mu.Lock()
	c.guildID = ch.GuildID
	c.mu.Unlock()
	slog.Info("Coordination channel resolved", "channel", ch.Name, "guild_id", ch.GuildID)
	return nil
}

// Send posts a message to a channel.
func (c *Client) Send(ctx context.Context, channelID uint64, msg relay.Outbound) (relay.Sent, error) {
	m, err := c.session.ChannelMessageSendComplex(formatID(channelID), toMessageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return relay.Sent{}, fmt.Errorf("send message: %w", err)
	}
	return relay.Sent{Ref: toRef(m), Attachments: toAttachments(m.Attachments)}, nil
}

// SendDirect opens a DM channel with userID and sends msg there.
func (c *Client) SendDirect(ctx context.Context, userID uint64, msg relay.Outbound) (relay.Sent, error) {
	ch, err := c.session.UserChannelCreate(formatID(userID), discordgo.WithContext(ctx))
	if err != nil {
		return relay.Sent{}, c.directError(userID, err)
	}
	m, err := c.session.ChannelMessageSendComplex(ch.ID, toMessageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return relay.Sent{}, c.directError(userID, err)
	}
	return relay.Sent{Ref: toRef(m), Attachments: toAttachments(m.Attachments)}, nil
}

func (c *Client) directError(userID uint64, err error) error {
	if isRefused(err) {
		return fmt.Errorf("direct message to %d: %w: %w", userID, relay.ErrDeliveryRefused, err)
	}
	return fmt.Errorf("direct message to %d: %w", userID, err)
}

// Edit replaces the content of a message.
func (c *Client) Edit(ctx context.Context, ref relay.MessageRef, content string) error {
	_, err := c.session.ChannelMessageEdit(formatID(ref.ChannelID), formatID(ref.MessageID), content, discordgo.WithContext(ctx))
	return err
}

// Delete removes a message.
func (c *Client) Delete(ctx context.Context, ref relay.MessageRef) error {
	return c.session.ChannelMessageDelete(formatID(ref.ChannelID), formatID(ref.MessageID), discordgo.WithContext(ctx))
}

// React adds a unicode emoji reaction.
func (c *Client) React(ctx context.Context, ref relay.MessageRef, emoji string) error {
	return c.session.MessageReactionAdd(formatID(ref.ChannelID), formatID(ref.MessageID), emoji, discordgo.WithContext(ctx))
}

// Typing shows the typing indicator in a channel.
func (c *Client) Typing(ctx context.Context, channelID uint64) error {
	return c.session.ChannelTyping(formatID(channelID), discordgo.WithContext(ctx))
}

// SetPresence sets the "Playing" status. An empty text clears it.
func (c *Client) SetPresence(_ context.Context, text string) error {
	return c.session.UpdateGameStatus(0, text)
}

// Member looks userID up in the coordination channel's server.
func (c *Client) Member(ctx context.Context, userID uint64) (*domain.User, error) {
	if u, ok := c.members.Get(userID); ok {
		return &u, nil
	}

	c.mu.RLock()
	guildID := c.guildID
	c.mu.RUnlock()
	if guildID == "" {
		return nil, errors.New("coordination channel not resolved")
	}

	id := formatID(userID)
	m, err := c.session.State.Member(guildID, id)
	if err != nil {
		m, err = c.session.GuildMember(guildID, id, discordgo.WithContext(ctx))
		if err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("member %d: %w", userID, relay.ErrTargetNotFound)
			}
			return nil, fmt.Errorf("fetch member %d: %w", userID, err)
		}
	}
	if m.User == nil {
		return nil, fmt.Errorf("member %d: %w", userID, relay.ErrTargetNotFound)
	}

	u := toMember(m)
	c.members.Add(userID, u)
	return &u, nil
}
