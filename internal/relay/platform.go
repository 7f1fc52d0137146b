package relay

import (
	"context"
	"errors"

	"github.com/ashureev/modmail/internal/attachment"
	"github.com/ashureev/modmail/internal/domain"
)

var (
	// ErrDeliveryRefused means the platform refused a direct message, usually
	// because the target blocked DMs from server members.
	ErrDeliveryRefused = errors.New("delivery refused")
	// ErrTargetNotFound means the user is not a member of the staff server.
	ErrTargetNotFound = errors.New("target not found")
	// ErrChannelNotFound means the coordination channel could not be resolved.
	ErrChannelNotFound = errors.New("coordination channel not found")
)

// MessageRef addresses one platform message.
type MessageRef struct {
	ChannelID uint64
	MessageID uint64
}

// CardField is one titled section of a Card.
type CardField struct {
	Name  string
	Value string
}

// Card is the decorated summary attached to coordination-channel posts.
// How it is rendered is up to the platform.
type Card struct {
	Color         int
	AuthorName    string
	AuthorIconURL string
	Description   string
	Fields        []CardField
}

// Outbound is a message to send.
type Outbound struct {
	Content string
	Card    *Card
	Files   []attachment.File
}

// Sent describes a message after the platform accepted it. Attachments carry
// the re-hosted URLs of uploaded files.
type Sent struct {
	Ref         MessageRef
	Attachments []domain.Attachment
}

// Platform is the chat platform as the relay uses it. Every call is fallible
// network I/O.
type Platform interface {
	// ResolveChannel verifies that the coordination channel exists and is a
	// server text channel.
	ResolveChannel(ctx context.Context, channelID uint64) error

	// Send posts a message to a channel.
	Send(ctx context.Context, channelID uint64, msg Outbound) (Sent, error)

	// SendDirect sends a direct message. Returns ErrDeliveryRefused when the
	// platform rejects it.
	SendDirect(ctx context.Context, userID uint64, msg Outbound) (Sent, error)

	Edit(ctx context.Context, ref MessageRef, content string) error
	Delete(ctx context.Context, ref MessageRef) error
	React(ctx context.Context, ref MessageRef, emoji string) error

	// Typing shows a typing indicator in a channel.
	Typing(ctx context.Context, channelID uint64) error

	// SetPresence sets the bot status text. An empty text clears it.
	SetPresence(ctx context.Context, text string) error

	// Member resolves userID as a member of the staff server. Returns
	// ErrTargetNotFound when the user is not a member.
	Member(ctx context.Context, userID uint64) (*domain.User, error)
}

// Event is one inbound platform event.
type Event interface {
	isEvent()
}

// Ready is delivered every time the platform session (re)connects.
type Ready struct {
	Self domain.User
}

// DirectMessage is a private message sent to the bot.
type DirectMessage struct {
	Ref         MessageRef
	Author      domain.User
	Content     string
	Attachments []domain.Attachment
}

// Typing is a typing notification in a private channel with the bot.
type Typing struct {
	UserID uint64
}

// ChannelMessage is a message posted in the coordination channel.
type ChannelMessage struct {
	Ref         MessageRef
	Author      domain.User
	Content     string
	Attachments []domain.Attachment
}

func (Ready) isEvent()          {}
func (DirectMessage) isEvent()  {}
func (Typing) isEvent()         {}
func (ChannelMessage) isEvent() {}
