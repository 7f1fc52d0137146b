package discord

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/ashureev/modmail/internal/domain"
	"github.com/ashureev/modmail/internal/relay"
)

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// parseID returns 0 for ids that are not snowflakes.
func parseID(id string) uint64 {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func toUser(u *discordgo.User) domain.User {
	if u == nil {
		return domain.User{}
	}
	return domain.User{
		ID:            parseID(u.ID),
		Username:      u.Username,
		Discriminator: u.Discriminator,
		AvatarURL:     u.AvatarURL(""),
		Bot:           u.Bot,
	}
}

func toMember(m *discordgo.Member) domain.User {
	u := toUser(m.User)
	u.Nick = m.Nick
	if m.Avatar != "" {
		u.AvatarURL = m.AvatarURL("")
	}
	return u
}

func toAttachments(atts []*discordgo.MessageAttachment) []domain.Attachment {
	if len(atts) == 0 {
		return nil
	}
	out := make([]domain.Attachment, 0, len(atts))
	for _, a := range atts {
		out = append(out, domain.Attachment{
			Filename: a.Filename,
			Size:     int64(a.Size),
			URL:      a.URL,
		})
	}
	return out
}

func toRef(m *discordgo.Message) relay.MessageRef {
	return relay.MessageRef{ChannelID: parseID(m.ChannelID), MessageID: parseID(m.ID)}
}

func toMessageSend(msg relay.Outbound) *discordgo.MessageSend {
	send := &discordgo.MessageSend{Content: msg.Content}
	if c := msg.Card; c != nil {
		embed := &discordgo.MessageEmbed{
			Color:       c.Color,
			Description: c.Description,
		}
		if c.AuthorName != "" {
			embed.Author = &discordgo.MessageEmbedAuthor{Name: c.AuthorName, IconURL: c.AuthorIconURL}
		}
		for _, f := range c.Fields {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value})
		}
		send.Embeds = []*discordgo.MessageEmbed{embed}
	}
	for _, f := range msg.Files {
		send.Files = append(send.Files, &discordgo.File{Name: f.Name, Reader: bytes.NewReader(f.Data)})
	}
	return send
}

func restError(err error) (*discordgo.RESTError, bool) {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return nil, false
	}
	return rest, true
}

func restCode(rest *discordgo.RESTError) int {
	if rest.Message == nil {
		return 0
	}
	return rest.Message.Code
}

func restStatus(rest *discordgo.RESTError) int {
	if rest.Response == nil {
		return 0
	}
	return rest.Response.StatusCode
}

// isRefused reports whether a direct message was rejected by the recipient's
// privacy settings.
func isRefused(err error) bool {
	rest, ok := restError(err)
	if !ok {
		return false
	}
	return restCode(rest) == discordgo.ErrCodeCannotSendMessagesToThisUser ||
		restStatus(rest) == http.StatusForbidden
}

func isNotFound(err error) bool {
	rest, ok := restError(err)
	if !ok {
		return false
	}
	switch restCode(rest) {
	case discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser:
		return true
	}
	return restStatus(rest) == http.StatusNotFound
}
