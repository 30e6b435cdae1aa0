package configuration

import (
	"context"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/guildsettings/pkg/discord/commands/core"
	"github.com/small-frappuccino/guildsettings/pkg/errutil"
	"github.com/small-frappuccino/guildsettings/pkg/settings"
)

// maxContentLength is Discord's message content limit.
const maxContentLength = 2000

// componentReplier answers one component interaction. The interaction is
// acknowledged with a deferred update before the flow runs, so the menu is
// edited through the interaction webhook and notices go out as follow-ups.
type componentReplier struct {
	responder   *core.Responder
	interaction *discordgo.InteractionCreate
	flowID      string
}

func (r *componentReplier) Update(_ context.Context, p settings.Payload) error {
	m := renderMessage(r.flowID, p)
	return r.responder.EditResponse(r.interaction, m.content, m.embeds, m.components)
}

// Ephemeral sends content in as many follow-ups as the length limit needs.
func (r *componentReplier) Ephemeral(_ context.Context, content string) error {
	for _, chunk := range splitContent(content, maxContentLength) {
		if err := r.responder.FollowUp(r.interaction, chunk, true); err != nil {
			return err
		}
	}
	return nil
}

// messageDisplay edits the menu message posted in reply to /configuration.
// Once the message is known it is edited with the bot token, so the menu
// outlives the interaction token.
type messageDisplay struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction

	mu        sync.Mutex
	flowID    string
	channelID string
	messageID string
}

func newMessageDisplay(s *discordgo.Session, i *discordgo.Interaction) *messageDisplay {
	return &messageDisplay{session: s, interaction: i}
}

func (d *messageDisplay) bind(flowID string) {
	d.mu.Lock()
	d.flowID = flowID
	d.mu.Unlock()
}

// resolve looks up the posted menu message.
func (d *messageDisplay) resolve(ctx context.Context) error {
	var msg *discordgo.Message
	err := errutil.HandleDiscordError("interaction_response_get", func() error {
		var err error
		msg, err = d.session.InteractionResponse(d.interaction, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.channelID = msg.ChannelID
	d.messageID = msg.ID
	d.mu.Unlock()
	return nil
}

func (d *messageDisplay) Show(ctx context.Context, p settings.Payload) error {
	d.mu.Lock()
	flowID, channelID, messageID := d.flowID, d.channelID, d.messageID
	d.mu.Unlock()

	m := renderMessage(flowID, p)
	if messageID == "" {
		return errutil.HandleDiscordError("interaction_response_edit", func() error {
			_, err := d.session.InteractionResponseEdit(d.interaction, &discordgo.WebhookEdit{
				Content:    &m.content,
				Embeds:     &m.embeds,
				Components: &m.components,
			}, discordgo.WithContext(ctx))
			return err
		})
	}
	return errutil.HandleDiscordError("menu_message_edit", func() error {
		_, err := d.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
			ID:         messageID,
			Channel:    channelID,
			Content:    &m.content,
			Embeds:     &m.embeds,
			Components: &m.components,
		}, discordgo.WithContext(ctx))
		return err
	})
}

// channel posts prompts and removes them together with the replies.
type channel struct {
	session *discordgo.Session
}

func (c *channel) Send(ctx context.Context, channelID, content string) (string, error) {
	var msg *discordgo.Message
	err := errutil.HandleDiscordError("prompt_send", func() error {
		var err error
		msg, err = c.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
			Content: truncate(content),
			AllowedMentions: &discordgo.MessageAllowedMentions{
				Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
			},
		}, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

// Delete removes messageIDs, using a bulk delete when there is more than one.
// Messages that are already gone are not an error.
func (c *channel) Delete(ctx context.Context, channelID string, messageIDs ...string) error {
	ids := make([]string, 0, len(messageIDs))
	for _, id := range messageIDs {
		if id != "" {
			ids = append(ids, id)
		}
	}

	var err error
	switch len(ids) {
	case 0:
		return nil
	case 1:
		err = c.session.ChannelMessageDelete(channelID, ids[0], discordgo.WithContext(ctx))
	default:
		err = c.session.ChannelMessagesBulkDelete(channelID, ids, discordgo.WithContext(ctx))
	}
	if err == nil || errutil.IsUnknownMessage(err) {
		return nil
	}
	return errutil.HandleDiscordError("prompt_delete", func() error { return err })
}

// splitContent cuts content into pieces of at most limit runes, breaking
// between lines. A single line longer than limit is truncated.
func splitContent(content string, limit int) []string {
	if len([]rune(content)) <= limit {
		return []string{content}
	}

	var (
		chunks []string
		cur    []string
		size   int
	)
	for _, line := range strings.Split(content, "\n") {
		runes := []rune(line)
		if len(runes) > limit {
			runes = append(runes[:limit-1], '…')
			line = string(runes)
		}
		n := len(runes)
		if len(cur) > 0 && size+1+n > limit {
			chunks = append(chunks, strings.Join(cur, "\n"))
			cur, size = nil, 0
		}
		if len(cur) > 0 {
			size++
		}
		cur = append(cur, line)
		size += n
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, "\n"))
	}
	return chunks
}

func truncate(content string) string {
	runes := []rune(content)
	if len(runes) <= maxContentLength {
		return content
	}
	return string(runes[:maxContentLength-1]) + "…"
}
