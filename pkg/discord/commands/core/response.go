package core

import (
	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/guildsettings/pkg/errutil"
)

// ResponseType selects the prefix of a text reply.
type ResponseType int

const (
	ResponseSuccess ResponseType = iota
	ResponseError
	ResponseWarning
	ResponseInfo
)

// Responder answers interactions.
type Responder struct {
	session *discordgo.Session
}

func NewResponder(session *discordgo.Session) *Responder {
	return &Responder{session: session}
}

// Success, Error, Warning and Info send a prefixed ephemeral reply.
func (r *Responder) Success(i *discordgo.InteractionCreate, message string) error {
	return r.Reply(i, formatTextMessage(message, ResponseSuccess), true)
}

func (r *Responder) Error(i *discordgo.InteractionCreate, message string) error {
	return r.Reply(i, formatTextMessage(message, ResponseError), true)
}

func (r *Responder) Warning(i *discordgo.InteractionCreate, message string) error {
	return r.Reply(i, formatTextMessage(message, ResponseWarning), true)
}

func (r *Responder) Info(i *discordgo.InteractionCreate, message string) error {
	return r.Reply(i, formatTextMessage(message, ResponseInfo), true)
}

// Ephemeral sends content as is, visible only to the caller.
func (r *Responder) Ephemeral(i *discordgo.InteractionCreate, content string) error {
	return r.Reply(i, content, true)
}

// Reply sends a plain text message.
func (r *Responder) Reply(i *discordgo.InteractionCreate, content string, ephemeral bool) error {
	return r.Custom(i, content, nil, nil, ephemeral)
}

// Custom sends a message with embeds and components.
func (r *Responder) Custom(i *discordgo.InteractionCreate, content string, embeds []*discordgo.MessageEmbed, components []discordgo.MessageComponent, ephemeral bool) error {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	return errutil.HandleDiscordError("interaction_respond", func() error {
		return r.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content:    content,
				Embeds:     embeds,
				Components: components,
				Flags:      flags,
			},
		})
	})
}

// DeferUpdate acknowledges a component interaction; the message is edited later.
func (r *Responder) DeferUpdate(i *discordgo.InteractionCreate) error {
	return errutil.HandleDiscordError("interaction_defer_update", func() error {
		return r.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredMessageUpdate,
		})
	})
}

// EditResponse replaces the content, embeds and components of the message the
// interaction belongs to.
func (r *Responder) EditResponse(i *discordgo.InteractionCreate, content string, embeds []*discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	if embeds == nil {
		embeds = []*discordgo.MessageEmbed{}
	}
	if components == nil {
		components = []discordgo.MessageComponent{}
	}
	return errutil.HandleDiscordError("interaction_response_edit", func() error {
		_, err := r.session.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
			Content:    &content,
			Embeds:     &embeds,
			Components: &components,
		})
		return err
	})
}

// FollowUp sends a follow-up message after the interaction was acknowledged.
func (r *Responder) FollowUp(i *discordgo.InteractionCreate, content string, ephemeral bool) error {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	return errutil.HandleDiscordError("followup_create", func() error {
		_, err := r.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Content: content,
			Flags:   flags,
		})
		return err
	})
}

func formatTextMessage(message string, responseType ResponseType) string {
	switch responseType {
	case ResponseSuccess:
		return "✅ " + message
	case ResponseError:
		return "❌ " + message
	case ResponseWarning:
		return "⚠️ " + message
	case ResponseInfo:
		return "ℹ️ " + message
	default:
		return message
	}
}
