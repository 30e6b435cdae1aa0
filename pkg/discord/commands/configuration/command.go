// Package configuration is the Discord front end of the guild settings menus:
// the /configuration command, its component interactions and the channel
// replies that answer prompts.
package configuration

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/guildsettings/pkg/discord/commands/core"
	"github.com/small-frappuccino/guildsettings/pkg/log"
	"github.com/small-frappuccino/guildsettings/pkg/menu"
	"github.com/small-frappuccino/guildsettings/pkg/settings"
)

// CommandName is the slash command that opens the menus.
const CommandName = "configuration"

// requestTimeout bounds the Discord and storage calls made for one event.
const requestTimeout = 10 * time.Second

// Handler connects a menu.Manager to Discord.
type Handler struct {
	manager *menu.Manager
}

// NewHandler returns a Handler for manager.
func NewHandler(manager *menu.Manager) *Handler {
	return &Handler{manager: manager}
}

// NewChannel adapts a session to menu.Channel for prompts.
func NewChannel(s *discordgo.Session) menu.Channel {
	return &channel{session: s}
}

// Register adds /configuration with one subcommand per family and routes the
// menu components to h.
func (h *Handler) Register(router *core.CommandRouter) {
	group := core.NewGroupCommand(CommandName, "Configure the bot's commands for this server", router.GetPermissionChecker())
	for _, f := range settings.Families() {
		group.AddSubCommand(core.NewSimpleCommand(
			string(f),
			"Configure "+f.Label()+" commands",
			nil,
			h.open(f),
			true,
			true,
		))
	}
	router.RegisterCommand(group)
	router.RegisterComponent(menu.CustomIDPrefix, h.handleComponent)
}

// open posts the family selector.
func (h *Handler) open(family settings.Family) func(ctx *core.Context) error {
	return func(ctx *core.Context) error {
		display := newMessageDisplay(ctx.Session, ctx.Interaction.Interaction)
		flow, view, err := h.manager.Open(menu.OpenRequest{
			GuildID:   ctx.GuildID,
			ChannelID: ctx.ChannelID,
			UserID:    ctx.UserID,
			Family:    family,
			Display:   display,
		})
		if errors.Is(err, menu.ErrLocked) {
			return core.NewCommandError(menu.NoticeLocked, true)
		}
		if err != nil {
			return err
		}
		display.bind(flow.ID())

		m := renderMessage(flow.ID(), view)
		if err := ctx.Responder.Custom(ctx.Interaction, m.content, m.embeds, m.components, false); err != nil {
			h.manager.Close(ctx.GuildID, flow.ID(), menu.ReasonClosed)
			return err
		}

		rctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := display.resolve(rctx); err != nil {
			ctx.Logger.Warn("Menu message not resolved, editing through the interaction", "flowID", flow.ID(), "error", err)
		}
		return nil
	}
}

func (h *Handler) handleComponent(ctx *core.Context) error {
	data := ctx.Interaction.MessageComponentData()
	flowID, _, ok := menu.ParseCustomID(data.CustomID)
	if !ok {
		return core.NewCommandError(menu.NoticeUnknown, true)
	}
	if err := ctx.Responder.DeferUpdate(ctx.Interaction); err != nil {
		return nil
	}

	rctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	r := &componentReplier{responder: ctx.Responder, interaction: ctx.Interaction, flowID: flowID}
	err := h.manager.HandleComponent(rctx, menu.ComponentEvent{
		CustomID: data.CustomID,
		UserID:   ctx.UserID,
		Values:   data.Values,
	}, r)
	if err != nil {
		ctx.Logger.Debug("Configuration component rejected", "error", err)
	}
	return nil
}

// HandleMessageCreate feeds guild messages to open prompts.
func (h *Handler) HandleMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if h.manager.HandleMessage(ctx, menu.MessageEvent{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		UserID:    m.Author.ID,
		MessageID: m.ID,
		Content:   m.Content,
	}) {
		log.DiscordLogger().Debug("Prompt reply consumed", "guildID", m.GuildID, "userID", m.Author.ID)
	}
}
