package core

import (
	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/guildsettings/pkg/log"
)

// ContextBuilder creates contexts for command execution
type ContextBuilder struct {
	session   *discordgo.Session
	checker   *PermissionChecker
	responder *Responder
}

func NewContextBuilder(session *discordgo.Session, checker *PermissionChecker, responder *Responder) *ContextBuilder {
	return &ContextBuilder{
		session:   session,
		checker:   checker,
		responder: responder,
	}
}

// BuildContext resolves the caller and guild of an interaction.
func (cb *ContextBuilder) BuildContext(i *discordgo.InteractionCreate) *Context {
	userID := extractUserID(i)
	guildID := i.GuildID

	isOwner := false
	if guildID != "" {
		isOwner = cb.checker.IsOwner(guildID, userID)
	}

	return &Context{
		Session:     cb.session,
		Interaction: i,
		Responder:   cb.responder,
		Logger: log.DiscordLogger().With(
			"guildID", guildID,
			"userID", userID,
			"interactionID", i.ID,
		),
		GuildID:   guildID,
		ChannelID: i.ChannelID,
		UserID:    userID,
		IsOwner:   isOwner,
	}
}

// extractUserID extracts the user ID from the interaction
func extractUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	} else if i.User != nil {
		return i.User.ID
	}
	return ""
}

// GetSubCommandName extracts the subcommand name from the interaction
func GetSubCommandName(i *discordgo.InteractionCreate) string {
	options := i.ApplicationCommandData().Options
	if len(options) > 0 && options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return options[0].Name
	}
	return ""
}

// GetSubCommandOptions returns the subcommand's options, or the direct
// options when there is no subcommand.
func GetSubCommandOptions(i *discordgo.InteractionCreate) []*discordgo.ApplicationCommandInteractionDataOption {
	options := i.ApplicationCommandData().Options
	if len(options) > 0 && options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return options[0].Options
	}
	return options
}

// GetCommandPath returns "command" or "command subcommand".
func GetCommandPath(i *discordgo.InteractionCreate) string {
	path := i.ApplicationCommandData().Name
	if sub := GetSubCommandName(i); sub != "" {
		path += " " + sub
	}
	return path
}

func IsSlashCommandInteraction(i *discordgo.InteractionCreate) bool {
	return i.Type == discordgo.InteractionApplicationCommand
}

func IsComponentInteraction(i *discordgo.InteractionCreate) bool {
	return i.Type == discordgo.InteractionMessageComponent
}
