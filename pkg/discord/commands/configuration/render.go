package configuration

import (
	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/guildsettings/pkg/menu"
	"github.com/small-frappuccino/guildsettings/pkg/settings"
	"github.com/small-frappuccino/guildsettings/pkg/theme"
)

// message is a payload drawn for Discord.
type message struct {
	content    string
	embeds     []*discordgo.MessageEmbed
	components []discordgo.MessageComponent
}

func renderMessage(flowID string, p settings.Payload) message {
	embed := &discordgo.MessageEmbed{
		Title:       p.Title,
		Description: p.Description,
		Color:       toneColor(p.Tone),
	}
	for _, l := range p.Lines {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  l.Display(),
			Value: l.Value,
		})
	}

	components := make([]discordgo.MessageComponent, 0, len(p.Rows))
	for _, row := range p.Rows {
		if len(row) == 0 {
			continue
		}
		r := discordgo.ActionsRow{Components: make([]discordgo.MessageComponent, 0, len(row))}
		for _, c := range row {
			r.Components = append(r.Components, renderControl(flowID, c))
		}
		components = append(components, r)
	}

	return message{
		content:    p.Content,
		embeds:     []*discordgo.MessageEmbed{embed},
		components: components,
	}
}

func renderControl(flowID string, c settings.Control) discordgo.MessageComponent {
	customID := menu.CustomID(flowID, c.Action)
	if c.Type == settings.ControlButton {
		return discordgo.Button{
			Label:    c.Label,
			Style:    buttonStyle(c.Style),
			CustomID: customID,
			Disabled: c.Disabled,
		}
	}

	minValues := c.MinValues
	sm := discordgo.SelectMenu{
		CustomID:    customID,
		Placeholder: c.Placeholder,
		MinValues:   &minValues,
		MaxValues:   c.MaxValues,
		Disabled:    c.Disabled,
	}
	switch c.Type {
	case settings.ControlChannelSelect:
		sm.MenuType = discordgo.ChannelSelectMenu
		sm.ChannelTypes = []discordgo.ChannelType{discordgo.ChannelTypeGuildText}
	case settings.ControlRoleSelect:
		sm.MenuType = discordgo.RoleSelectMenu
	default:
		sm.MenuType = discordgo.StringSelectMenu
		for _, o := range c.Options {
			sm.Options = append(sm.Options, discordgo.SelectMenuOption{
				Label:       o.Label,
				Value:       o.Value,
				Description: o.Description,
			})
		}
	}
	return sm
}

func buttonStyle(s settings.ControlStyle) discordgo.ButtonStyle {
	switch s {
	case settings.StyleSecondary:
		return discordgo.SecondaryButton
	case settings.StyleSuccess:
		return discordgo.SuccessButton
	case settings.StyleDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

func toneColor(t settings.Tone) int {
	switch t {
	case settings.ToneSuccess:
		return theme.Success()
	case settings.ToneMuted:
		return theme.Muted()
	case settings.ToneError:
		return theme.Error()
	default:
		return theme.Primary()
	}
}
