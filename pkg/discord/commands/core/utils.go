package core

import (
	"encoding/json"

	"github.com/bwmarrin/discordgo"
)

// PermissionChecker decides who may run guarded commands.
type PermissionChecker struct {
	session *discordgo.Session
}

func NewPermissionChecker(session *discordgo.Session) *PermissionChecker {
	return &PermissionChecker{session: session}
}

// getOwnerID resolves the guild owner ID using state, then REST.
func (pc *PermissionChecker) getOwnerID(guildID string) (string, bool) {
	if pc == nil || pc.session == nil {
		return "", false
	}
	if pc.session.State != nil {
		if g, _ := pc.session.State.Guild(guildID); g != nil {
			return g.OwnerID, true
		}
	}
	if g, err := pc.session.Guild(guildID); err == nil && g != nil {
		return g.OwnerID, true
	}
	return "", false
}

// IsOwner checks whether the user is the server owner
func (pc *PermissionChecker) IsOwner(guildID, userID string) bool {
	if guildID == "" || userID == "" {
		return false
	}
	ownerID, ok := pc.getOwnerID(guildID)
	return ok && ownerID != "" && ownerID == userID
}

// HasPermission allows the guild owner and members whose resolved
// permissions include Administrator.
func (pc *PermissionChecker) HasPermission(i *discordgo.InteractionCreate) bool {
	if i.GuildID == "" {
		return false
	}
	if i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return pc.IsOwner(i.GuildID, extractUserID(i))
}

// CompareCommands compares two commands to check if they are semantically equal
func CompareCommands(a, b *discordgo.ApplicationCommand) bool {
	type shape struct {
		Name        string                                `json:"name"`
		Description string                                `json:"description"`
		Options     []*discordgo.ApplicationCommandOption `json:"options"`
	}
	ba, _ := json.Marshal(shape{a.Name, a.Description, a.Options})
	bb, _ := json.Marshal(shape{b.Name, b.Description, b.Options})
	return string(ba) == string(bb)
}
