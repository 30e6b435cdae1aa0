// Package menu runs interactive configuration flows: a family selector that
// leads into per-kind settings sessions, each editing a private draft until
// the owner saves, cancels, finishes or goes idle.
//
// The package is platform neutral. Views are settings.Payload values and all
// I/O goes through the Display, Replier and Channel interfaces, which the
// Discord adapter implements.
package menu

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/small-frappuccino/guildsettings/pkg/settings"
)

var (
	// ErrLocked is returned by Open while another flow holds the guild.
	ErrLocked = errors.New("guild configuration is locked by another session")
	// ErrNotOwner is returned for events from someone other than the flow's owner.
	ErrNotOwner = errors.New("menu belongs to another user")
	// ErrUnknownFlow is returned for custom IDs of flows that are closed or never existed.
	ErrUnknownFlow = errors.New("unknown or closed configuration flow")
)

// User-facing notices.
const (
	NoticeLocked       = "⛔ Another user is configuring server settings. Please wait until they are finished in order to prevent data corruption"
	NoticeNotOwner     = "❌ This menu is not for you."
	NoticeExpired      = "ℹ️ This menu is no longer active. Run the command again to configure settings."
	NoticeCancelled    = "ℹ️ Process cancelled. Any unsaved changes have been lost."
	NoticeFinished     = "ℹ️ Process marked as finished. This menu is now locked."
	NoticeTimedOut     = "ℹ️ Menu timed out. Any unsaved changes have been lost."
	NoticeClosed       = "ℹ️ This menu was closed by the bot operator. Any unsaved changes have been lost."
	NoticeSaveFailed   = "⚠️ An error occurred while saving to the database. Please try again."
	NoticeLoadFailed   = "⚠️ An error occurred while loading settings from the database. Please try again."
	NoticeUnknown      = "⚠️ Something went wrong with that button. This should not happen, please report it as a bug."
	NoticePromptExpiry = "ℹ️ No response received in time. Nothing was changed."
	NoticeMuteRole     = "⚠️ Set a mute role before enabling this command."
	NoticeItemsOnly    = "⚠️ At least 30 custom items are required to use only custom items."
	NoticeTimeoutCap   = "⚠️ Timeouts cannot be longer than 28 days."
	NoticeSaved        = "✅ Settings saved."
)

// Reason labels a terminal or intermediate end of a settings session.
type Reason string

const (
	ReasonSaved     Reason = "saved"
	ReasonFinished  Reason = "finished"
	ReasonCancelled Reason = "cancelled"
	ReasonTimeout   Reason = "timeout"
	ReasonBack      Reason = "back"
	ReasonClosed    Reason = "closed"
)

// Display replaces the flow's menu message outside of any interaction, for
// timeouts, prompt replies and operator closes.
type Display interface {
	Show(ctx context.Context, p settings.Payload) error
}

// Replier answers a single component interaction. Update and Ephemeral may
// both be called; the implementation owns acknowledgement.
type Replier interface {
	// Update replaces the menu message the interaction came from.
	Update(ctx context.Context, p settings.Payload) error
	// Ephemeral sends content visible only to the acting user.
	Ephemeral(ctx context.Context, content string) error
}

// Channel posts and removes plain messages in the flow's channel.
type Channel interface {
	Send(ctx context.Context, channelID, content string) (messageID string, err error)
	Delete(ctx context.Context, channelID string, messageIDs ...string) error
}

// Repository loads baselines and persists drafts.
type Repository interface {
	Load(ctx context.Context, k settings.Kind, guildID string) (settings.Settings, error)
	Save(ctx context.Context, s settings.Settings) (settings.Settings, error)
}

// Locker is the per-guild mutual exclusion the flows rely on.
type Locker interface {
	TryAcquire(guildID, token, userID string) bool
	Release(guildID, token string) bool
	Refresh(guildID, token string) bool
}

// Observer receives session lifecycle events. metrics.Metrics implements it.
type Observer interface {
	SessionStarted(kind string)
	SessionEnded(kind, reason string)
	FlowOpened()
	FlowClosed()
	SaveResult(kind string, err error)
	LockRejected()
}

// Timeouts are the idle windows of each flow phase.
type Timeouts struct {
	Selector time.Duration
	Menu     time.Duration
	Prompt   time.Duration
}

// DefaultTimeouts match the windows users are used to.
var DefaultTimeouts = Timeouts{
	Selector: 120 * time.Second,
	Menu:     180 * time.Second,
	Prompt:   120 * time.Second,
}

// CustomIDPrefix marks component IDs owned by this package.
const CustomIDPrefix = "guildcfg"

const customIDSep = ":"

// CustomID encodes a control action for flowID.
func CustomID(flowID string, a settings.Action) string {
	return CustomIDPrefix + customIDSep + flowID + customIDSep + string(a)
}

// ParseCustomID splits a component ID built by CustomID.
func ParseCustomID(id string) (flowID string, a settings.Action, ok bool) {
	parts := strings.SplitN(id, customIDSep, 3)
	if len(parts) != 3 || parts[0] != CustomIDPrefix || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], settings.Action(parts[2]), true
}

// IsCustomID reports whether id belongs to a configuration flow.
func IsCustomID(id string) bool {
	return strings.HasPrefix(id, CustomIDPrefix+customIDSep)
}

type nopObserver struct{}

func (nopObserver) SessionStarted(string)       {}
func (nopObserver) SessionEnded(string, string) {}
func (nopObserver) FlowOpened()                 {}
func (nopObserver) FlowClosed()                 {}
func (nopObserver) SaveResult(string, error)    {}
func (nopObserver) LockRejected()               {}
