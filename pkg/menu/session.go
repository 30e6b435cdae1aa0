package menu

import (
	"fmt"
	"strings"

	"github.com/small-frappuccino/guildsettings/pkg/settings"
)

// Session edits one settings document. It holds the baseline it was opened
// with and a draft that only Save ever persists.
type Session struct {
	baseline settings.Settings
	draft    settings.Settings
	saved    bool
}

// NewSession starts editing a copy of baseline.
func NewSession(baseline settings.Settings) *Session {
	return &Session{baseline: baseline.Clone(), draft: baseline.Clone()}
}

func (s *Session) Kind() settings.Kind         { return s.draft.Kind }
func (s *Session) Draft() settings.Settings    { return s.draft.Clone() }
func (s *Session) Baseline() settings.Settings { return s.baseline.Clone() }
func (s *Session) Saved() bool                 { return s.saved }
func (s *Session) HasChanges() bool            { return settings.HasChanges(s.draft, s.baseline) }

// Render draws the current view. Disabled locks every control.
func (s *Session) Render(disabled bool) settings.Payload {
	return settings.Render(s.draft, s.baseline, settings.Flags{Saved: s.saved, Disabled: disabled})
}

// MarkSaved records a successful save. The old baseline stays for diffing so
// the saved view still shows what changed.
func (s *Session) MarkSaved(stored settings.Settings) {
	s.draft = stored.Clone()
	s.saved = true
}

// Apply performs a direct (non-prompt) edit. The returned notice, when not
// empty, is shown to the user privately. Unknown actions return
// settings.ErrInvalidOperation.
func (s *Session) Apply(a settings.Action, values []string) (notice string, err error) {
	if s.saved {
		return "", settings.ErrInvalidOperation
	}
	d := &s.draft
	fun := d.Kind.Family() == settings.FamilyFun

	switch {
	case a == settings.ActionToggleEnabled:
		if err := d.ToggleEnabled(); err != nil {
			return NoticeMuteRole, nil
		}
	case a == settings.ActionToggleReasonRequired && !fun:
		d.Moderation.ReasonRequired = !d.Moderation.ReasonRequired
	case a == settings.ActionToggleEvidenceRequired && !fun:
		d.Moderation.EvidenceRequired = !d.Moderation.EvidenceRequired
	case a == settings.ActionRemoveCooldown && fun:
		d.SetCooldown(nil)
	case a == settings.ActionToggleItemsOnly && d.Kind.HasItems():
		if err := d.ToggleCustomItemsOnly(); err != nil {
			return NoticeItemsOnly, nil
		}
	case a == settings.ActionPreviewItems && d.Kind.HasItems():
		list, err := settings.FullItemList(*d)
		if err != nil {
			return "", err
		}
		return list, nil
	case a == settings.ActionSetBlacklist && fun:
		if len(values) > settings.MaxBlacklistedChannels {
			values = values[:settings.MaxBlacklistedChannels]
		}
		d.Fun.BlacklistedChannels = append([]string{}, values...)
	case a == settings.ActionSetLogChannel && !fun:
		d.Moderation.LogChannelID = first(values)
	case a == settings.ActionSetMuteRole && d.Kind.HasMuteRole():
		role := first(values)
		if role == "" {
			return "", settings.ErrInvalidOperation
		}
		d.Moderation.MuteRoleID = role
	default:
		return "", settings.ErrInvalidOperation
	}
	return "", nil
}

// Prompt describes a free-text question and how its answer edits a draft.
type Prompt struct {
	Action settings.Action
	Text   string
	// apply edits draft from the reply and returns the summary for the user.
	apply func(draft *settings.Settings, reply string) string
}

// Answer runs the prompt against the session's draft.
func (s *Session) Answer(p *Prompt, reply string) string {
	return p.apply(&s.draft, reply)
}

// PromptFor returns the prompt behind action a, if a opens one for this kind.
func (s *Session) PromptFor(a settings.Action) (*Prompt, bool) {
	if s.saved {
		return nil, false
	}
	k := s.draft.Kind
	switch {
	case a == settings.ActionSetCooldown && k.Family() == settings.FamilyFun:
		return cooldownPrompt(), true
	case a == settings.ActionAddItems && k.HasItems():
		return addItemsPrompt(), true
	case a == settings.ActionRemoveItems && k.HasItems() && len(s.draft.Fun.CustomItems) > 0:
		return removeItemsPrompt(), true
	case a == settings.ActionSetDefaultDuration && k.HasDefaultDuration():
		return durationPrompt(k), true
	}
	return nil, false
}

func cooldownPrompt() *Prompt {
	return &Prompt{
		Action: settings.ActionSetCooldown,
		Text: fmt.Sprintf("⏱️ Reply with the new cooldown, for example `30s` or `1m 30s`.\nValid units: %s",
			unitList(settings.CooldownUnits)),
		apply: func(d *settings.Settings, reply string) string {
			v, err := settings.ParseDuration(reply, settings.CooldownUnits...)
			if err != nil {
				return err.Error()
			}
			d.SetCooldown(&v)
			return fmt.Sprintf("✅ Cooldown set to %s.", settings.FormatDuration(v))
		},
	}
}

func durationPrompt(k settings.Kind) *Prompt {
	return &Prompt{
		Action: settings.ActionSetDefaultDuration,
		Text: fmt.Sprintf("⏱️ Reply with the default %s duration, for example `30m` or `1d 12h`.\nValid units: %s",
			strings.ToLower(k.Label()), unitList(settings.PunishmentUnits)),
		apply: func(d *settings.Settings, reply string) string {
			v, err := settings.ParseDuration(reply, settings.PunishmentUnits...)
			if err != nil {
				return err.Error()
			}
			if k == settings.KindTimeout && v > settings.MaxTimeoutDuration {
				return NoticeTimeoutCap
			}
			d.Moderation.DefaultDuration = v
			return fmt.Sprintf("✅ Default duration set to %s.", settings.FormatDuration(v))
		},
	}
}

func addItemsPrompt() *Prompt {
	return &Prompt{
		Action: settings.ActionAddItems,
		Text:   "📝 Reply with the items to add, separated by commas.",
		apply: func(d *settings.Settings, reply string) string {
			res := settings.ValidateAddedItems(reply, d.Fun.CustomItems)
			d.AddItems(res.Accepted)
			return res.Summary
		},
	}
}

func removeItemsPrompt() *Prompt {
	return &Prompt{
		Action: settings.ActionRemoveItems,
		Text:   "🗑️ Reply with the items to remove, separated by commas.",
		apply: func(d *settings.Settings, reply string) string {
			res := settings.ValidateRemovedItems(reply, d.Fun.CustomItems)
			d.RemoveItems(res.ToRemove)
			return res.Summary
		},
	}
}

func unitList(units []settings.Unit) string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = "`" + u.Abbrev() + "`"
	}
	return strings.Join(out, ", ")
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
