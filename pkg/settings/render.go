package settings

import (
	"fmt"
	"strings"
)

// Action names a menu control.
type Action string

const (
	ActionToggleEnabled          Action = "toggle_enabled_state"
	ActionToggleReasonRequired   Action = "toggle_reason_required"
	ActionToggleEvidenceRequired Action = "toggle_evidence_required"
	ActionSetDefaultDuration     Action = "set_default_duration"
	ActionSetCooldown            Action = "set_cooldown"
	ActionRemoveCooldown         Action = "remove_cooldown"
	ActionAddItems               Action = "add_custom_items"
	ActionRemoveItems            Action = "remove_custom_items"
	ActionToggleItemsOnly        Action = "toggle_custom_items_only"
	ActionPreviewItems           Action = "preview_full_item_list"
	ActionSetBlacklist           Action = "set_blacklisted_channels"
	ActionSetLogChannel          Action = "set_log_channel"
	ActionSetMuteRole            Action = "set_mute_role"
	ActionBack                   Action = "prev_page"
	ActionCancel                 Action = "cancel"
	ActionSave                   Action = "save_changes"
	ActionFinished               Action = "finished"
	ActionNotFinished            Action = "not_finished"
	ActionSelectKind             Action = "select_kind"
)

// ModifiedMarker prefixes the label of a field whose draft differs from baseline.
const ModifiedMarker = "✨ "

const previewItems = 5

// Flags carries session state into Render.
type Flags struct {
	Saved    bool
	Disabled bool
}

// Tone selects the colour of a rendered payload.
type Tone int

const (
	ToneInfo Tone = iota
	ToneSuccess
	ToneMuted
	ToneError
)

// ControlType is the widget a control is drawn as.
type ControlType int

const (
	ControlButton ControlType = iota
	ControlChannelSelect
	ControlRoleSelect
	ControlStringSelect
)

// ControlStyle is a button style.
type ControlStyle int

const (
	StylePrimary ControlStyle = iota
	StyleSecondary
	StyleSuccess
	StyleDanger
)

// Option is one entry of a string select.
type Option struct {
	Label       string
	Value       string
	Description string
}

// Control is one interactive element of a payload.
type Control struct {
	Action      Action
	Label       string
	Type        ControlType
	Style       ControlStyle
	Disabled    bool
	Placeholder string
	MinValues   int
	MaxValues   int
	Options     []Option
}

// Line is one rendered field.
type Line struct {
	Field    Field
	Label    string
	Value    string
	Modified bool
}

// Display returns the label with the modified marker when applicable.
func (l Line) Display() string {
	if l.Modified {
		return ModifiedMarker + l.Label
	}
	return l.Label
}

// Payload is a platform-neutral menu view.
type Payload struct {
	Content     string
	Title       string
	Description string
	Tone        Tone
	Lines       []Line
	Rows        [][]Control
}

// Disable returns a copy of p with every control disabled.
func (p Payload) Disable() Payload {
	rows := make([][]Control, len(p.Rows))
	for i, row := range p.Rows {
		rows[i] = make([]Control, len(row))
		for j, c := range row {
			c.Disabled = true
			rows[i][j] = c
		}
	}
	p.Rows = rows
	return p
}

// Control finds a control by action.
func (p Payload) Control(a Action) (Control, bool) {
	for _, row := range p.Rows {
		for _, c := range row {
			if c.Action == a {
				return c, true
			}
		}
	}
	return Control{}, false
}

// Line finds the rendered line for field f.
func (p Payload) Line(f Field) (Line, bool) {
	for _, l := range p.Lines {
		if l.Field == f {
			return l, true
		}
	}
	return Line{}, false
}

// Render draws draft against baseline. It has no side effects.
func Render(draft, baseline Settings, flags Flags) Payload {
	changed := HasChanges(draft, baseline)

	p := Payload{
		Title:       draft.Kind.Label() + " Settings",
		Description: draft.Kind.Description(),
		Tone:        ToneInfo,
	}
	switch {
	case flags.Saved:
		p.Title += " (Changes Saved)"
		p.Tone = ToneSuccess
	case changed:
		p.Title += " (Changes Unsaved)"
	}
	if flags.Disabled {
		p.Tone = ToneMuted
	}

	for _, f := range Fields(draft.Kind) {
		p.Lines = append(p.Lines, Line{
			Field:    f,
			Label:    f.Label(),
			Value:    fieldValue(draft, f),
			Modified: Changed(draft, baseline, f),
		})
	}

	locked := flags.Disabled || flags.Saved
	if draft.Kind.Family() == FamilyFun {
		p.Rows = funControls(draft, locked)
	} else {
		p.Rows = moderationControls(draft, locked)
	}
	p.Rows = append(p.Rows, []Control{
		button(ActionBack, "Back", StyleSecondary, locked),
		button(ActionCancel, "Cancel", StyleDanger, locked),
		button(ActionSave, "Save Changes", StyleSuccess, locked || !changed),
	})
	if flags.Saved {
		p.Rows = append(p.Rows, []Control{
			button(ActionFinished, "Finished", StylePrimary, flags.Disabled),
			button(ActionNotFinished, "Configure Something Else", StyleSecondary, flags.Disabled),
		})
	}
	return p
}

func funControls(s Settings, locked bool) [][]Control {
	n := len(s.Fun.CustomItems)
	rows := [][]Control{{
		button(ActionToggleEnabled, toggleLabel("Command", s.Enabled), StylePrimary, locked),
		button(ActionSetCooldown, "Set Cooldown", StyleSecondary, locked),
		button(ActionRemoveCooldown, "Remove Cooldown", StyleSecondary, locked || s.Fun.Cooldown == nil),
	}}
	if s.Kind.HasItems() {
		rows = append(rows, []Control{
			button(ActionAddItems, "Add Items", StyleSecondary, locked),
			button(ActionRemoveItems, "Remove Items", StyleSecondary, locked || n == 0),
			button(ActionToggleItemsOnly, toggleLabel("Items Only", s.Fun.CustomItemsOnly), StyleSecondary, locked || n < MinItemsForItemsOnly),
			button(ActionPreviewItems, "Full Item List", StyleSecondary, locked || n <= previewItems),
		})
	}
	rows = append(rows, []Control{{
		Action:      ActionSetBlacklist,
		Type:        ControlChannelSelect,
		Placeholder: "Blacklisted channels",
		MinValues:   0,
		MaxValues:   MaxBlacklistedChannels,
		Disabled:    locked,
	}})
	return rows
}

func moderationControls(s Settings, locked bool) [][]Control {
	first := []Control{
		button(ActionToggleEnabled, toggleLabel("Command", s.Enabled), StylePrimary,
			locked || (s.Kind.HasMuteRole() && s.Moderation.MuteRoleID == "")),
		button(ActionToggleReasonRequired, toggleLabel("Reason Required", s.Moderation.ReasonRequired), StyleSecondary, locked),
		button(ActionToggleEvidenceRequired, toggleLabel("Evidence Required", s.Moderation.EvidenceRequired), StyleSecondary, locked),
	}
	if s.Kind.HasDefaultDuration() {
		first = append(first, button(ActionSetDefaultDuration, "Set Default Duration", StyleSecondary, locked))
	}
	rows := [][]Control{first, {{
		Action:      ActionSetLogChannel,
		Type:        ControlChannelSelect,
		Placeholder: "Log channel",
		MinValues:   0,
		MaxValues:   1,
		Disabled:    locked,
	}}}
	if s.Kind.HasMuteRole() {
		rows = append(rows, []Control{{
			Action:      ActionSetMuteRole,
			Type:        ControlRoleSelect,
			Placeholder: "Mute role",
			MinValues:   1,
			MaxValues:   1,
			Disabled:    locked,
		}})
	}
	return rows
}

func button(a Action, label string, style ControlStyle, disabled bool) Control {
	return Control{Action: a, Label: label, Type: ControlButton, Style: style, Disabled: disabled}
}

func toggleLabel(name string, on bool) string {
	if on {
		return "Disable " + name
	}
	return "Enable " + name
}

func fieldValue(s Settings, f Field) string {
	switch f {
	case FieldEnabled:
		return onOff(s.Enabled)
	case FieldCooldown:
		if s.Fun.Cooldown == nil {
			return "None"
		}
		return FormatDuration(*s.Fun.Cooldown)
	case FieldCustomItems:
		return condensedItems(s.Fun.CustomItems)
	case FieldCustomItemsOnly:
		return yesNo(s.Fun.CustomItemsOnly)
	case FieldBlacklistedChannels:
		return mentionList(s.Fun.BlacklistedChannels, "<#%s>")
	case FieldReasonRequired:
		return yesNo(s.Moderation.ReasonRequired)
	case FieldEvidenceRequired:
		return yesNo(s.Moderation.EvidenceRequired)
	case FieldLogChannel:
		return mention(s.Moderation.LogChannelID, "<#%s>")
	case FieldDefaultDuration:
		return FormatDuration(s.Moderation.DefaultDuration)
	case FieldMuteRole:
		return mention(s.Moderation.MuteRoleID, "<@&%s>")
	}
	return ""
}

func condensedItems(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	shown := items
	if len(shown) > previewItems {
		shown = shown[:previewItems]
	}
	out := fmt.Sprintf("%d item(s): %s", len(items), strings.Join(shown, ", "))
	if rest := len(items) - len(shown); rest > 0 {
		out += fmt.Sprintf(" and %d more", rest)
	}
	return out
}

// FullItemList renders every custom item. It is only offered once the
// condensed view has to abbreviate.
func FullItemList(s Settings) (string, error) {
	if len(s.Fun.CustomItems) <= previewItems {
		return "", fmt.Errorf("%w: the condensed view already lists all %d items", ErrInvalidOperation, len(s.Fun.CustomItems))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**Custom Items (%d)**\n", len(s.Fun.CustomItems))
	for i, it := range s.Fun.CustomItems {
		fmt.Fprintf(&b, "%d. %s\n", i+1, it)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func mention(id, format string) string {
	if id == "" {
		return "None"
	}
	return fmt.Sprintf(format, id)
}

func mentionList(ids []string, format string) string {
	if len(ids) == 0 {
		return "None"
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = fmt.Sprintf(format, id)
	}
	return strings.Join(out, ", ")
}

func onOff(v bool) string {
	if v {
		return "Enabled"
	}
	return "Disabled"
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
