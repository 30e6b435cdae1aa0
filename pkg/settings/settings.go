package settings

import (
	"slices"
	"strings"
	"time"
)

const (
	// MinItemsForItemsOnly is the custom item count required before a guild may
	// restrict a command to its custom items.
	MinItemsForItemsOnly = 30
	// MaxTimeoutDuration is the platform ceiling for a member timeout.
	MaxTimeoutDuration = 28 * 24 * time.Hour
	// DefaultPunishmentDuration seeds timeout and mute settings.
	DefaultPunishmentDuration = 30 * time.Minute
	// MaxBlacklistedChannels mirrors the channel select ceiling.
	MaxBlacklistedChannels = 25
)

// Settings is the per-guild configuration of one command. Kind selects which
// of the family payloads is meaningful; the other stays zero.
type Settings struct {
	GuildID    string
	Kind       Kind
	Enabled    bool
	Fun        FunFields
	Moderation ModerationFields
	UpdatedAt  time.Time
}

// FunFields holds fun-family settings.
type FunFields struct {
	// Cooldown is nil when the command has no cooldown.
	Cooldown            *time.Duration
	CustomItems         []string
	CustomItemsOnly     bool
	BlacklistedChannels []string
}

// ModerationFields holds moderation-family settings. Empty IDs mean unset.
type ModerationFields struct {
	ReasonRequired   bool
	EvidenceRequired bool
	LogChannelID     string
	DefaultDuration  time.Duration
	MuteRoleID       string
}

// Defaults returns the settings a guild starts with for kind k.
func Defaults(guildID string, k Kind) Settings {
	s := Settings{GuildID: guildID, Kind: k}
	switch k.Family() {
	case FamilyFun:
		s.Enabled = true
		s.Fun = FunFields{CustomItems: []string{}, BlacklistedChannels: []string{}}
	case FamilyModeration:
		if k.HasDefaultDuration() {
			s.Moderation.DefaultDuration = DefaultPunishmentDuration
		}
	}
	return s
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	c := s
	if s.Fun.Cooldown != nil {
		d := *s.Fun.Cooldown
		c.Fun.Cooldown = &d
	}
	c.Fun.CustomItems = slices.Clone(s.Fun.CustomItems)
	c.Fun.BlacklistedChannels = slices.Clone(s.Fun.BlacklistedChannels)
	return c
}

// Field names one editable setting.
type Field int

const (
	FieldEnabled Field = iota
	FieldCooldown
	FieldCustomItems
	FieldCustomItemsOnly
	FieldBlacklistedChannels
	FieldReasonRequired
	FieldEvidenceRequired
	FieldLogChannel
	FieldDefaultDuration
	FieldMuteRole
)

var fieldLabels = map[Field]string{
	FieldEnabled:             "Enabled",
	FieldCooldown:            "Cooldown",
	FieldCustomItems:         "Custom Items",
	FieldCustomItemsOnly:     "Custom Items Only",
	FieldBlacklistedChannels: "Blacklisted Channels",
	FieldReasonRequired:      "Reason Required",
	FieldEvidenceRequired:    "Evidence Required",
	FieldLogChannel:          "Log Channel",
	FieldDefaultDuration:     "Default Duration",
	FieldMuteRole:            "Mute Role",
}

func (f Field) Label() string { return fieldLabels[f] }

// Fields lists the fields of kind k in display order.
func Fields(k Kind) []Field {
	switch {
	case k.Family() == FamilyFun:
		fields := []Field{FieldEnabled, FieldCooldown}
		if k.HasItems() {
			fields = append(fields, FieldCustomItems, FieldCustomItemsOnly)
		}
		return append(fields, FieldBlacklistedChannels)
	default:
		fields := []Field{FieldEnabled, FieldReasonRequired, FieldEvidenceRequired, FieldLogChannel}
		if k.HasDefaultDuration() {
			fields = append(fields, FieldDefaultDuration)
		}
		if k.HasMuteRole() {
			fields = append(fields, FieldMuteRole)
		}
		return fields
	}
}

// Changed reports whether field f of draft differs from baseline.
func Changed(draft, baseline Settings, f Field) bool {
	switch f {
	case FieldEnabled:
		return draft.Enabled != baseline.Enabled
	case FieldCooldown:
		a, b := draft.Fun.Cooldown, baseline.Fun.Cooldown
		if a == nil || b == nil {
			return (a == nil) != (b == nil)
		}
		return *a != *b
	case FieldCustomItems:
		return !SameSet(draft.Fun.CustomItems, baseline.Fun.CustomItems)
	case FieldCustomItemsOnly:
		return draft.Fun.CustomItemsOnly != baseline.Fun.CustomItemsOnly
	case FieldBlacklistedChannels:
		return !SameSet(draft.Fun.BlacklistedChannels, baseline.Fun.BlacklistedChannels)
	case FieldReasonRequired:
		return draft.Moderation.ReasonRequired != baseline.Moderation.ReasonRequired
	case FieldEvidenceRequired:
		return draft.Moderation.EvidenceRequired != baseline.Moderation.EvidenceRequired
	case FieldLogChannel:
		return draft.Moderation.LogChannelID != baseline.Moderation.LogChannelID
	case FieldDefaultDuration:
		return draft.Moderation.DefaultDuration != baseline.Moderation.DefaultDuration
	case FieldMuteRole:
		return draft.Moderation.MuteRoleID != baseline.Moderation.MuteRoleID
	}
	return false
}

// HasChanges reports whether any field of draft differs from baseline.
func HasChanges(draft, baseline Settings) bool {
	for _, f := range Fields(draft.Kind) {
		if Changed(draft, baseline, f) {
			return true
		}
	}
	return false
}

// SameSet reports whether a and b hold the same distinct values, ignoring order.
func SameSet(a, b []string) bool {
	as := make(map[string]struct{}, len(a))
	for _, v := range a {
		as[v] = struct{}{}
	}
	bs := make(map[string]struct{}, len(b))
	for _, v := range b {
		if _, ok := as[v]; !ok {
			return false
		}
		bs[v] = struct{}{}
	}
	return len(as) == len(bs)
}

// Validate checks the kind-specific invariants of s.
func Validate(s Settings) error {
	if !s.Kind.Valid() {
		return ErrUnknownKind
	}
	if strings.TrimSpace(s.GuildID) == "" {
		return &ValidationError{Field: FieldEnabled, Reason: "guild id is required"}
	}

	switch s.Kind.Family() {
	case FamilyFun:
		if s.Fun.Cooldown != nil && *s.Fun.Cooldown <= 0 {
			return &ValidationError{Field: FieldCooldown, Reason: "cooldown must be positive"}
		}
		if s.Fun.CustomItemsOnly && len(s.Fun.CustomItems) < MinItemsForItemsOnly {
			return &ValidationError{Field: FieldCustomItemsOnly, Reason: "at least 30 custom items are required"}
		}
		if len(s.Fun.BlacklistedChannels) > MaxBlacklistedChannels {
			return &ValidationError{Field: FieldBlacklistedChannels, Reason: "at most 25 channels can be blacklisted"}
		}
	case FamilyModeration:
		if s.Kind.HasDefaultDuration() {
			d := s.Moderation.DefaultDuration
			if d <= 0 {
				return &ValidationError{Field: FieldDefaultDuration, Reason: "duration must be positive"}
			}
			if s.Kind == KindTimeout && d > MaxTimeoutDuration {
				return &ValidationError{Field: FieldDefaultDuration, Reason: "timeouts cannot exceed 28 days"}
			}
		}
		if s.Kind.HasMuteRole() && s.Enabled && s.Moderation.MuteRoleID == "" {
			return &ValidationError{Field: FieldMuteRole, Reason: "a mute role is required to enable this command"}
		}
	}
	return nil
}

// AddItems appends items to the custom item list.
func (s *Settings) AddItems(items []string) {
	s.Fun.CustomItems = append(s.Fun.CustomItems, items...)
}

// RemoveItems drops items case-insensitively. Dropping below the items-only
// threshold also clears CustomItemsOnly.
func (s *Settings) RemoveItems(items []string) {
	drop := make(map[string]struct{}, len(items))
	for _, it := range items {
		drop[strings.ToLower(it)] = struct{}{}
	}
	kept := s.Fun.CustomItems[:0:0]
	for _, it := range s.Fun.CustomItems {
		if _, ok := drop[strings.ToLower(it)]; !ok {
			kept = append(kept, it)
		}
	}
	s.Fun.CustomItems = kept
	if len(kept) < MinItemsForItemsOnly {
		s.Fun.CustomItemsOnly = false
	}
}

// SetCooldown sets the cooldown; nil clears it.
func (s *Settings) SetCooldown(d *time.Duration) {
	if d == nil {
		s.Fun.Cooldown = nil
		return
	}
	v := *d
	s.Fun.Cooldown = &v
}

// ToggleCustomItemsOnly flips CustomItemsOnly. Turning it on requires enough items.
func (s *Settings) ToggleCustomItemsOnly() error {
	if !s.Fun.CustomItemsOnly && len(s.Fun.CustomItems) < MinItemsForItemsOnly {
		return ErrInvalidOperation
	}
	s.Fun.CustomItemsOnly = !s.Fun.CustomItemsOnly
	return nil
}

// ToggleEnabled flips Enabled. Mute cannot be enabled without a mute role.
func (s *Settings) ToggleEnabled() error {
	if !s.Enabled && s.Kind.HasMuteRole() && s.Moderation.MuteRoleID == "" {
		return ErrInvalidOperation
	}
	s.Enabled = !s.Enabled
	return nil
}
