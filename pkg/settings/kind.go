package settings

import (
	"fmt"
	"strings"
)

// Family groups settings kinds that share a field layout.
type Family string

const (
	FamilyFun        Family = "fun"
	FamilyModeration Family = "moderation"
)

// Kind identifies one configurable command.
type Kind string

const (
	KindThrow   Kind = "throw"
	KindBan     Kind = "ban"
	KindKick    Kind = "kick"
	KindWarn    Kind = "warn"
	KindTimeout Kind = "timeout"
	KindMute    Kind = "mute"
)

var familyKinds = map[Family][]Kind{
	FamilyFun:        {KindThrow},
	FamilyModeration: {KindBan, KindKick, KindMute, KindTimeout, KindWarn},
}

var kindDescriptions = map[Kind]string{
	KindThrow:   "Throw items at other members",
	KindBan:     "Ban members from the server",
	KindKick:    "Kick members from the server",
	KindWarn:    "Issue warnings to members",
	KindTimeout: "Temporarily time members out",
	KindMute:    "Mute members with a dedicated role",
}

// Families returns every family in display order.
func Families() []Family {
	return []Family{FamilyFun, FamilyModeration}
}

// ParseFamily resolves a family name, case-insensitively.
func ParseFamily(raw string) (Family, error) {
	f := Family(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := familyKinds[f]; !ok {
		return "", fmt.Errorf("%w: family %q", ErrUnknownKind, raw)
	}
	return f, nil
}

// Label is the capitalised family name.
func (f Family) Label() string {
	return capitalize(string(f))
}

// Kinds returns the kinds belonging to the family.
func (f Family) Kinds() []Kind {
	return append([]Kind(nil), familyKinds[f]...)
}

// ParseKind resolves a kind name, case-insensitively.
func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(raw)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
	}
	return k, nil
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kindDescriptions[k]
	return ok
}

// Family returns the family k belongs to.
func (k Kind) Family() Family {
	if k == KindThrow {
		return FamilyFun
	}
	return FamilyModeration
}

func (k Kind) Label() string       { return capitalize(string(k)) }
func (k Kind) Description() string { return kindDescriptions[k] }

// HasItems reports whether k carries a custom item list.
func (k Kind) HasItems() bool { return k == KindThrow }

// HasDefaultDuration reports whether k carries a default punishment duration.
func (k Kind) HasDefaultDuration() bool { return k == KindTimeout || k == KindMute }

// HasMuteRole reports whether k requires a mute role.
func (k Kind) HasMuteRole() bool { return k == KindMute }

// CacheKey is the read cache key for a guild's settings of kind k.
func (k Kind) CacheKey(guildID string) string {
	return guildID + ":" + string(k)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
