package settings

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Unit is a canonical duration unit.
type Unit string

const (
	UnitSeconds Unit = "seconds"
	UnitMinutes Unit = "minutes"
	UnitHours   Unit = "hours"
	UnitDays    Unit = "days"
	UnitWeeks   Unit = "weeks"
	UnitMonths  Unit = "months"
	UnitYears   Unit = "years"
)

const (
	day  = 24 * time.Hour
	year = 365*day + 6*time.Hour
)

var unitSizes = map[Unit]time.Duration{
	UnitSeconds: time.Second,
	UnitMinutes: time.Minute,
	UnitHours:   time.Hour,
	UnitDays:    day,
	UnitWeeks:   7 * day,
	UnitMonths:  year / 12,
	UnitYears:   year,
}

var unitAbbrevs = map[Unit]string{
	UnitSeconds: "s",
	UnitMinutes: "m",
	UnitHours:   "h",
	UnitDays:    "d",
	UnitWeeks:   "w",
	UnitMonths:  "mo",
	UnitYears:   "y",
}

// "m" is always minutes; months need "mo" or longer.
var unitAliases = map[string]Unit{
	"s": UnitSeconds, "sec": UnitSeconds, "secs": UnitSeconds, "second": UnitSeconds, "seconds": UnitSeconds,
	"m": UnitMinutes, "min": UnitMinutes, "mins": UnitMinutes, "minute": UnitMinutes, "minutes": UnitMinutes,
	"h": UnitHours, "hr": UnitHours, "hrs": UnitHours, "hour": UnitHours, "hours": UnitHours,
	"d": UnitDays, "day": UnitDays, "days": UnitDays,
	"w": UnitWeeks, "week": UnitWeeks, "weeks": UnitWeeks,
	"mo": UnitMonths, "mon": UnitMonths, "month": UnitMonths, "months": UnitMonths,
	"y": UnitYears, "year": UnitYears, "years": UnitYears,
}

// CooldownUnits are accepted when setting a command cooldown.
var CooldownUnits = []Unit{UnitSeconds, UnitMinutes}

// PunishmentUnits are accepted when setting a default punishment duration.
var PunishmentUnits = []Unit{UnitSeconds, UnitMinutes, UnitHours, UnitDays}

func (u Unit) Abbrev() string { return unitAbbrevs[u] }

// Size is the length of one unit.
func (u Unit) Size() time.Duration { return unitSizes[u] }

// NormalizeDurationUnit maps an abbreviation or plural to its canonical unit.
func NormalizeDurationUnit(raw string) (Unit, bool) {
	u, ok := unitAliases[strings.ToLower(strings.TrimSpace(raw))]
	return u, ok
}

type DurationErrorReason int

const (
	DurationMalformed DurationErrorReason = iota
	DurationUnknownUnit
	DurationUnitNotAllowed
	DurationDuplicateUnit
	DurationZero
)

// DurationError describes why a duration string was rejected. It matches
// ErrInvalidDuration under errors.Is.
type DurationError struct {
	Reason  DurationErrorReason
	Token   string
	Unit    Unit
	Allowed []Unit
}

func (e *DurationError) Error() string {
	switch e.Reason {
	case DurationUnknownUnit, DurationUnitNotAllowed:
		return fmt.Sprintf("⚠️ Invalid time unit detected.\n\nValid units: %s", formatUnits(e.Allowed))
	case DurationDuplicateUnit:
		return fmt.Sprintf("⚠️ You've specified the `%s` unit multiple times. Please use each time unit only once.", e.Unit)
	case DurationZero:
		return "⚠️ The duration must be greater than zero."
	default:
		return fmt.Sprintf("⚠️ Could not read a duration from your message.\n\nFormat example: 5m 30s. Valid units: %s", formatUnits(e.Allowed))
	}
}

func (e *DurationError) Is(target error) bool { return target == ErrInvalidDuration }

var (
	durationInputPattern = regexp.MustCompile(`^\s*(\d+\s*[a-zA-Z]+\s*)+$`)
	durationGroupPattern = regexp.MustCompile(`(\d+)\s*([a-zA-Z]+)`)
)

// ParseDuration sums groups like "5m 30s". Each canonical unit may appear once
// and must be among allowed (every unit when allowed is empty). Any bad group
// rejects the whole input.
func ParseDuration(raw string, allowed ...Unit) (time.Duration, error) {
	if len(allowed) == 0 {
		allowed = []Unit{UnitSeconds, UnitMinutes, UnitHours, UnitDays, UnitWeeks, UnitMonths, UnitYears}
	}
	if !durationInputPattern.MatchString(raw) {
		return 0, &DurationError{Reason: DurationMalformed, Token: raw, Allowed: allowed}
	}

	seen := make(map[Unit]bool, len(allowed))
	var total time.Duration
	for _, m := range durationGroupPattern.FindAllStringSubmatch(raw, -1) {
		u, ok := NormalizeDurationUnit(m[2])
		if !ok {
			return 0, &DurationError{Reason: DurationUnknownUnit, Token: m[2], Allowed: allowed}
		}
		if !unitAllowed(u, allowed) {
			return 0, &DurationError{Reason: DurationUnitNotAllowed, Token: m[2], Unit: u, Allowed: allowed}
		}
		if seen[u] {
			return 0, &DurationError{Reason: DurationDuplicateUnit, Token: m[2], Unit: u, Allowed: allowed}
		}
		seen[u] = true

		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || n > int64(math.MaxInt64/u.Size()) || total > time.Duration(math.MaxInt64)-time.Duration(n)*u.Size() {
			return 0, &DurationError{Reason: DurationMalformed, Token: m[1], Allowed: allowed}
		}
		total += time.Duration(n) * u.Size()
	}
	if total <= 0 {
		return 0, &DurationError{Reason: DurationZero, Allowed: allowed}
	}
	return total, nil
}

// FormatDuration renders d as "1d 2h 30m 5s", dropping zero parts.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	parts := make([]string, 0, 4)
	for _, u := range []Unit{UnitDays, UnitHours, UnitMinutes, UnitSeconds} {
		if n := d / u.Size(); n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", n, u.Abbrev()))
			d -= n * u.Size()
		}
	}
	return strings.Join(parts, " ")
}

func unitAllowed(u Unit, allowed []Unit) bool {
	for _, a := range allowed {
		if a == u {
			return true
		}
	}
	return false
}

func formatUnits(units []Unit) string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = "`" + u.Abbrev() + "`"
	}
	return strings.Join(out, ", ")
}
