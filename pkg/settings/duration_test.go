package settings

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDurationUnit(t *testing.T) {
	cases := map[string]Unit{
		"s": UnitSeconds, "SEC": UnitSeconds, "seconds": UnitSeconds,
		"m": UnitMinutes, "min": UnitMinutes, "Minutes": UnitMinutes,
		"h": UnitHours, "hour": UnitHours,
		"d": UnitDays, "days": UnitDays,
		"w": UnitWeeks, "week": UnitWeeks,
		"mo": UnitMonths, "month": UnitMonths, "months": UnitMonths,
		"y": UnitYears, "years": UnitYears,
	}
	for raw, want := range cases {
		got, ok := NormalizeDurationUnit(raw)
		require.True(t, ok, raw)
		assert.Equal(t, want, got, raw)
	}

	_, ok := NormalizeDurationUnit("x")
	assert.False(t, ok)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		allowed []Unit
		want    time.Duration
		reason  DurationErrorReason
		wantErr bool
	}{
		{name: "compound", raw: "5m 30s", want: 330 * time.Second},
		{name: "no spaces", raw: "1h30m", want: 90 * time.Minute},
		{name: "spaced unit", raw: "2 days", want: 48 * time.Hour},
		{name: "month token", raw: "1mo", want: year / 12},
		{name: "duplicate unit", raw: "5m 5m", wantErr: true, reason: DurationDuplicateUnit},
		{name: "duplicate alias", raw: "5m 2minutes", wantErr: true, reason: DurationDuplicateUnit},
		{name: "unknown unit", raw: "5x", wantErr: true, reason: DurationUnknownUnit},
		{name: "not allowed", raw: "2h", allowed: CooldownUnits, wantErr: true, reason: DurationUnitNotAllowed},
		{name: "malformed", raw: "soon", wantErr: true, reason: DurationMalformed},
		{name: "empty", raw: "", wantErr: true, reason: DurationMalformed},
		{name: "zero", raw: "0s", wantErr: true, reason: DurationZero},
		{name: "overflow", raw: "99999999999999999y", wantErr: true, reason: DurationMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDuration(tt.raw, tt.allowed...)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDuration))
			var de *DurationError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.reason, de.Reason)
			assert.Zero(t, got)
		})
	}
}

func TestDurationErrorMessages(t *testing.T) {
	_, err := ParseDuration("5m 5m", CooldownUnits...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "`minutes` unit multiple times")

	_, err = ParseDuration("5h", CooldownUnits...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Valid units: `s`, `m`")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", FormatDuration(0))
	assert.Equal(t, "30m", FormatDuration(30*time.Minute))
	assert.Equal(t, "1d 2h 30m 5s", FormatDuration(26*time.Hour+30*time.Minute+5*time.Second))
	assert.Equal(t, "28d", FormatDuration(MaxTimeoutDuration))
}
