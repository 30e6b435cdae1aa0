package settings

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func durationPtr(d time.Duration) *time.Duration { return &d }

func numberedItems(n int) []string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf("item-%02d", i)
	}
	return items
}

func TestDefaults(t *testing.T) {
	throw := Defaults("g1", KindThrow)
	assert.True(t, throw.Enabled)
	assert.Nil(t, throw.Fun.Cooldown)
	assert.Empty(t, throw.Fun.CustomItems)
	assert.False(t, throw.Fun.CustomItemsOnly)

	mute := Defaults("g1", KindMute)
	assert.False(t, mute.Enabled)
	assert.Equal(t, 30*time.Minute, mute.Moderation.DefaultDuration)
	assert.Empty(t, mute.Moderation.MuteRoleID)

	kick := Defaults("g1", KindKick)
	assert.Zero(t, kick.Moderation.DefaultDuration)
	assert.NoError(t, Validate(kick))
	assert.NoError(t, Validate(mute))
	assert.NoError(t, Validate(throw))
}

func TestCloneIsDeep(t *testing.T) {
	base := Defaults("g1", KindThrow)
	base.Fun.Cooldown = durationPtr(time.Minute)
	base.Fun.CustomItems = []string{"rock"}

	c := base.Clone()
	*c.Fun.Cooldown = time.Hour
	c.Fun.CustomItems[0] = "pillow"

	assert.Equal(t, time.Minute, *base.Fun.Cooldown)
	assert.Equal(t, "rock", base.Fun.CustomItems[0])
}

func TestHasChanges(t *testing.T) {
	base := Defaults("g1", KindThrow)
	base.Fun.CustomItems = []string{"a", "b"}
	base.Fun.BlacklistedChannels = []string{"c1", "c2"}

	tests := []struct {
		name   string
		mutate func(*Settings)
		want   bool
	}{
		{name: "identical", mutate: func(*Settings) {}, want: false},
		{name: "reordered collections", mutate: func(s *Settings) {
			s.Fun.CustomItems = []string{"b", "a"}
			s.Fun.BlacklistedChannels = []string{"c2", "c1"}
		}, want: false},
		{name: "toggled", mutate: func(s *Settings) { s.Enabled = false }, want: true},
		{name: "null to value", mutate: func(s *Settings) { s.Fun.Cooldown = durationPtr(time.Second) }, want: true},
		{name: "item added", mutate: func(s *Settings) { s.Fun.CustomItems = append(s.Fun.CustomItems, "c") }, want: true},
		{name: "item swapped", mutate: func(s *Settings) { s.Fun.CustomItems = []string{"a", "z"} }, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base.Clone()
			tt.mutate(&d)
			assert.Equal(t, tt.want, HasChanges(d, base))
		})
	}

	t.Run("value to value", func(t *testing.T) {
		b := base.Clone()
		b.Fun.Cooldown = durationPtr(time.Second)
		d := b.Clone()
		d.Fun.Cooldown = durationPtr(2 * time.Second)
		assert.True(t, HasChanges(d, b))
		d.Fun.Cooldown = durationPtr(time.Second)
		assert.False(t, HasChanges(d, b))
	})
}

func TestSameSet(t *testing.T) {
	assert.True(t, SameSet(nil, []string{}))
	assert.True(t, SameSet([]string{"a", "a"}, []string{"a"}))
	assert.False(t, SameSet([]string{"a"}, []string{"A"}))
	assert.False(t, SameSet([]string{"a", "b"}, []string{"a"}))
}

func TestValidate(t *testing.T) {
	timeout := Defaults("g1", KindTimeout)
	timeout.Moderation.DefaultDuration = MaxTimeoutDuration + time.Second
	var ve *ValidationError
	require.True(t, errors.As(Validate(timeout), &ve))
	assert.Equal(t, FieldDefaultDuration, ve.Field)

	mute := Defaults("g1", KindMute)
	mute.Enabled = true
	require.True(t, errors.As(Validate(mute), &ve))
	assert.Equal(t, FieldMuteRole, ve.Field)

	throw := Defaults("g1", KindThrow)
	throw.Fun.CustomItemsOnly = true
	throw.Fun.CustomItems = numberedItems(29)
	require.True(t, errors.As(Validate(throw), &ve))
	assert.Equal(t, FieldCustomItemsOnly, ve.Field)

	assert.ErrorIs(t, Validate(Settings{GuildID: "g1", Kind: "dance"}), ErrUnknownKind)
}

func TestRemoveItemsClearsItemsOnly(t *testing.T) {
	s := Defaults("g1", KindThrow)
	s.Fun.CustomItems = numberedItems(30)
	require.NoError(t, s.ToggleCustomItemsOnly())
	require.True(t, s.Fun.CustomItemsOnly)

	s.RemoveItems([]string{"ITEM-00"})
	assert.Len(t, s.Fun.CustomItems, 29)
	assert.False(t, s.Fun.CustomItemsOnly)
	assert.ErrorIs(t, s.ToggleCustomItemsOnly(), ErrInvalidOperation)
}

func TestToggleEnabledNeedsMuteRole(t *testing.T) {
	s := Defaults("g1", KindMute)
	assert.ErrorIs(t, s.ToggleEnabled(), ErrInvalidOperation)
	assert.False(t, s.Enabled)

	s.Moderation.MuteRoleID = "r1"
	require.NoError(t, s.ToggleEnabled())
	assert.True(t, s.Enabled)
}

func TestParseKindAndFamily(t *testing.T) {
	k, err := ParseKind(" Timeout ")
	require.NoError(t, err)
	assert.Equal(t, KindTimeout, k)
	assert.Equal(t, FamilyModeration, k.Family())
	assert.Equal(t, "g1:timeout", k.CacheKey("g1"))

	_, err = ParseKind("dance")
	assert.ErrorIs(t, err, ErrUnknownKind)

	f, err := ParseFamily("FUN")
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindThrow}, f.Kinds())
}
