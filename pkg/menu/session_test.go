package menu

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/small-frappuccino/guildsettings/pkg/settings"
)

func TestSessionDraftIsIsolatedFromBaseline(t *testing.T) {
	base := settings.Defaults("g1", settings.KindThrow)
	s := NewSession(base)

	_, err := s.Apply(settings.ActionSetBlacklist, []string{"c1", "c2"})
	require.NoError(t, err)
	assert.Empty(t, base.Fun.BlacklistedChannels)
	assert.Empty(t, s.Baseline().Fun.BlacklistedChannels)
	assert.True(t, s.HasChanges())

	_, err = s.Apply(settings.ActionSetBlacklist, nil)
	require.NoError(t, err)
	assert.False(t, s.HasChanges(), "clearing the selection restores the baseline")
}

func TestSessionPromptsPerKind(t *testing.T) {
	cases := []struct {
		kind   settings.Kind
		action settings.Action
		want   bool
	}{
		{settings.KindThrow, settings.ActionSetCooldown, true},
		{settings.KindThrow, settings.ActionAddItems, true},
		{settings.KindThrow, settings.ActionRemoveItems, false},
		{settings.KindThrow, settings.ActionSetDefaultDuration, false},
		{settings.KindTimeout, settings.ActionSetDefaultDuration, true},
		{settings.KindMute, settings.ActionSetDefaultDuration, true},
		{settings.KindBan, settings.ActionSetDefaultDuration, false},
		{settings.KindBan, settings.ActionAddItems, false},
	}
	for _, tc := range cases {
		s := NewSession(settings.Defaults("g1", tc.kind))
		_, ok := s.PromptFor(tc.action)
		assert.Equal(t, tc.want, ok, "%s/%s", tc.kind, tc.action)
	}
}

func TestSessionCooldownPrompt(t *testing.T) {
	s := NewSession(settings.Defaults("g1", settings.KindThrow))
	p, ok := s.PromptFor(settings.ActionSetCooldown)
	require.True(t, ok)

	assert.Contains(t, s.Answer(p, "2h"), "Invalid time unit")
	assert.Nil(t, s.Draft().Fun.Cooldown)

	assert.Equal(t, "✅ Cooldown set to 1m 30s.", s.Answer(p, "1 minute 30 seconds"))
	require.NotNil(t, s.Draft().Fun.Cooldown)
	assert.Equal(t, 90*time.Second, *s.Draft().Fun.Cooldown)

	_, err := s.Apply(settings.ActionRemoveCooldown, nil)
	require.NoError(t, err)
	assert.Nil(t, s.Draft().Fun.Cooldown)
}

func TestSessionRemoveItemsClearsItemsOnly(t *testing.T) {
	base := settings.Defaults("g1", settings.KindThrow)
	for i := 0; i < settings.MinItemsForItemsOnly; i++ {
		base.Fun.CustomItems = append(base.Fun.CustomItems, "item"+string(rune('A'+i)))
	}
	base.Fun.CustomItemsOnly = true
	s := NewSession(base)

	p, ok := s.PromptFor(settings.ActionRemoveItems)
	require.True(t, ok)
	summary := s.Answer(p, "itemA, ITEMA, missing")
	assert.Contains(t, summary, "1 item(s) were removed")
	assert.Contains(t, summary, "1 item(s) were not found")
	assert.False(t, s.Draft().Fun.CustomItemsOnly)

	notice, err := s.Apply(settings.ActionToggleItemsOnly, nil)
	require.NoError(t, err)
	assert.Equal(t, NoticeItemsOnly, notice)
}

func TestSavedSessionRejectsEdits(t *testing.T) {
	s := NewSession(settings.Defaults("g1", settings.KindWarn))
	_, err := s.Apply(settings.ActionToggleEnabled, nil)
	require.NoError(t, err)

	s.MarkSaved(s.Draft())
	assert.True(t, s.Saved())
	_, err = s.Apply(settings.ActionToggleReasonRequired, nil)
	assert.ErrorIs(t, err, settings.ErrInvalidOperation)
	_, ok := s.PromptFor(settings.ActionSetDefaultDuration)
	assert.False(t, ok)

	p := s.Render(false)
	assert.Equal(t, "Warn Settings (Changes Saved)", p.Title)
	l, _ := p.Line(settings.FieldEnabled)
	assert.True(t, l.Modified, "the saved view still diffs against the original baseline")
}

func TestSetMuteRoleRequiresValue(t *testing.T) {
	s := NewSession(settings.Defaults("g1", settings.KindMute))
	_, err := s.Apply(settings.ActionSetMuteRole, nil)
	assert.ErrorIs(t, err, settings.ErrInvalidOperation)

	_, err = s.Apply(settings.ActionSetMuteRole, []string{"r1"})
	require.NoError(t, err)
	notice, err := s.Apply(settings.ActionToggleEnabled, nil)
	require.NoError(t, err)
	assert.Empty(t, notice)
	assert.True(t, s.Draft().Enabled)
}
