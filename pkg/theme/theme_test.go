package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetCurrentFallsBackToDefaults(t *testing.T) {
	t.Cleanup(func() { _ = SetCurrent("") })

	require.NoError(t, SetCurrent("halloween"))
	assert.Equal(t, 0xEB6123, Primary())
	assert.Equal(t, defaultTheme().Success, Success(), "unset roles inherit defaults")

	assert.Error(t, SetCurrent("missing"))
	assert.Equal(t, 0xEB6123, Primary(), "failed switch keeps the current theme")

	require.NoError(t, SetCurrent(""))
	assert.Equal(t, defaultTheme().Primary, Primary())
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	assert.Error(t, Register(nil))
	assert.Error(t, Register(&Theme{}))
	assert.Error(t, Register(&Theme{Name: "halloween"}))
}
