package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/small-frappuccino/guildsettings/pkg/config"
	"github.com/small-frappuccino/guildsettings/pkg/discord/commands/configuration"
	"github.com/small-frappuccino/guildsettings/pkg/discord/commands/core"
	"github.com/small-frappuccino/guildsettings/pkg/menu"
	"github.com/small-frappuccino/guildsettings/pkg/settings"
	"github.com/small-frappuccino/guildsettings/pkg/storage"
)

type recordingDisplay struct {
	mu    sync.Mutex
	shown []settings.Payload
}

func (d *recordingDisplay) Show(_ context.Context, p settings.Payload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shown = append(d.shown, p)
	return nil
}

func (d *recordingDisplay) last() (settings.Payload, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.shown) == 0 {
		return settings.Payload{}, false
	}
	return d.shown[len(d.shown)-1], true
}

func newTestRuntime(t *testing.T, lockTTL time.Duration) (*runtime, *core.CommandManager) {
	t.Helper()

	store := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, store.Init(context.Background()))

	cfg := config.Config{
		CacheTTL:        time.Minute,
		LockTTL:         lockTTL,
		MenuTimeout:     time.Hour,
		SelectorTimeout: time.Hour,
		PromptTimeout:   time.Hour,
		ControlAddr:     "127.0.0.1:0",
	}
	rt := newRuntime(cfg, store)

	s, err := discordgo.New("Bot test-token")
	require.NoError(t, err)
	commands := rt.attach(s)

	t.Cleanup(func() { rt.shutdown(context.Background()) })
	return rt, commands
}

func openFlow(t *testing.T, rt *runtime, display menu.Display) *menu.Flow {
	t.Helper()
	flow, _, err := rt.manager.Open(menu.OpenRequest{
		GuildID:   "g1",
		ChannelID: "c1",
		UserID:    "u1",
		Family:    settings.FamilyModeration,
		Display:   display,
	})
	require.NoError(t, err)
	return flow
}

func TestAttachRegistersConfigurationCommand(t *testing.T) {
	_, commands := newTestRuntime(t, time.Hour)

	cmd, ok := commands.GetRouter().GetRegistry().GetCommand(configuration.CommandName)
	require.True(t, ok)
	assert.True(t, cmd.RequiresGuild())
	assert.True(t, cmd.RequiresPermissions())
}

func TestLockExpiryClosesMenu(t *testing.T) {
	rt, _ := newTestRuntime(t, 50*time.Millisecond)
	display := &recordingDisplay{}
	openFlow(t, rt, display)
	require.Equal(t, 1, rt.manager.Active())

	require.Eventually(t, func() bool { return rt.manager.Active() == 0 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		p, ok := display.last()
		return ok && p.Content == menu.NoticeTimedOut
	}, 2*time.Second, 10*time.Millisecond)
}

func TestOperatorReleaseClosesMenu(t *testing.T) {
	rt, _ := newTestRuntime(t, time.Hour)
	display := &recordingDisplay{}
	flow := openFlow(t, rt, display)

	srv := httptest.NewServer(rt.control.Routes())
	t.Cleanup(srv.Close)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/v1/locks/g1", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Zero(t, rt.manager.Active())
	p, ok := display.last()
	require.True(t, ok)
	assert.Equal(t, menu.NoticeClosed, p.Content)

	_, held := rt.locks.Held("g1")
	assert.False(t, held)
	assert.False(t, rt.manager.Close("g1", flow.ID(), menu.ReasonClosed))
}

func TestOpenStoreSQLite(t *testing.T) {
	cfg := config.Config{StoreDriver: config.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "nested", "settings.db")}
	store, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	got, err := store.FindOrCreate(context.Background(), settings.KindBan, "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", got.GuildID)
}

func TestWaitForInterruptReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		waitForInterrupt(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("waitForInterrupt did not return after cancellation")
	}
}
