package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/small-frappuccino/guildsettings/pkg/settings"
)

func newTempStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store := NewSQLiteStore(dbPath)
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func TestSchemaInitialized(t *testing.T) {
	store := newTempStore(t)
	var name string
	err := store.db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='command_settings'`).Scan(&name)
	if err != nil {
		t.Fatalf("expected command_settings table: %v", err)
	}
}

func TestFindOrCreateInsertsDefaultsOnce(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)

	got, err := store.FindOrCreate(ctx, settings.KindMute, "g1")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	if got.Enabled || got.Moderation.DefaultDuration != settings.DefaultPunishmentDuration || got.Moderation.MuteRoleID != "" {
		t.Fatalf("unexpected defaults: %+v", got)
	}

	got.Moderation.MuteRoleID = "r1"
	if _, err := store.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}

	again, err := store.FindOrCreate(ctx, settings.KindMute, "g1")
	if err != nil {
		t.Fatalf("FindOrCreate again: %v", err)
	}
	if again.Moderation.MuteRoleID != "r1" {
		t.Fatalf("FindOrCreate overwrote an existing row: %+v", again)
	}
}

func TestUpdateRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)

	base, err := store.FindOrCreate(ctx, settings.KindThrow, "g1")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}

	draft := base.Clone()
	cooldown := 90 * time.Second
	draft.Enabled = false
	draft.Fun.Cooldown = &cooldown
	draft.Fun.CustomItems = []string{"Rock", "pillow"}
	draft.Fun.BlacklistedChannels = []string{"c1"}

	if _, err := store.Update(ctx, draft); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Reopen to bypass anything held in memory.
	if err := store.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("re-Init: %v", err)
	}
	reloaded, err := store.FindOrCreate(ctx, settings.KindThrow, "g1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if settings.HasChanges(reloaded, draft) {
		t.Fatalf("reloaded settings differ from saved draft:\n got %+v\nwant %+v", reloaded, draft)
	}
	if reloaded.Fun.Cooldown == nil || *reloaded.Fun.Cooldown != cooldown {
		t.Fatalf("cooldown not persisted: %v", reloaded.Fun.Cooldown)
	}
	if reloaded.UpdatedAt.IsZero() {
		t.Fatal("expected updated_at to be set")
	}
}

func TestKindsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := newTempStore(t)

	ban, _ := store.FindOrCreate(ctx, settings.KindBan, "g1")
	ban.Enabled = true
	if _, err := store.Update(ctx, ban); err != nil {
		t.Fatalf("Update: %v", err)
	}

	kick, err := store.FindOrCreate(ctx, settings.KindKick, "g1")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	if kick.Enabled {
		t.Fatal("kick settings picked up the ban update")
	}
}

func TestUninitializedStore(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "x.db"))
	if _, err := store.FindOrCreate(context.Background(), settings.KindBan, "g1"); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}
