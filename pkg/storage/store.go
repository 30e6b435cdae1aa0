package storage

import (
	"context"
	"errors"

	"github.com/small-frappuccino/guildsettings/pkg/settings"
)

// ErrNotInitialized is returned by stores used before Init or after Close.
var ErrNotInitialized = errors.New("store not initialized")

// Store persists one settings document per (guild, kind). Each call is atomic
// for its document.
type Store interface {
	// FindOrCreate returns the guild's settings, inserting the kind defaults
	// when none exist.
	FindOrCreate(ctx context.Context, kind settings.Kind, guildID string) (settings.Settings, error)
	// Update writes every field of s and returns the stored document.
	Update(ctx context.Context, s settings.Settings) (settings.Settings, error)
	Close(ctx context.Context) error
}
