package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "GUILDSETTINGS_"

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Token   string `env:"DISCORD_TOKEN,required,notEmpty,unset"`
	GuildID string `env:"GUILD_ID"`

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"sqlite"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"data/guildsettings.db"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"guildsettings"`

	CacheTTL             time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	CacheCleanupInterval time.Duration `env:"CACHE_CLEANUP_INTERVAL" envDefault:"1m"`
	LockTTL              time.Duration `env:"LOCK_TTL" envDefault:"15m"`
	MenuTimeout          time.Duration `env:"MENU_TIMEOUT" envDefault:"180s"`
	SelectorTimeout      time.Duration `env:"SELECTOR_TIMEOUT" envDefault:"120s"`
	PromptTimeout        time.Duration `env:"PROMPT_TIMEOUT" envDefault:"120s"`
	CommandCooldown      time.Duration `env:"COMMAND_COOLDOWN" envDefault:"3s"`

	ControlAddr string `env:"CONTROL_ADDR"`
	Theme       string `env:"THEME"`

	LogDir     string `env:"LOG_DIR" envDefault:"logs"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"LOG_FORMAT" envDefault:"text"`
	LogConsole bool   `env:"LOG_CONSOLE" envDefault:"true"`
}

// Load reads .env files without overriding the environment, then parses and
// validates Config.
func Load() (Config, error) {
	LoadDotEnv()

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv loads ./.env and $HOME/.local/bin/.env when present. Variables
// already set are left alone.
func LoadDotEnv() {
	candidates := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		candidates = append(candidates, filepath.Join(home, ".local", "bin", ".env"))
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			_ = godotenv.Load(path)
		}
	}
}

// Validate rejects inconsistent settings.
func (c Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite driver"))
		}
	case DriverMongo:
		if strings.TrimSpace(c.MongoURI) == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"CACHE_TTL", c.CacheTTL},
		{"LOCK_TTL", c.LockTTL},
		{"MENU_TIMEOUT", c.MenuTimeout},
		{"SELECTOR_TIMEOUT", c.SelectorTimeout},
		{"PROMPT_TIMEOUT", c.PromptTimeout},
	} {
		if d.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", d.name))
		}
	}
	if c.CommandCooldown < 0 {
		errs = append(errs, errors.New("COMMAND_COOLDOWN cannot be negative"))
	}
	// The lock is only refreshed by menu activity, so it has to outlast every idle window.
	for _, w := range []struct {
		name  string
		value time.Duration
	}{
		{"MENU_TIMEOUT", c.MenuTimeout},
		{"SELECTOR_TIMEOUT", c.SelectorTimeout},
		{"PROMPT_TIMEOUT", c.PromptTimeout},
	} {
		if c.LockTTL > 0 && c.LockTTL < w.value {
			errs = append(errs, fmt.Errorf("LOCK_TTL must not be shorter than %s", w.name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
