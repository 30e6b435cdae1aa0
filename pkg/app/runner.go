package app

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/guildsettings/pkg/config"
	"github.com/small-frappuccino/guildsettings/pkg/control"
	"github.com/small-frappuccino/guildsettings/pkg/cooldown"
	"github.com/small-frappuccino/guildsettings/pkg/discord/commands/configuration"
	"github.com/small-frappuccino/guildsettings/pkg/discord/commands/core"
	"github.com/small-frappuccino/guildsettings/pkg/discord/session"
	"github.com/small-frappuccino/guildsettings/pkg/errutil"
	"github.com/small-frappuccino/guildsettings/pkg/guildlock"
	"github.com/small-frappuccino/guildsettings/pkg/log"
	"github.com/small-frappuccino/guildsettings/pkg/menu"
	"github.com/small-frappuccino/guildsettings/pkg/metrics"
	"github.com/small-frappuccino/guildsettings/pkg/storage"
	"github.com/small-frappuccino/guildsettings/pkg/theme"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 30 * time.Second
	cooldownGC      = time.Minute
)

// Run loads the configuration from the environment, connects to Discord and
// blocks until SIGINT or SIGTERM. appName only affects log output.
func Run(appName string) error {
	started := time.Now()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Logger first so subsequent steps can log meaningfully
	if err := log.SetupLogger(log.Options{
		Dir:     cfg.LogDir,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Console: cfg.LogConsole,
	}); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}
	defer log.GlobalLogger.Sync()

	if err := theme.SetCurrent(cfg.Theme); err != nil {
		log.ApplicationLogger().Warn("Unknown theme, using default", "theme", cfg.Theme, "err", err)
	}

	log.ApplicationLogger().Info(formatStartupMessage(appName, AppVersion(), Version))

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	store, err := openStore(ctx, cfg)
	cancel()
	if err != nil {
		return fmt.Errorf("open settings store: %w", err)
	}

	rt := newRuntime(cfg, store)

	log.DiscordLogger().Info("🔑 Attempting to authenticate with Discord API...")
	var commands *core.CommandManager
	discordSession, err := session.NewDiscordSession(cfg.Token, func(s *discordgo.Session) {
		commands = rt.attach(s)
	})
	if err != nil {
		rt.shutdown(context.Background())
		return fmt.Errorf("create discord session: %w", err)
	}
	log.DiscordLogger().Info("✅ Authenticated", "user", discordSession.State.User.Username, "userID", discordSession.State.User.ID)

	if err := commands.SetupCommands(); err != nil {
		_ = discordSession.Close()
		rt.shutdown(context.Background())
		return fmt.Errorf("configure slash commands: %w", err)
	}

	if err := rt.control.Start(); err != nil {
		_ = discordSession.Close()
		rt.shutdown(context.Background())
		return err
	}

	log.ApplicationLogger().Info(fmt.Sprintf("🎯 %s initialized successfully in %s", appName, time.Since(started).Round(time.Millisecond)))
	log.ApplicationLogger().Info(fmt.Sprintf("🤖 %s running. Press Ctrl+C to stop...", appName))

	waitForInterrupt(context.Background())
	log.ApplicationLogger().Info(fmt.Sprintf("🛑 Stopping %s...", appName))

	shutdownCtx, shutdownCancel := context.WithTimeoutCause(context.Background(), shutdownTimeout, fmt.Errorf("application shutdown"))
	defer shutdownCancel()

	// Menus are closed while the session can still edit them.
	rt.manager.Shutdown(shutdownCtx)
	if err := discordSession.Close(); err != nil {
		log.ErrorLoggerRaw().Error("Failed to close Discord session", "err", err)
	}
	rt.shutdown(shutdownCtx)
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		s, err := storage.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		log.DatabaseLogger().Info("Connected to MongoDB", "database", cfg.MongoDatabase)
		return s, nil
	default:
		s := storage.NewSQLiteStore(cfg.SQLitePath)
		if err := errutil.HandleConfigError("open", cfg.SQLitePath, func() error { return s.Init(ctx) }); err != nil {
			return nil, err
		}
		log.DatabaseLogger().Info("SQLite store ready", "path", cfg.SQLitePath)
		return s, nil
	}
}

// runtime holds the long-lived services shared by every guild.
type runtime struct {
	cfg       config.Config
	store     storage.Store
	metrics   *metrics.Metrics
	repo      *storage.Repository
	locks     *guildlock.Locker
	cooldowns *cooldown.Tracker
	control   *control.Server
	manager   *menu.Manager
}

func newRuntime(cfg config.Config, store storage.Store) *runtime {
	rt := &runtime{cfg: cfg, store: store, metrics: metrics.New()}
	rt.repo = storage.NewRepository(store, cfg.CacheTTL, cfg.CacheCleanupInterval, rt.metrics)
	rt.locks = guildlock.New(cfg.LockTTL, guildlock.WithExpireFunc(rt.lockExpired))
	rt.cooldowns = cooldown.NewTracker(cooldownGC)
	rt.control = control.NewServer(cfg.ControlAddr, control.Options{
		Locks:          rt.locks,
		Cache:          rt.repo,
		Invalidate:     rt.repo,
		Metrics:        rt.metrics.Handler(),
		OnForceRelease: rt.lockReleased,
	})
	return rt
}

// attach builds the Discord side on s. It runs before the gateway connects,
// so no interaction can arrive with a half-built router.
func (rt *runtime) attach(s *discordgo.Session, opts ...menu.Option) *core.CommandManager {
	opts = append([]menu.Option{
		menu.WithObserver(rt.metrics),
		menu.WithTimeouts(menu.Timeouts{
			Selector: rt.cfg.SelectorTimeout,
			Menu:     rt.cfg.MenuTimeout,
			Prompt:   rt.cfg.PromptTimeout,
		}),
	}, opts...)
	rt.manager = menu.NewManager(rt.repo, rt.locks, configuration.NewChannel(s), opts...)

	commands := core.NewCommandManager(s, rt.cfg.GuildID, core.WithCooldown(rt.cooldowns, rt.cfg.CommandCooldown))
	handler := configuration.NewHandler(rt.manager)
	handler.Register(commands.GetRouter())

	s.AddHandler(commands.GetRouter().HandleInteraction)
	s.AddHandler(handler.HandleMessageCreate)
	return commands
}

// lockExpired runs inside the locker's eviction callback, so the flow is
// closed on another goroutine.
func (rt *runtime) lockExpired(h guildlock.Holder) {
	rt.metrics.LockExpired()
	if rt.manager != nil {
		go rt.manager.Close(h.GuildID, h.Token, menu.ReasonTimeout)
	}
}

func (rt *runtime) lockReleased(h guildlock.Holder) {
	if rt.manager != nil {
		rt.manager.Close(h.GuildID, h.Token, menu.ReasonClosed)
	}
}

func (rt *runtime) shutdown(ctx context.Context) {
	if rt.manager != nil {
		rt.manager.Shutdown(ctx)
	}
	rt.locks.Shutdown()
	if err := rt.control.Stop(ctx); err != nil {
		log.ErrorLoggerRaw().Error("Failed to stop control server", "err", err)
	}
	rt.cooldowns.Close()
	rt.repo.Close()
	if err := rt.store.Close(ctx); err != nil {
		log.ErrorLoggerRaw().Error("Failed to close settings store", "err", err)
	}
	log.ApplicationLogger().Info("Shutdown complete")
}
