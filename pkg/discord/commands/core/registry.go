package core

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/guildsettings/pkg/cooldown"
	"github.com/small-frappuccino/guildsettings/pkg/log"
	"github.com/small-frappuccino/guildsettings/pkg/settings"
)

// CommandRouter dispatches interactions to commands and component handlers.
type CommandRouter struct {
	registry       *CommandRegistry
	contextBuilder *ContextBuilder
	responder      *Responder
	permChecker    *PermissionChecker
	components     map[string]ComponentHandler
	cooldowns      *cooldown.Tracker
	cooldown       time.Duration
}

// RouterOption configures a CommandRouter.
type RouterOption func(*CommandRouter)

// WithCooldown rate limits each command per user and guild.
func WithCooldown(tracker *cooldown.Tracker, d time.Duration) RouterOption {
	return func(cr *CommandRouter) {
		cr.cooldowns = tracker
		cr.cooldown = d
	}
}

func NewCommandRouter(session *discordgo.Session, opts ...RouterOption) *CommandRouter {
	responder := NewResponder(session)
	permChecker := NewPermissionChecker(session)
	cr := &CommandRouter{
		registry:       NewCommandRegistry(),
		contextBuilder: NewContextBuilder(session, permChecker, responder),
		responder:      responder,
		permChecker:    permChecker,
		components:     make(map[string]ComponentHandler),
	}
	for _, opt := range opts {
		opt(cr)
	}
	return cr
}

func (cr *CommandRouter) RegisterCommand(cmd Command) {
	cr.registry.Register(cmd)
}

func (cr *CommandRouter) RegisterSubCommand(parentName string, subcmd SubCommand) {
	cr.registry.RegisterSubCommand(parentName, subcmd)
}

// RegisterComponent routes component interactions whose custom ID starts
// with prefix followed by ":".
func (cr *CommandRouter) RegisterComponent(prefix string, handler ComponentHandler) {
	cr.components[prefix] = handler
}

// HandleInteraction is the discordgo InteractionCreate handler.
func (cr *CommandRouter) HandleInteraction(_ *discordgo.Session, i *discordgo.InteractionCreate) {
	defer func() {
		if r := recover(); r != nil {
			log.ErrorLoggerRaw().Error("Interaction handler panicked",
				"interactionID", i.ID, "guildID", i.GuildID, "panic", r, "stack", string(debug.Stack()))
			_ = cr.responder.Error(i, "An unexpected error occurred")
		}
	}()

	switch {
	case IsSlashCommandInteraction(i):
		cr.handleSlashCommand(i)
	case IsComponentInteraction(i):
		cr.handleComponent(i)
	}
}

func (cr *CommandRouter) handleSlashCommand(i *discordgo.InteractionCreate) {
	ctx := cr.contextBuilder.BuildContext(i)
	commandName := i.ApplicationCommandData().Name
	ctx.Logger = ctx.Logger.With("command", GetCommandPath(i))

	cmd, exists := cr.registry.GetCommand(commandName)
	if !exists {
		ctx.Logger.Error("Command not found")
		_ = cr.responder.Error(i, "Command not found")
		return
	}

	if cmd.RequiresGuild() && ctx.GuildID == "" {
		ctx.Logger.Warn("Command used outside of guild")
		_ = cr.responder.Error(i, "This command can only be used in a server")
		return
	}

	if cmd.RequiresPermissions() && !cr.permChecker.HasPermission(i) {
		ctx.Logger.Warn("User without permission tried to use command")
		_ = cr.responder.Error(i, "You need the Administrator permission to use this command")
		return
	}

	if cr.cooldowns != nil && cr.cooldown > 0 {
		if remaining, ok := cr.cooldowns.Allow(commandName, ctx.UserID, ctx.GuildID, cr.cooldown); !ok {
			ctx.Logger.Debug("Command on cooldown", "remaining", remaining)
			wait := (remaining + time.Second - 1).Truncate(time.Second)
			_ = cr.responder.Warning(i, fmt.Sprintf("Please wait %s before using /%s again.", settings.FormatDuration(wait), commandName))
			return
		}
	}

	ctx.Logger.Info("Executing command")
	if err := cmd.Handle(ctx); err != nil {
		cr.respondError(ctx, err)
	}
}

func (cr *CommandRouter) handleComponent(i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	prefix, _, _ := strings.Cut(customID, ":")
	handler, ok := cr.components[prefix]
	if !ok {
		log.DiscordLogger().Debug("No handler for component", "customID", customID)
		return
	}

	ctx := cr.contextBuilder.BuildContext(i)
	ctx.Logger = ctx.Logger.With("customID", customID)
	if err := handler(ctx); err != nil {
		cr.respondError(ctx, err)
	}
}

func (cr *CommandRouter) respondError(ctx *Context, err error) {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		ctx.Logger.Warn("Command rejected", "error", err)
		if cmdErr.Ephemeral {
			_ = cr.responder.Ephemeral(ctx.Interaction, cmdErr.Message)
		} else {
			_ = cr.responder.Reply(ctx.Interaction, cmdErr.Message, false)
		}
		return
	}
	ctx.Logger.Error("Command execution failed", "error", err)
	_ = cr.responder.Error(ctx.Interaction, "An error occurred while executing the command")
}

func (cr *CommandRouter) GetRegistry() *CommandRegistry {
	return cr.registry
}

func (cr *CommandRouter) GetResponder() *Responder {
	return cr.responder
}

func (cr *CommandRouter) GetPermissionChecker() *PermissionChecker {
	return cr.permChecker
}

// CommandManager keeps the application commands registered with Discord in
// sync with the router.
type CommandManager struct {
	session *discordgo.Session
	router  *CommandRouter
	guildID string
}

// NewCommandManager registers commands in guildID, or globally when empty.
func NewCommandManager(session *discordgo.Session, guildID string, opts ...RouterOption) *CommandManager {
	return &CommandManager{
		session: session,
		router:  NewCommandRouter(session, opts...),
		guildID: guildID,
	}
}

func (cm *CommandManager) GetRouter() *CommandRouter {
	return cm.router
}

// SetupCommands creates, updates and deletes remote commands so they match
// the registry. Unchanged commands are left alone.
func (cm *CommandManager) SetupCommands() error {
	logger := log.DiscordLogger().With("component", "command_manager", "guildID", cm.guildID)
	if cm.session.State == nil || cm.session.State.User == nil {
		return fmt.Errorf("session is not ready")
	}
	appID := cm.session.State.User.ID

	registered, err := cm.session.ApplicationCommands(appID, cm.guildID)
	if err != nil {
		return fmt.Errorf("failed to fetch registered commands: %w", err)
	}

	regByName := make(map[string]*discordgo.ApplicationCommand, len(registered))
	for _, rc := range registered {
		regByName[rc.Name] = rc
	}

	codeCommands := cm.router.registry.GetAllCommands()
	created, updated, unchanged := 0, 0, 0
	for name, cmd := range codeCommands {
		desired := &discordgo.ApplicationCommand{
			Name:        cmd.Name(),
			Description: cmd.Description(),
			Options:     cmd.Options(),
		}

		if existing, ok := regByName[name]; ok {
			if CompareCommands(existing, desired) {
				logger.Debug("Command unchanged, skipping", "command", name)
				unchanged++
				continue
			}
			if _, err := cm.session.ApplicationCommandEdit(appID, cm.guildID, existing.ID, desired); err != nil {
				return fmt.Errorf("error updating command '%s': %w", name, err)
			}
			logger.Info("Command updated", "command", name)
			updated++
			continue
		}

		if _, err := cm.session.ApplicationCommandCreate(appID, cm.guildID, desired); err != nil {
			return fmt.Errorf("error creating command '%s': %w", name, err)
		}
		logger.Info("Command created", "command", name)
		created++
	}

	deleted := 0
	for _, rc := range registered {
		if _, exists := codeCommands[rc.Name]; exists {
			continue
		}
		if err := cm.session.ApplicationCommandDelete(appID, cm.guildID, rc.ID); err != nil {
			logger.Warn("Error removing orphan command", "command", rc.Name, "error", err)
			continue
		}
		logger.Info("Orphan command removed", "command", rc.Name)
		deleted++
	}

	logger.Info("Command synchronization completed",
		"created", created,
		"updated", updated,
		"deleted", deleted,
		"unchanged", unchanged,
		"total", len(codeCommands),
	)
	return nil
}

// GroupCommand is a command made of subcommands.
type GroupCommand struct {
	name        string
	description string
	subcommands map[string]SubCommand
	order       []string
	checker     *PermissionChecker
}

func NewGroupCommand(name, description string, checker *PermissionChecker) *GroupCommand {
	return &GroupCommand{
		name:        name,
		description: description,
		subcommands: make(map[string]SubCommand),
		checker:     checker,
	}
}

func (gc *GroupCommand) AddSubCommand(subcmd SubCommand) {
	if _, exists := gc.subcommands[subcmd.Name()]; !exists {
		gc.order = append(gc.order, subcmd.Name())
	}
	gc.subcommands[subcmd.Name()] = subcmd
}

func (gc *GroupCommand) Name() string        { return gc.name }
func (gc *GroupCommand) Description() string { return gc.description }

// Options lists the subcommands in registration order so remote comparison
// is stable.
func (gc *GroupCommand) Options() []*discordgo.ApplicationCommandOption {
	options := make([]*discordgo.ApplicationCommandOption, 0, len(gc.order))
	for _, name := range gc.order {
		subcmd := gc.subcommands[name]
		options = append(options, &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        subcmd.Name(),
			Description: subcmd.Description(),
			Options:     subcmd.Options(),
		})
	}
	return options
}

// RequiresGuild reports whether any subcommand requires a guild.
func (gc *GroupCommand) RequiresGuild() bool {
	for _, subcmd := range gc.subcommands {
		if subcmd.RequiresGuild() {
			return true
		}
	}
	return false
}

// RequiresPermissions reports whether any subcommand requires permissions.
func (gc *GroupCommand) RequiresPermissions() bool {
	for _, subcmd := range gc.subcommands {
		if subcmd.RequiresPermissions() {
			return true
		}
	}
	return false
}

// Handle routes to the selected subcommand.
func (gc *GroupCommand) Handle(ctx *Context) error {
	subCommandName := GetSubCommandName(ctx.Interaction)
	if subCommandName == "" {
		return NewCommandError("No subcommand specified", true)
	}

	subcmd, exists := gc.subcommands[subCommandName]
	if !exists {
		return NewCommandError("Unknown subcommand", true)
	}

	if subcmd.RequiresGuild() && ctx.GuildID == "" {
		return NewCommandError("This subcommand can only be used in a server", true)
	}
	if subcmd.RequiresPermissions() && !gc.checker.HasPermission(ctx.Interaction) {
		return NewCommandError("You don't have permission to use this subcommand", true)
	}

	return subcmd.Handle(ctx)
}

// SimpleCommand implements Command with a function.
type SimpleCommand struct {
	name                string
	description         string
	options             []*discordgo.ApplicationCommandOption
	handler             func(ctx *Context) error
	requiresGuild       bool
	requiresPermissions bool
}

func NewSimpleCommand(
	name, description string,
	options []*discordgo.ApplicationCommandOption,
	handler func(ctx *Context) error,
	requiresGuild, requiresPermissions bool,
) *SimpleCommand {
	return &SimpleCommand{
		name:                name,
		description:         description,
		options:             options,
		handler:             handler,
		requiresGuild:       requiresGuild,
		requiresPermissions: requiresPermissions,
	}
}

func (sc *SimpleCommand) Name() string        { return sc.name }
func (sc *SimpleCommand) Description() string { return sc.description }
func (sc *SimpleCommand) Options() []*discordgo.ApplicationCommandOption {
	return sc.options
}
func (sc *SimpleCommand) Handle(ctx *Context) error { return sc.handler(ctx) }
func (sc *SimpleCommand) RequiresGuild() bool       { return sc.requiresGuild }
func (sc *SimpleCommand) RequiresPermissions() bool { return sc.requiresPermissions }
