package session

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/guildsettings/pkg/errutil"
	"github.com/small-frappuccino/guildsettings/pkg/log"
)

// Error messages
const (
	ErrSessionCreationFailed   = "failed to create Discord session: %w"
	ErrSessionConnectionFailed = "failed to connect to Discord: %w"
)

// Intents covers slash commands plus the channel replies prompts wait for.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentMessageContent

var (
	newSession   = func(token string) (*discordgo.Session, error) { return discordgo.New("Bot " + token) }
	openSession  = func(s *discordgo.Session) error { return s.Open() }
	closeSession = func(s *discordgo.Session) error { return s.Close() }
)

// NewDiscordSession creates a session, runs setup (handler registration) and
// opens the gateway connection.
func NewDiscordSession(token string, setup ...func(*discordgo.Session)) (*discordgo.Session, error) {
	if token == "" {
		log.ErrorLoggerRaw().Error("Discord bot token is empty")
		return nil, fmt.Errorf("discord bot token is empty")
	}

	var s *discordgo.Session
	if err := errutil.HandleDiscordError("create_session", func() error {
		var sessionErr error
		s, sessionErr = newSession(token)
		return sessionErr
	}); err != nil {
		return nil, fmt.Errorf(ErrSessionCreationFailed, err)
	}
	log.DiscordLogger().Info("Discord session created")

	s.Identify.Intents = Intents
	for _, fn := range setup {
		fn(s)
	}

	log.DiscordLogger().Info("Connecting to Discord")
	if err := errutil.HandleDiscordError("connect", func() error { return openSession(s) }); err != nil {
		_ = closeSession(s)
		return nil, fmt.Errorf(ErrSessionConnectionFailed, err)
	}

	log.DiscordLogger().Info("Connected to Discord")
	return s, nil
}
