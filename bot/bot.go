package bot

import (
	"io"
	"sync"
	"time"

	"durandal/commands"
	"durandal/model"
	"durandal/registry"
	"durandal/timeout"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

type Bot struct {
	Session            *discordgo.Session
	Engine             *timeout.Engine
	Registry           *registry.Registry
	CommandHandlers    map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)
	StartedAt          time.Time
	config             *model.Config
	scheduler          *Scheduler
	closers            []io.Closer
	mu                 sync.Mutex
	registeredCommands map[string][]*discordgo.ApplicationCommand
}

// NewSession creates the discordgo session with the intents the bot needs.
// GuildMembers is privileged and must be enabled for the application.
func NewSession(cfg *model.Config) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers
	return dg, nil
}

// New wires the bot. closers are closed after the session on shutdown.
func New(cfg *model.Config, session *discordgo.Session, engine *timeout.Engine, reg *registry.Registry, closers ...io.Closer) *Bot {
	b := &Bot{
		Session:            session,
		Engine:             engine,
		Registry:           reg,
		CommandHandlers:    make(map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)),
		config:             cfg,
		closers:            closers,
		registeredCommands: make(map[string][]*discordgo.ApplicationCommand),
	}
	b.scheduler = NewScheduler(engine, cfg.SweepInterval)
	return b
}

func (b *Bot) GetConfig() *model.Config {
	return b.config
}

func (b *Bot) Close() {
	log.Info().Msg("Gracefully shutting down")
	b.scheduler.Stop()
	if err := b.Session.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing Discord session")
	}
	for _, c := range b.closers {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing resource")
		}
	}
}

// RefreshCommands overwrites the slash commands of a guild.
func (b *Bot) RefreshCommands(guildID string) {
	if b.config.DisableCommandRegister {
		return
	}
	if b.Session.State == nil || b.Session.State.User == nil {
		log.Warn().Str("guild_id", guildID).Msg("Session not ready, skipping command registration")
		return
	}

	cmds := commands.GenerateCommands()
	registered, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, guildID, cmds)
	if err != nil {
		log.Error().Err(err).Str("guild_id", guildID).Msg("Cannot update commands")
		return
	}

	b.mu.Lock()
	b.registeredCommands[guildID] = registered
	b.mu.Unlock()
	log.Info().Str("guild_id", guildID).Int("count", len(registered)).Msg("Registered commands")
}
