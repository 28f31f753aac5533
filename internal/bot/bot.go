package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/airo-bot/airo/internal/service"
)

// session is an internal interface that abstracts the discordgo.Session methods
// used by the Bot. This allows mocking the session in tests.
// *discordgo.Session satisfies this interface.
type session interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
	ApplicationCommandCreate(appID string, guildID string, cmd *discordgo.ApplicationCommand, options ...discordgo.RequestOption) (*discordgo.ApplicationCommand, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ThreadStart(channelID, name string, typ discordgo.ChannelType, archiveDuration int, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessagePin(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessagesPinned(channelID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelEditComplex(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
}

// Option defines a function signature for Bot's functional options.
type Option func(b *Bot)

// WithSession creates an Option with the given *discordgo.Session.
// Use this to inject a pre-configured session.
// If this option is not given, New creates a new session from Config.Token.
func WithSession(session *discordgo.Session) Option {
	return func(b *Bot) {
		b.session = session
	}
}

// Bot ties the Discord gateway to the task service. Slash commands and
// message components are its only inbound surface.
type Bot struct {
	config  *Config
	session session
	tasks   *service.TaskService
	logger  *zap.Logger

	commands map[string]func(*discordgo.InteractionCreate)

	mu    sync.Mutex
	appID string
}

// New creates a new Bot with the given Config and options.
func New(config *Config, tasks *service.TaskService, logger *zap.Logger, options ...Option) (*Bot, error) {
	b := &Bot{
		config: config,
		tasks:  tasks,
		logger: logger,
	}

	for _, opt := range options {
		opt(b)
	}

	if b.session == nil {
		if config.Token == "" {
			return nil, ErrEmptyToken
		}

		s, err := discordgo.New("Bot " + config.Token)
		if err != nil {
			return nil, fmt.Errorf("failed to create Discord session: %w", err)
		}
		s.Identify.Intents = config.Intents
		b.session = s
	}

	b.commands = map[string]func(*discordgo.InteractionCreate){
		"set_checkin_channel":   b.handleSetCheckinChannel,
		"assign_task":           b.handleAssignTask,
		"update_assignees":      b.handleUpdateAssignees,
		"cleanup_tasks":         b.handleCleanupTasks,
		"list_tasks":            b.handleListTasks,
		"delete_archived_tasks": b.handleDeleteArchived,
		"remind":                b.handleRemind,
	}

	return b, nil
}

// Run establishes a connection with Discord and blocks until the context is
// canceled. Slash commands are registered per guild as guilds become
// available.
func (b *Bot) Run(ctx context.Context) error {
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.handleReady(r)
	})
	b.session.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) {
		b.handleGuildCreate(g)
	})
	b.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		b.handleInteraction(i)
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}

	<-ctx.Done()

	if err := b.session.Close(); err != nil {
		return fmt.Errorf("failed to close Discord session: %w", err)
	}
	return nil
}

func (b *Bot) handleReady(r *discordgo.Ready) {
	b.mu.Lock()
	b.appID = r.User.ID
	b.mu.Unlock()
	b.logger.Info("Discord session ready", zap.String("user", r.User.Username))
}

func (b *Bot) handleGuildCreate(g *discordgo.GuildCreate) {
	b.mu.Lock()
	appID := b.appID
	b.mu.Unlock()
	if appID == "" {
		b.logger.Warn("guild available before ready, skipping command registration", zap.String("guild", g.ID))
		return
	}

	for _, cmd := range commandDefinitions() {
		if _, err := b.session.ApplicationCommandCreate(appID, g.ID, cmd); err != nil {
			b.logger.Error("failed to register command",
				zap.String("guild", g.ID),
				zap.String("command", cmd.Name),
				zap.Error(err),
			)
		}
	}
	b.logger.Info("registered guild commands", zap.String("guild", g.ID))
}

func (b *Bot) handleInteraction(i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name := i.ApplicationCommandData().Name
		handler, ok := b.commands[name]
		if !ok {
			b.logger.Warn("unknown command", zap.String("command", name))
			return
		}
		handler(i)

	case discordgo.InteractionMessageComponent:
		b.handleComponent(i)
	}
}

// interactionUser returns the invoking user regardless of guild or DM context.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

// isCaptain reports whether the interacting member holds the captain role.
func (b *Bot) isCaptain(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}

	roles, err := b.session.GuildRoles(i.GuildID)
	if err != nil {
		b.logger.Error("failed to fetch guild roles", zap.String("guild", i.GuildID), zap.Error(err))
		return false
	}

	var captainRoleID string
	for _, r := range roles {
		if r.Name == b.config.CaptainRole {
			captainRoleID = r.ID
			break
		}
	}
	if captainRoleID == "" {
		return false
	}

	for _, id := range i.Member.Roles {
		if id == captainRoleID {
			return true
		}
	}
	return false
}

// deferEphemeral acknowledges the interaction so slower handlers can follow up.
func (b *Bot) deferEphemeral(i *discordgo.InteractionCreate) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.logger.Error("failed to defer interaction", zap.Error(err))
	}
}

func (b *Bot) followup(i *discordgo.InteractionCreate, content string) {
	_, err := b.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		b.logger.Error("failed to send followup", zap.Error(err))
	}
}

func (b *Bot) followupEmbed(i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	_, err := b.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
		Flags:  discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		b.logger.Error("failed to send followup embed", zap.Error(err))
	}
}
