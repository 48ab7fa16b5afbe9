package bot

import (
	"context"
	"time"

	"guildgate/internal/config"
	"guildgate/internal/guild"
	"guildgate/internal/identity"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const ticketCloseDelay = 2 * time.Second

type Bot struct {
	cfg      config.Config
	logger   *zap.Logger
	session  *discordgo.Session
	identity *identity.Client
	guilds   *guild.Service
	tickets  *ticketScheduler
}

func New(cfg config.Config, logger *zap.Logger, identityClient *identity.Client) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:      cfg,
		logger:   logger,
		session:  session,
		identity: identityClient,
		guilds:   guild.NewService(session),
	}
	b.tickets = newTicketScheduler(ticketCloseDelay, func(channelID string) {
		if _, err := session.ChannelDelete(channelID); err != nil {
			logger.Warn("ticket channel delete failed", zap.String("channel_id", channelID), zap.Error(err))
		}
	})

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)

	return b.session.Open()
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

// Session exposes the gateway session so the membership facade and the admin
// notifier can share it.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username))
}
