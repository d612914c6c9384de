package discord

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"rollcall/internal/alerts"
	"rollcall/internal/apperr"
	"rollcall/internal/config"
	"rollcall/internal/database"
	"rollcall/internal/models"
	"rollcall/internal/roster"
	"rollcall/pkg/utils"
)

// Timeout for the work done on behalf of a single chat command.
const commandTimeout = 30 * time.Second

// Bot represents the Discord bot
type Bot struct {
	session   *discordgo.Session
	cfg       *config.Config
	engine    *roster.Engine
	scheduler *alerts.Scheduler
	store     database.Store
	started   time.Time
}

// NewSession creates the Discord session shared by the bot and the notifier
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	return session, nil
}

// New creates a new Discord bot
func New(session *discordgo.Session, cfg *config.Config, engine *roster.Engine, scheduler *alerts.Scheduler, store database.Store) *Bot {
	bot := &Bot{
		session:   session,
		cfg:       cfg,
		engine:    engine,
		scheduler: scheduler,
		store:     store,
		started:   time.Now(),
	}

	// Add event handlers
	session.AddHandler(bot.ready)
	session.AddHandler(bot.messageCreate)

	return bot
}

// Start starts the bot
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}

	log.Info().Str("prefix", b.cfg.Prefix).Msg("bot is running")
	return nil
}

// Stop stops the bot
func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) ready(s *discordgo.Session, r *discordgo.Ready) {
	log.Info().Str("user", r.User.Username).Str("id", r.User.ID).Int("guilds", len(r.Guilds)).Msg("logged in")
}

// messageCreate handles message creation events
func (b *Bot) messageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}

	result := Parse(b.cfg.Prefix, m.Content)
	if result.Ignore {
		return
	}
	if result.Error != "" {
		b.reply(m, result.Error)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	player := models.Player{ID: m.Author.ID, Name: m.Author.Username}
	logger := log.With().Str("guild", m.GuildID).Str("player", player.ID).Int("command", int(result.Command)).Logger()
	logger.Debug().Msg("command received")

	var err error
	switch result.Command {
	case CommandStatus:
		b.handleStatus(ctx, m)
	case CommandConfig:
		err = b.handleConfig(ctx, m, player, result.Config)
	case CommandUnconfig:
		if err = b.engine.Unconfigure(ctx, m.GuildID); err == nil {
			b.react(m, "👋")
		}
	case CommandRegister:
		if err = b.engine.RegisterPlayer(ctx, m.GuildID, player); err == nil {
			b.react(m, "✅")
		}
	case CommandUnregister:
		if err = b.engine.UnregisterPlayer(ctx, m.GuildID, player.ID); err == nil {
			b.react(m, "👋")
		}
	case CommandPlayers:
		err = b.handlePlayers(ctx, m)
	case CommandHelp:
		b.sendEmbed(m.ChannelID, helpEmbed(b.cfg.Prefix))
	case CommandReset:
		if err = b.engine.ResetCycle(ctx, m.GuildID); err == nil {
			b.react(m, "✅")
		}
	case CommandAlert:
		err = b.handleAlert(ctx, m)
	case CommandList:
		err = b.handleList(ctx, m)
	case CommandCancel:
		err = b.handleCancel(ctx, m, player)
	case CommandAccept:
		err = b.handleAccept(ctx, m, player)
	case CommandDecline:
		err = b.handleDecline(ctx, m, player)
	case CommandVoteCancel:
		err = b.handleVoteCancel(ctx, m, player)
	case CommandAlerts:
		err = b.handleAlerts(ctx, m, result.Enable)
	case CommandNext:
		err = b.handleNext(ctx, m)
	}

	if err != nil {
		logger.Warn().Err(err).Str("code", string(apperr.CodeOf(err))).Msg("command failed")
		b.reply(m, userMessage(b.cfg.Prefix, err))
	}
}

// handleStatus reports uptime, build revision, local time and store health
func (b *Bot) handleStatus(ctx context.Context, m *discordgo.MessageCreate) {
	online := true
	if err := b.store.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("database ping failed")
		online = false
	}
	now := time.Now().In(b.cfg.Location())
	b.send(m.ChannelID, statusMessage(utils.FormatUptime(b.started, now), buildRevision(), now, online))
}

// handleConfig stores the schedule with the caller as organizer and the
// current channel as meeting room
func (b *Bot) handleConfig(ctx context.Context, m *discordgo.MessageCreate, player models.Player, args ConfigArgs) error {
	cfg := models.NewGuildConfig(m.GuildID)
	cfg.Organizer = &player
	cfg.MeetingRoomID = m.ChannelID
	cfg.SessionDay = args.SessionDay
	cfg.SessionTime = args.SessionTime
	cfg.FirstAlert = args.FirstAlert
	cfg.SecondAlert = args.SecondAlert

	if previous, err := b.engine.Config(ctx, m.GuildID); err == nil {
		cfg.AlertsEnabled = previous.AlertsEnabled
	}

	vc, err := b.voiceChannel(m.GuildID)
	if err != nil {
		log.Warn().Err(err).Str("guild", m.GuildID).Str("voice_channel", b.cfg.VoiceChannel).Msg("voice channel lookup failed")
	}
	cfg.VoiceChannelID = vc

	if err := b.engine.Configure(ctx, cfg); err != nil {
		return err
	}
	b.send(m.ChannelID, configSavedMessage(cfg))
	return nil
}

// voiceChannel finds the configured session voice channel by name
func (b *Bot) voiceChannel(guildID string) (string, error) {
	if b.cfg.VoiceChannel == "" {
		return "", nil
	}
	channels, err := b.session.GuildChannels(guildID)
	if err != nil {
		return "", err
	}
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildVoice && ch.Name == b.cfg.VoiceChannel {
			return ch.ID, nil
		}
	}
	return "", fmt.Errorf("no voice channel named %q", b.cfg.VoiceChannel)
}

func (b *Bot) handlePlayers(ctx context.Context, m *discordgo.MessageCreate) error {
	players, err := b.engine.Players(ctx, m.GuildID)
	if err != nil {
		return err
	}
	if len(players) == 0 {
		b.send(m.ChannelID, "No players registered!")
		return nil
	}
	b.sendEmbed(m.ChannelID, playersEmbed(players))
	return nil
}

func (b *Bot) handleAlert(ctx context.Context, m *discordgo.MessageCreate) error {
	if err := b.scheduler.Force(ctx); err != nil {
		// Per-guild failures are already logged by the dispatcher
		b.send(m.ChannelID, "Reminder check finished, but some servers could not be notified.")
		return nil
	}
	b.react(m, "✅")
	return nil
}

func (b *Bot) handleList(ctx context.Context, m *discordgo.MessageCreate) error {
	digest, err := b.engine.Lists(ctx, m.GuildID)
	if err != nil {
		return err
	}
	b.sendEmbed(m.ChannelID, listsEmbed(digest))
	return nil
}

func (b *Bot) handleCancel(ctx context.Context, m *discordgo.MessageCreate, player models.Player) error {
	organizer, err := b.engine.IsOrganizer(ctx, m.GuildID, player.ID)
	if err != nil {
		return err
	}
	if !organizer {
		b.reply(m, "Sorry, this is an organizer-only command. Have the organizer run this instead.")
		return nil
	}

	cancelled, err := b.engine.CancelSession(ctx, m.GuildID)
	if err != nil || !cancelled {
		log.Error().Err(err).Str("guild", m.GuildID).Msg("cancel session not confirmed")
		b.reply(m, "Ran into an error cancelling the session. Please try again.")
		return nil
	}
	b.send(m.ChannelID, "The upcoming session has been cancelled!")
	return nil
}

func (b *Bot) handleAccept(ctx context.Context, m *discordgo.MessageCreate, player models.Player) error {
	filled, err := b.engine.AcceptFillsGroup(ctx, m.GuildID, player)
	if err != nil {
		return err
	}
	digest, err := b.engine.Lists(ctx, m.GuildID)
	if err != nil {
		return err
	}
	b.replyEmbed(m, acceptedEmbed(digest.Attendees))

	if filled {
		b.createSessionEvent(ctx, m)
	}
	return nil
}

// createSessionEvent schedules a Discord voice event for the next session
func (b *Bot) createSessionEvent(ctx context.Context, m *discordgo.MessageCreate) {
	cfg, err := b.engine.Config(ctx, m.GuildID)
	if err != nil {
		log.Error().Err(err).Str("guild", m.GuildID).Msg("failed to load config for session event")
		return
	}
	if cfg.VoiceChannelID == "" {
		log.Warn().Str("guild", m.GuildID).Msg("no voice channel configured, skipping session event")
		return
	}
	start, err := b.engine.NextSession(ctx, m.GuildID, time.Now().In(b.cfg.Location()))
	if err != nil {
		log.Error().Err(err).Str("guild", m.GuildID).Msg("failed to compute next session")
		return
	}

	event, err := b.session.GuildScheduledEventCreate(m.GuildID, &discordgo.GuildScheduledEventParams{
		ChannelID:          cfg.VoiceChannelID,
		Name:               fmt.Sprintf("%s Session!", b.cfg.CampaignName),
		Description:        fmt.Sprintf("Regular %s session", b.cfg.CampaignAlias),
		ScheduledStartTime: &start,
		PrivacyLevel:       discordgo.GuildScheduledEventPrivacyLevelGuildOnly,
		EntityType:         discordgo.GuildScheduledEventEntityTypeVoice,
	}, discordgo.WithContext(ctx))
	if err != nil {
		log.Error().Err(err).Str("guild", m.GuildID).Msg("failed to create session event")
		return
	}
	log.Info().Str("guild", m.GuildID).Str("event", event.ID).Time("start", start).Msg("session event created")
	b.send(m.ChannelID, eventCreatedMessage(m.GuildID, event.ID))
}

func (b *Bot) handleDecline(ctx context.Context, m *discordgo.MessageCreate, player models.Player) error {
	if err := b.engine.Decline(ctx, m.GuildID, player); err != nil {
		return err
	}
	digest, err := b.engine.Lists(ctx, m.GuildID)
	if err != nil {
		return err
	}
	b.replyEmbed(m, declinedEmbed(digest.Decliners))
	return nil
}

func (b *Bot) handleVoteCancel(ctx context.Context, m *discordgo.MessageCreate, player models.Player) error {
	if err := b.engine.VoteCancel(ctx, m.GuildID, player); err != nil {
		return err
	}
	digest, err := b.engine.Lists(ctx, m.GuildID)
	if err != nil {
		return err
	}
	b.sendEmbed(m.ChannelID, cancelVoteEmbed(digest.Cancellers))
	return nil
}

func (b *Bot) handleAlerts(ctx context.Context, m *discordgo.MessageCreate, enable bool) error {
	if err := b.engine.SetAlertsEnabled(ctx, m.GuildID, enable); err != nil {
		return err
	}
	state := "off"
	if enable {
		state = "on"
	}
	b.send(m.ChannelID, fmt.Sprintf("Scheduled reminders are now **%s**.", state))
	return nil
}

func (b *Bot) handleNext(ctx context.Context, m *discordgo.MessageCreate) error {
	cancelled, err := b.engine.IsSessionCancelled(ctx, m.GuildID)
	if err != nil {
		return err
	}
	next, err := b.engine.NextSession(ctx, m.GuildID, time.Now().In(b.cfg.Location()))
	if err != nil {
		return err
	}
	b.send(m.ChannelID, nextSessionMessage(b.cfg.CampaignName, next, cancelled))
	return nil
}

func (b *Bot) send(channelID, content string) {
	if _, err := b.session.ChannelMessageSend(channelID, content); err != nil {
		log.Error().Err(err).Str("channel", channelID).Msg("failed to send message")
	}
}

func (b *Bot) sendEmbed(channelID string, embed *discordgo.MessageEmbed) {
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		log.Error().Err(err).Str("channel", channelID).Msg("failed to send embed")
	}
}

func (b *Bot) reply(m *discordgo.MessageCreate, content string) {
	if _, err := b.session.ChannelMessageSendReply(m.ChannelID, content, m.Reference()); err != nil {
		log.Error().Err(err).Str("channel", m.ChannelID).Msg("failed to send reply")
	}
}

func (b *Bot) replyEmbed(m *discordgo.MessageCreate, embed *discordgo.MessageEmbed) {
	_, err := b.session.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Embeds:    []*discordgo.MessageEmbed{embed},
		Reference: m.Reference(),
	})
	if err != nil {
		log.Error().Err(err).Str("channel", m.ChannelID).Msg("failed to send reply")
	}
}

func (b *Bot) react(m *discordgo.MessageCreate, emoji string) {
	if err := b.session.MessageReactionAdd(m.ChannelID, m.ID, emoji); err != nil {
		log.Error().Err(err).Str("channel", m.ChannelID).Msg("failed to add reaction")
	}
}

// buildRevision returns the short VCS revision stamped into the binary.
func buildRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && setting.Value != "" {
			if len(setting.Value) > 7 {
				return setting.Value[:7]
			}
			return setting.Value
		}
	}
	if info.Main.Version != "" {
		return info.Main.Version
	}
	return "unknown"
}
