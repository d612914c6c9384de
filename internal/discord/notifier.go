package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"rollcall/internal/alerts"
	"rollcall/internal/config"
	"rollcall/internal/models"
	"rollcall/internal/schedule"
)

// messenger is the part of *discordgo.Session the notifier needs.
type messenger interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Notifier posts dispatcher output to each guild's meeting room and DMs
// the organizer digest.
type Notifier struct {
	session messenger
	cfg     *config.Config
	now     func() time.Time
}

var _ alerts.Notifier = (*Notifier)(nil)

// NewNotifier creates a notifier sending through session
func NewNotifier(session *discordgo.Session, cfg *config.Config) *Notifier {
	return newNotifier(session, cfg, time.Now)
}

func newNotifier(session messenger, cfg *config.Config, now func() time.Time) *Notifier {
	return &Notifier{session: session, cfg: cfg, now: now}
}

func (n *Notifier) SendFirstAlert(ctx context.Context, cfg models.GuildConfig, unanswered models.Unanswered) error {
	return n.sendAlert(ctx, firstAlert, cfg, unanswered)
}

func (n *Notifier) SendSecondAlert(ctx context.Context, cfg models.GuildConfig, unanswered models.Unanswered) error {
	return n.sendAlert(ctx, secondAlert, cfg, unanswered)
}

func (n *Notifier) sendAlert(ctx context.Context, kind alertKind, cfg models.GuildConfig, unanswered models.Unanswered) error {
	next, err := schedule.NextSessionDateTime(cfg.SessionDay, cfg.SessionTime, n.now().In(n.cfg.Location()))
	if err != nil {
		return err
	}
	msg := alertMessage(kind, n.cfg.CampaignName, n.cfg.Prefix, n.cfg.PlayersMention, next, unanswered)
	return n.send(ctx, cfg.MeetingRoomID, msg)
}

func (n *Notifier) SendCancellationNotice(ctx context.Context, cfg models.GuildConfig) error {
	return n.send(ctx, cfg.MeetingRoomID, cancellationMessage(n.cfg.CampaignName, n.cfg.PlayersMention))
}

func (n *Notifier) SendOrganizerDigest(ctx context.Context, cfg models.GuildConfig, digest models.Digest) error {
	if cfg.Organizer == nil {
		return fmt.Errorf("guild %s has no organizer", cfg.GuildID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	channel, err := n.session.UserChannelCreate(cfg.Organizer.ID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM with %s: %w", cfg.Organizer.ID, err)
	}
	msg := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{digestEmbed(n.cfg.CampaignName, cfg, digest)}}
	return n.send(ctx, channel.ID, msg)
}

func (n *Notifier) send(ctx context.Context, channelID string, msg *discordgo.MessageSend) error {
	if channelID == "" {
		return fmt.Errorf("no channel to send to")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := n.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send message to %s: %w", channelID, err)
	}
	return nil
}
