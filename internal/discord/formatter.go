package discord

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"rollcall/internal/apperr"
	"rollcall/internal/models"
	"rollcall/pkg/utils"
)

const color = 0x7b2d26

// Discord rejects embed field values longer than this.
const maxFieldValue = 1024

const sessionTimeLayout = "Monday, January 2 at 15:04 MST"

func field(name, value string) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: utils.TruncateString(value, maxFieldValue)}
}

var commandHelp = []struct {
	usage       string
	description string
}{
	{"register", "Join the campaign"},
	{"unregister", "Leave the campaign"},
	{"rsvp accept", "Confirm you are coming to the next session"},
	{"rsvp decline", "Let everyone know you can't make the next session"},
	{"vote cancel", "Vote to cancel the next session"},
	{"list", "Show who accepted, declined or voted to cancel"},
	{"players", "Show the registered players"},
	{"next", "Show when the next session is"},
	{"config <day> <HH:MM> <first-alert> <second-alert>", "Configure the session schedule in this channel, you become the organizer"},
	{"unconfig", "Remove the session schedule"},
	{"cancel", "Cancel the next session (organizer only)"},
	{"reset", "Clear every RSVP and the cancellation"},
	{"alert", "Run the reminder check now"},
	{"alerts on|off", "Turn scheduled reminders on or off"},
	{"status", "Show uptime, version and database health"},
	{"cmds", "Show this message"},
}

func helpEmbed(prefix string) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Title: "Available Commands", Color: color}
	for _, cmd := range commandHelp {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("`%s%s`", prefix, cmd.usage),
			Value: cmd.description,
		})
	}
	return embed
}

func playersEmbed(players []models.Player) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Title: "Registered Players", Color: color}
	for _, p := range players {
		embed.Fields = append(embed.Fields, field(p.Name, "ID: "+p.ID))
	}
	return embed
}

func listsEmbed(digest models.Digest) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Lists",
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			field("Accepted", utils.PlayerNames(digest.Attendees)),
			field("Declined", utils.PlayerNames(digest.Decliners)),
			field("Cancelled", utils.PlayerNames(digest.Cancellers)),
		},
	}
}

func acceptedEmbed(attendees []models.Player) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			field("Accepted", "Thanks for confirming!"),
			field("Attendees", utils.PlayerNames(attendees)),
		},
	}
}

func declinedEmbed(decliners []models.Player) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			field("Declined", "No problem, see you next time!"),
			field("Those that have declined", utils.PlayerNames(decliners)),
		},
	}
}

func cancelVoteEmbed(cancellers []models.Player) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			field("Cancelling", "You've voted to cancel this week."),
			field("Others that have cancelled", utils.PlayerNames(cancellers)),
		},
	}
}

func statusMessage(uptime, revision string, now time.Time, dbOnline bool) string {
	db := "online"
	if !dbOnline {
		db = "offline"
	}
	return fmt.Sprintf("Up for **%s** on `%s`. Time is %s %s. Database is **%s**.",
		uptime, revision, now.Format("15:04:05"), now.Format("MST"), db)
}

func configSavedMessage(cfg models.GuildConfig) string {
	return fmt.Sprintf("Config saved! Sessions are on **%s at %s**, reminders go out on %s and %s in %s.",
		cfg.SessionDay, cfg.SessionTime, cfg.FirstAlert, cfg.SecondAlert, utils.FormatChannelMention(cfg.MeetingRoomID))
}

func nextSessionMessage(campaign string, next time.Time, cancelled bool) string {
	if cancelled {
		return fmt.Sprintf("The upcoming %s session has been cancelled.", campaign)
	}
	return fmt.Sprintf("The next %s session is on **%s**.", campaign, next.Format(sessionTimeLayout))
}

// alertKind selects the wording of a reminder.
type alertKind int

const (
	firstAlert alertKind = iota
	secondAlert
)

func alertMessage(kind alertKind, campaign, prefix, everyone string, next time.Time, unanswered models.Unanswered) *discordgo.MessageSend {
	mention := everyone
	if !unanswered.Everyone {
		mention = utils.PlayerMentions(unanswered.Players)
	}

	title := fmt.Sprintf("%s session on %s", campaign, next.Format(sessionTimeLayout))
	description := fmt.Sprintf("Are you coming? Reply with `%[1]srsvp accept` or `%[1]srsvp decline`.", prefix)
	if kind == secondAlert {
		title = "Last call: " + title
		description = fmt.Sprintf("Still waiting to hear from you! `%[1]srsvp accept` or `%[1]srsvp decline` please.", prefix)
	}
	return &discordgo.MessageSend{
		Content: mention,
		Embeds:  []*discordgo.MessageEmbed{{Title: title, Description: description, Color: color}},
	}
}

func cancellationMessage(campaign, everyone string) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content: everyone,
		Embeds: []*discordgo.MessageEmbed{{
			Title:       "Session cancelled",
			Description: fmt.Sprintf("The upcoming %s session has been cancelled. See you next time!", campaign),
			Color:       color,
		}},
	}
}

func digestEmbed(campaign string, cfg models.GuildConfig, digest models.Digest) *discordgo.MessageEmbed {
	embed := listsEmbed(digest)
	embed.Title = fmt.Sprintf("%s session today at %s", campaign, cfg.SessionTime)
	return embed
}

func eventCreatedMessage(guildID, eventID string) string {
	return fmt.Sprintf("All players have confirmed attendance, so I've automatically created an event: https://discord.com/events/%s/%s", guildID, eventID)
}

// userMessage turns an error from the roster engine into a reply.
func userMessage(prefix string, err error) string {
	var appErr *apperr.Error
	switch {
	case errors.Is(err, apperr.ErrNotRegistered):
		return fmt.Sprintf("You are not a registered player in this campaign, so you can not do that. Use `%sregister` first.", prefix)
	case errors.Is(err, apperr.ErrSessionCancelled):
		return "The upcoming session has been cancelled, so no need to RSVP."
	case errors.Is(err, apperr.ErrNotFound):
		return fmt.Sprintf("This server has no session schedule yet. Set one up with `%sconfig`.", prefix)
	case errors.Is(err, apperr.ErrInvalidArgument) && errors.As(err, &appErr):
		return fmt.Sprintf("Input not valid:\n> %s", appErr.Message)
	case errors.Is(err, apperr.ErrPersistenceFailure):
		return "Ran into an error talking to the database. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
