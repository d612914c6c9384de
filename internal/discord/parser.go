package discord

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"rollcall/internal/models"
	"rollcall/internal/schedule"
)

// Command identifies a parsed chat command
type Command int

const (
	CommandNone Command = iota
	CommandStatus
	CommandConfig
	CommandUnconfig
	CommandRegister
	CommandUnregister
	CommandPlayers
	CommandHelp
	CommandReset
	CommandAlert
	CommandList
	CommandCancel
	CommandAccept
	CommandDecline
	CommandVoteCancel
	CommandAlerts
	CommandNext
)

// ConfigArgs are the arguments of the config command
type ConfigArgs struct {
	SessionDay  models.Weekday
	SessionTime models.TimeOfDay
	FirstAlert  models.Weekday
	SecondAlert models.Weekday
}

// ParseResult is the outcome of parsing one message. Ignore is set for
// messages not addressed to the bot; Error holds a user-facing message when
// the command was addressed to the bot but is malformed.
type ParseResult struct {
	Command Command
	Config  ConfigArgs
	Enable  bool
	Ignore  bool
	Error   string
}

// Parse reads a message of the form <prefix><command> [args...].
func Parse(prefix, message string) ParseResult {
	message = strings.TrimSpace(message)
	if prefix == "" || !strings.HasPrefix(message, prefix) {
		return ParseResult{Ignore: true}
	}

	words := strings.Fields(message[len(prefix):])
	if len(words) == 0 {
		return ParseResult{Ignore: true}
	}
	name := strings.ToLower(words[0])
	args := words[1:]

	switch name {
	case "status":
		return ParseResult{Command: CommandStatus}
	case "config":
		return parseConfig(prefix, args)
	case "unconfig":
		return ParseResult{Command: CommandUnconfig}
	case "register":
		return ParseResult{Command: CommandRegister}
	case "unregister":
		return ParseResult{Command: CommandUnregister}
	case "players":
		return ParseResult{Command: CommandPlayers}
	case "cmds", "help":
		return ParseResult{Command: CommandHelp}
	case "reset":
		return ParseResult{Command: CommandReset}
	case "alert":
		return ParseResult{Command: CommandAlert}
	case "list":
		return ParseResult{Command: CommandList}
	case "cancel":
		return ParseResult{Command: CommandCancel}
	case "next":
		return ParseResult{Command: CommandNext}
	case "rsvp":
		if len(args) == 1 {
			switch strings.ToLower(args[0]) {
			case "accept":
				return ParseResult{Command: CommandAccept}
			case "decline":
				return ParseResult{Command: CommandDecline}
			}
		}
		return ParseResult{Error: fmt.Sprintf("Please use either `%[1]srsvp accept` or `%[1]srsvp decline`.", prefix)}
	case "vote":
		if len(args) == 1 && strings.ToLower(args[0]) == "cancel" {
			return ParseResult{Command: CommandVoteCancel}
		}
		return ParseResult{Error: fmt.Sprintf("Please `%svote cancel`.", prefix)}
	case "alerts":
		if len(args) == 1 {
			switch strings.ToLower(args[0]) {
			case "on":
				return ParseResult{Command: CommandAlerts, Enable: true}
			case "off":
				return ParseResult{Command: CommandAlerts, Enable: false}
			}
		}
		return ParseResult{Error: fmt.Sprintf("Please use either `%[1]salerts on` or `%[1]salerts off`.", prefix)}
	default:
		log.Debug().Str("command", name).Msg("unknown command")
		return ParseResult{Error: fmt.Sprintf("Command `%s` not recognised, try `%scmds`.", name, prefix)}
	}
}

// parseConfig reads <session-day> <HH:MM> <first-alert> <second-alert>.
func parseConfig(prefix string, args []string) ParseResult {
	usage := fmt.Sprintf("Usage: `%sconfig <session-day> <HH:MM> <first-alert-day> <second-alert-day>`, e.g. `%sconfig fri 19:30 mon wed`", prefix, prefix)
	if len(args) != 4 {
		return ParseResult{Error: usage}
	}

	var (
		cfg ConfigArgs
		err error
	)
	if cfg.SessionDay, err = schedule.ParseWeekday(args[0]); err != nil {
		return ParseResult{Error: fmt.Sprintf("Session day: %v\n%s", err, usage)}
	}
	if cfg.SessionTime, err = schedule.ParseTimeOfDay(args[1]); err != nil {
		return ParseResult{Error: fmt.Sprintf("Session time: %v\n%s", err, usage)}
	}
	if cfg.FirstAlert, err = schedule.ParseWeekday(args[2]); err != nil {
		return ParseResult{Error: fmt.Sprintf("First alert: %v\n%s", err, usage)}
	}
	if cfg.SecondAlert, err = schedule.ParseWeekday(args[3]); err != nil {
		return ParseResult{Error: fmt.Sprintf("Second alert: %v\n%s", err, usage)}
	}
	if err := schedule.CheckAlertDays(cfg.SessionDay, cfg.FirstAlert, cfg.SecondAlert); err != nil {
		return ParseResult{Error: fmt.Sprintf("%v\n%s", err, usage)}
	}
	return ParseResult{Command: CommandConfig, Config: cfg}
}
