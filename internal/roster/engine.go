// Package roster implements the per-guild session state machine: player
// registration, RSVPs, cancel votes, group completeness and the cycle reset.
//
// The engine keeps no state of its own. Every operation goes through the
// store, and each store call is atomic on its own; compound operations such
// as an accept followed by a fullness check are not. An RSVP is a single
// move between sets, so a player is never both attending and declining.
package roster

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"rollcall/internal/apperr"
	"rollcall/internal/database"
	"rollcall/internal/models"
	"rollcall/internal/schedule"
)

// Engine applies roster and RSVP operations for any guild
type Engine struct {
	store database.Store
}

// NewEngine creates an engine backed by store
func NewEngine(store database.Store) *Engine {
	return &Engine{store: store}
}

// Config returns the guild's config, NotFound when unconfigured.
func (e *Engine) Config(ctx context.Context, guildID string) (models.GuildConfig, error) {
	cfg, err := e.store.GuildConfig(ctx, guildID)
	if err != nil {
		return models.GuildConfig{}, apperr.Persistence("failed to load guild config", err)
	}
	return cfg, nil
}

// Configure validates and stores a new configuration. A reconfigured guild
// starts a fresh cycle, so the cancel flag is cleared.
func (e *Engine) Configure(ctx context.Context, cfg models.GuildConfig) error {
	if cfg.GuildID == "" {
		return apperr.New(apperr.CodeInvalidArgument, "guild id is required")
	}
	for _, day := range []models.Weekday{cfg.SessionDay, cfg.FirstAlert, cfg.SecondAlert} {
		if !day.Valid() {
			return apperr.New(apperr.CodeInvalidArgument,
				fmt.Sprintf("%d is not a valid index of a weekday, valid values are 0..6", int(day)))
		}
	}
	if err := schedule.CheckAlertDays(cfg.SessionDay, cfg.FirstAlert, cfg.SecondAlert); err != nil {
		return err
	}
	if !cfg.SessionTime.Valid() {
		return apperr.New(apperr.CodeInvalidArgument,
			fmt.Sprintf("%s is not a valid time of day", cfg.SessionTime))
	}
	cfg.CancelSession = false

	if err := e.store.SaveGuildConfig(ctx, cfg); err != nil {
		return apperr.Persistence("failed to save guild config", err)
	}
	log.Info().
		Str("guild", cfg.GuildID).
		Stringer("session_day", cfg.SessionDay).
		Stringer("session_time", cfg.SessionTime).
		Msg("guild configured")
	return nil
}

// Unconfigure deletes the guild's config. Rosters are left alone so
// re-configuring keeps the registered players.
func (e *Engine) Unconfigure(ctx context.Context, guildID string) error {
	log.Info().Str("guild", guildID).Msg("deleting guild config")
	if err := e.store.DeleteGuildConfig(ctx, guildID); err != nil {
		return apperr.Persistence("failed to delete guild config", err)
	}
	return nil
}

// SetAlertsEnabled toggles whether the dispatcher considers the guild.
func (e *Engine) SetAlertsEnabled(ctx context.Context, guildID string, enabled bool) error {
	cfg, err := e.Config(ctx, guildID)
	if err != nil {
		return err
	}
	cfg.AlertsEnabled = enabled
	if err := e.store.SaveGuildConfig(ctx, cfg); err != nil {
		return apperr.Persistence("failed to save guild config", err)
	}
	return nil
}

// RegisterPlayer adds the player to the campaign. Registering twice is not
// an error.
func (e *Engine) RegisterPlayer(ctx context.Context, guildID string, player models.Player) error {
	if player.ID == "" {
		return apperr.New(apperr.CodeInvalidArgument, "player id is required")
	}
	if err := e.store.AddMember(ctx, guildID, models.Players, player); err != nil {
		return apperr.Persistence("failed to register player", err)
	}
	return nil
}

// UnregisterPlayer removes the player from the campaign and from every RSVP
// set.
func (e *Engine) UnregisterPlayer(ctx context.Context, guildID, playerID string) error {
	log.Info().Str("guild", guildID).Str("player", playerID).Msg("unregistering player")
	for _, set := range append([]models.RosterSet{models.Players}, models.RSVPSets...) {
		if err := e.store.RemoveMember(ctx, guildID, set, playerID); err != nil {
			return apperr.Persistence(fmt.Sprintf("failed to remove player from %s", set), err)
		}
	}
	return nil
}

// Players lists the registered players.
func (e *Engine) Players(ctx context.Context, guildID string) ([]models.Player, error) {
	return e.members(ctx, guildID, models.Players)
}

// IsRegistered reports whether playerID is in the campaign.
func (e *Engine) IsRegistered(ctx context.Context, guildID, playerID string) (bool, error) {
	players, err := e.members(ctx, guildID, models.Players)
	if err != nil {
		return false, err
	}
	return containsID(players, playerID), nil
}

// Accept records that the player will attend, replacing a decline.
func (e *Engine) Accept(ctx context.Context, guildID string, player models.Player) error {
	return e.rsvp(ctx, guildID, player, models.Attendees, models.Decliners)
}

// AcceptFillsGroup accepts like Accept and reports whether this accept is
// the one that made the group full. Accepting again once the group is
// already full reports false.
func (e *Engine) AcceptFillsGroup(ctx context.Context, guildID string, player models.Player) (bool, error) {
	wasFull, err := e.IsFullGroup(ctx, guildID)
	if err != nil {
		return false, err
	}
	if err := e.Accept(ctx, guildID, player); err != nil {
		return false, err
	}
	if wasFull {
		return false, nil
	}
	return e.IsFullGroup(ctx, guildID)
}

// Decline records that the player will not attend, replacing an accept.
func (e *Engine) Decline(ctx context.Context, guildID string, player models.Player) error {
	return e.rsvp(ctx, guildID, player, models.Decliners, models.Attendees)
}

func (e *Engine) rsvp(ctx context.Context, guildID string, player models.Player, add, remove models.RosterSet) error {
	if err := e.requireRegistered(ctx, guildID, player.ID); err != nil {
		return err
	}
	cancelled, err := e.IsSessionCancelled(ctx, guildID)
	if err != nil {
		return err
	}
	if cancelled {
		return apperr.New(apperr.CodeSessionCancelled, "the next session has been cancelled")
	}

	if err := e.store.MoveMember(ctx, guildID, remove, add, player); err != nil {
		return apperr.Persistence(fmt.Sprintf("failed to move player to %s", add), err)
	}
	return nil
}

// VoteCancel records a vote to cancel the next session. Only registered
// players may vote; votes are independent of accept and decline.
func (e *Engine) VoteCancel(ctx context.Context, guildID string, player models.Player) error {
	if err := e.requireRegistered(ctx, guildID, player.ID); err != nil {
		return err
	}
	if err := e.store.AddMember(ctx, guildID, models.Cancellers, player); err != nil {
		return apperr.Persistence("failed to record cancel vote", err)
	}
	return nil
}

func (e *Engine) requireRegistered(ctx context.Context, guildID, playerID string) error {
	ok, err := e.IsRegistered(ctx, guildID, playerID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.New(apperr.CodeNotRegistered, fmt.Sprintf("player %s is not registered", playerID))
	}
	return nil
}

// IsFullGroup reports whether every registered player has accepted.
// Decliners and cancel votes never count towards a full group.
func (e *Engine) IsFullGroup(ctx context.Context, guildID string) (bool, error) {
	players, err := e.members(ctx, guildID, models.Players)
	if err != nil {
		return false, err
	}
	attendees, err := e.members(ctx, guildID, models.Attendees)
	if err != nil {
		return false, err
	}
	for _, p := range players {
		if !containsID(attendees, p.ID) {
			return false, nil
		}
	}
	return true, nil
}

// UnansweredPlayers returns the players that have neither accepted nor
// declined. When nobody has answered, the result is the Everyone sentinel.
func (e *Engine) UnansweredPlayers(ctx context.Context, guildID string) (models.Unanswered, error) {
	players, err := e.members(ctx, guildID, models.Players)
	if err != nil {
		return models.Unanswered{}, err
	}
	attendees, err := e.members(ctx, guildID, models.Attendees)
	if err != nil {
		return models.Unanswered{}, err
	}
	decliners, err := e.members(ctx, guildID, models.Decliners)
	if err != nil {
		return models.Unanswered{}, err
	}

	pending := make([]models.Player, 0, len(players))
	for _, p := range players {
		if !containsID(attendees, p.ID) && !containsID(decliners, p.ID) {
			pending = append(pending, p)
		}
	}
	if len(pending) == len(players) {
		return models.Unanswered{Everyone: true}, nil
	}
	return models.Unanswered{Players: pending}, nil
}

// Lists returns the current attendees, decliners and cancellers.
func (e *Engine) Lists(ctx context.Context, guildID string) (models.Digest, error) {
	var (
		digest models.Digest
		err    error
	)
	if digest.Attendees, err = e.members(ctx, guildID, models.Attendees); err != nil {
		return models.Digest{}, err
	}
	if digest.Decliners, err = e.members(ctx, guildID, models.Decliners); err != nil {
		return models.Digest{}, err
	}
	if digest.Cancellers, err = e.members(ctx, guildID, models.Cancellers); err != nil {
		return models.Digest{}, err
	}
	return digest, nil
}

// IsSessionCancelled reports the guild's cancel flag.
func (e *Engine) IsSessionCancelled(ctx context.Context, guildID string) (bool, error) {
	cfg, err := e.Config(ctx, guildID)
	if err != nil {
		return false, err
	}
	return cfg.CancelSession, nil
}

// CancelSession sets the cancel flag and returns the value read back from
// the store.
func (e *Engine) CancelSession(ctx context.Context, guildID string) (bool, error) {
	log.Info().Str("guild", guildID).Msg("cancelling next session")
	if err := e.setCancelFlag(ctx, guildID, true); err != nil {
		return false, err
	}
	return true, nil
}

// ResetCycle clears attendees, decliners and cancellers and the cancel flag
// so the next cycle starts clean.
func (e *Engine) ResetCycle(ctx context.Context, guildID string) error {
	log.Info().Str("guild", guildID).Msg("resetting session cycle")
	if err := e.store.ClearRosters(ctx, guildID); err != nil {
		return apperr.Persistence("failed to clear rosters", err)
	}
	return e.setCancelFlag(ctx, guildID, false)
}

// setCancelFlag saves the flag and confirms it by reading the config back.
func (e *Engine) setCancelFlag(ctx context.Context, guildID string, value bool) error {
	cfg, err := e.Config(ctx, guildID)
	if err != nil {
		return err
	}
	cfg.CancelSession = value
	if err := e.store.SaveGuildConfig(ctx, cfg); err != nil {
		return apperr.Persistence("failed to save cancel flag", err)
	}

	stored, err := e.Config(ctx, guildID)
	if err != nil {
		return err
	}
	if stored.CancelSession != value {
		return apperr.New(apperr.CodePersistenceFailure,
			fmt.Sprintf("cancel flag for guild %s reads %t after saving %t", guildID, stored.CancelSession, value))
	}
	return nil
}

// IsOrganizer reports whether playerID is the configured organizer. A guild
// without an organizer has none, which is not an error.
func (e *Engine) IsOrganizer(ctx context.Context, guildID, playerID string) (bool, error) {
	cfg, err := e.Config(ctx, guildID)
	if err != nil {
		return false, err
	}
	return cfg.Organizer != nil && cfg.Organizer.ID == playerID, nil
}

// NextSession returns the next session start after now.
func (e *Engine) NextSession(ctx context.Context, guildID string, now time.Time) (time.Time, error) {
	cfg, err := e.Config(ctx, guildID)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.NextSessionDateTime(cfg.SessionDay, cfg.SessionTime, now)
}

func (e *Engine) members(ctx context.Context, guildID string, set models.RosterSet) ([]models.Player, error) {
	players, err := e.store.Members(ctx, guildID, set)
	if err != nil {
		return nil, apperr.Persistence(fmt.Sprintf("failed to load %s", set), err)
	}
	return players, nil
}

func containsID(players []models.Player, id string) bool {
	return slices.ContainsFunc(players, func(p models.Player) bool { return p.ID == id })
}
