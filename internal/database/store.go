package database

import (
	"context"
	"fmt"

	"rollcall/internal/apperr"
	"rollcall/internal/models"
)

// Store persists per-guild configuration and roster sets. Every method is a
// single atomic operation in the backing store; callers must not assume two
// calls are atomic together.
type Store interface {
	// GuildConfig returns the guild's config or an apperr NotFound error.
	GuildConfig(ctx context.Context, guildID string) (models.GuildConfig, error)
	// SaveGuildConfig inserts or replaces the config keyed by its guild id.
	SaveGuildConfig(ctx context.Context, cfg models.GuildConfig) error
	// DeleteGuildConfig removes the config, NotFound when there was none.
	DeleteGuildConfig(ctx context.Context, guildID string) error
	// ConfigsWhere lists every config whose weekday field equals value.
	ConfigsWhere(ctx context.Context, field models.ConfigField, value models.Weekday) ([]models.GuildConfig, error)

	// Members lists a roster set in insertion order.
	Members(ctx context.Context, guildID string, set models.RosterSet) ([]models.Player, error)
	// AddMember adds the player to the set unless a player with the same id
	// is already present.
	AddMember(ctx context.Context, guildID string, set models.RosterSet, player models.Player) error
	// RemoveMember removes the player id from the set; absent ids are a no-op.
	RemoveMember(ctx context.Context, guildID string, set models.RosterSet, playerID string) error
	// MoveMember removes the player from one set and adds it to another. A
	// failure must never leave the player in both sets.
	MoveMember(ctx context.Context, guildID string, from, to models.RosterSet, player models.Player) error
	// ClearRosters empties attendees, decliners and cancellers.
	ClearRosters(ctx context.Context, guildID string) error

	Ping(ctx context.Context) error
	Close() error
}

func notFound(guildID string) error {
	return apperr.New(apperr.CodeNotFound, fmt.Sprintf("guild %s has no config", guildID))
}

func checkSet(set models.RosterSet) error {
	if !set.Valid() {
		return apperr.New(apperr.CodeInvalidArgument, fmt.Sprintf("unknown roster set %q", set))
	}
	return nil
}

func checkField(field models.ConfigField) error {
	if !field.Valid() {
		return apperr.New(apperr.CodeInvalidArgument, fmt.Sprintf("unknown config field %q", field))
	}
	return nil
}
