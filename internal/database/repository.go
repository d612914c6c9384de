package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rollcall/internal/models"
	"rollcall/internal/schedule"
)

// Repository is the SQL-backed Store
type Repository struct {
	db *DB
}

var _ Store = (*Repository)(nil)

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// configRow mirrors a guild_configs row
type configRow struct {
	GuildID       string         `db:"guild_id"`
	VCID          string         `db:"vc_id"`
	SessionDMID   sql.NullString `db:"session_dm_id"`
	SessionDMName sql.NullString `db:"session_dm_name"`
	SessionDay    int            `db:"session_day"`
	SessionTime   string         `db:"session_time"`
	MeetingRoom   string         `db:"meeting_room"`
	FirstAlert    int            `db:"first_alert"`
	SecondAlert   int            `db:"second_alert"`
	Alerts        bool           `db:"alerts"`
	CancelSession bool           `db:"cancel_session"`
}

const configColumns = `guild_id, vc_id, session_dm_id, session_dm_name, session_day, session_time,
	meeting_room, first_alert, second_alert, alerts, cancel_session`

var fieldColumns = map[models.ConfigField]string{
	models.FieldFirstAlert:  "first_alert",
	models.FieldSecondAlert: "second_alert",
	models.FieldSessionDay:  "session_day",
}

func (r configRow) toModel() (models.GuildConfig, error) {
	tod, err := schedule.ParseTimeOfDay(r.SessionTime)
	if err != nil {
		return models.GuildConfig{}, fmt.Errorf("guild %s session time: %w", r.GuildID, err)
	}
	cfg := models.GuildConfig{
		GuildID:        r.GuildID,
		VoiceChannelID: r.VCID,
		SessionDay:     models.Weekday(r.SessionDay),
		SessionTime:    tod,
		MeetingRoomID:  r.MeetingRoom,
		FirstAlert:     models.Weekday(r.FirstAlert),
		SecondAlert:    models.Weekday(r.SecondAlert),
		AlertsEnabled:  r.Alerts,
		CancelSession:  r.CancelSession,
	}
	if r.SessionDMID.Valid && r.SessionDMID.String != "" {
		cfg.Organizer = &models.Player{ID: r.SessionDMID.String, Name: r.SessionDMName.String}
	}
	return cfg, nil
}

func rowFromModel(cfg models.GuildConfig) configRow {
	row := configRow{
		GuildID:       cfg.GuildID,
		VCID:          cfg.VoiceChannelID,
		SessionDay:    int(cfg.SessionDay),
		SessionTime:   cfg.SessionTime.String(),
		MeetingRoom:   cfg.MeetingRoomID,
		FirstAlert:    int(cfg.FirstAlert),
		SecondAlert:   int(cfg.SecondAlert),
		Alerts:        cfg.AlertsEnabled,
		CancelSession: cfg.CancelSession,
	}
	if cfg.Organizer != nil {
		row.SessionDMID = sql.NullString{String: cfg.Organizer.ID, Valid: true}
		row.SessionDMName = sql.NullString{String: cfg.Organizer.Name, Valid: true}
	}
	return row
}

// GuildConfig gets the config for a guild
func (r *Repository) GuildConfig(ctx context.Context, guildID string) (models.GuildConfig, error) {
	var row configRow
	query := r.db.conn.Rebind(`SELECT ` + configColumns + ` FROM guild_configs WHERE guild_id = ?`)
	if err := r.db.conn.GetContext(ctx, &row, query, guildID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.GuildConfig{}, notFound(guildID)
		}
		return models.GuildConfig{}, fmt.Errorf("failed to get guild config: %w", err)
	}
	return row.toModel()
}

// SaveGuildConfig inserts or replaces the config for a guild
func (r *Repository) SaveGuildConfig(ctx context.Context, cfg models.GuildConfig) error {
	row := rowFromModel(cfg)
	query := r.db.conn.Rebind(`
		INSERT INTO guild_configs (` + configColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (guild_id) DO UPDATE SET
			vc_id = excluded.vc_id,
			session_dm_id = excluded.session_dm_id,
			session_dm_name = excluded.session_dm_name,
			session_day = excluded.session_day,
			session_time = excluded.session_time,
			meeting_room = excluded.meeting_room,
			first_alert = excluded.first_alert,
			second_alert = excluded.second_alert,
			alerts = excluded.alerts,
			cancel_session = excluded.cancel_session`)
	_, err := r.db.conn.ExecContext(ctx, query,
		row.GuildID, row.VCID, row.SessionDMID, row.SessionDMName, row.SessionDay, row.SessionTime,
		row.MeetingRoom, row.FirstAlert, row.SecondAlert, row.Alerts, row.CancelSession)
	if err != nil {
		return fmt.Errorf("failed to save guild config: %w", err)
	}
	return nil
}

// DeleteGuildConfig deletes the config for a guild
func (r *Repository) DeleteGuildConfig(ctx context.Context, guildID string) error {
	res, err := r.db.conn.ExecContext(ctx, r.db.conn.Rebind(`DELETE FROM guild_configs WHERE guild_id = ?`), guildID)
	if err != nil {
		return fmt.Errorf("failed to delete guild config: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete guild config: %w", err)
	}
	if n == 0 {
		return notFound(guildID)
	}
	return nil
}

// ConfigsWhere gets every config whose weekday field matches value
func (r *Repository) ConfigsWhere(ctx context.Context, field models.ConfigField, value models.Weekday) ([]models.GuildConfig, error) {
	if err := checkField(field); err != nil {
		return nil, err
	}
	query := r.db.conn.Rebind(`SELECT ` + configColumns + ` FROM guild_configs WHERE ` +
		fieldColumns[field] + ` = ? ORDER BY guild_id`)

	var rows []configRow
	if err := r.db.conn.SelectContext(ctx, &rows, query, int(value)); err != nil {
		return nil, fmt.Errorf("failed to get configs by %s: %w", field, err)
	}

	configs := make([]models.GuildConfig, 0, len(rows))
	for _, row := range rows {
		cfg, err := row.toModel()
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// memberRow mirrors a roster_members row
type memberRow struct {
	UserID   string `db:"user_id"`
	UserName string `db:"user_name"`
}

// Members gets the players in a roster set
func (r *Repository) Members(ctx context.Context, guildID string, set models.RosterSet) ([]models.Player, error) {
	if err := checkSet(set); err != nil {
		return nil, err
	}
	query := r.db.conn.Rebind(`
		SELECT user_id, user_name FROM roster_members
		WHERE guild_id = ? AND roster = ?
		ORDER BY joined_at, user_id`)

	var rows []memberRow
	if err := r.db.conn.SelectContext(ctx, &rows, query, guildID, string(set)); err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", set, err)
	}

	players := make([]models.Player, 0, len(rows))
	for _, row := range rows {
		players = append(players, models.Player{ID: row.UserID, Name: row.UserName})
	}
	return players, nil
}

// AddMember adds a player to a roster set
func (r *Repository) AddMember(ctx context.Context, guildID string, set models.RosterSet, player models.Player) error {
	if err := checkSet(set); err != nil {
		return err
	}
	query := r.db.conn.Rebind(`
		INSERT INTO roster_members (guild_id, roster, user_id, user_name, joined_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (guild_id, roster, user_id) DO NOTHING`)
	_, err := r.db.conn.ExecContext(ctx, query, guildID, string(set), player.ID, player.Name, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to add to %s: %w", set, err)
	}
	return nil
}

// RemoveMember removes a player from a roster set
func (r *Repository) RemoveMember(ctx context.Context, guildID string, set models.RosterSet, playerID string) error {
	if err := checkSet(set); err != nil {
		return err
	}
	query := r.db.conn.Rebind(`DELETE FROM roster_members WHERE guild_id = ? AND roster = ? AND user_id = ?`)
	if _, err := r.db.conn.ExecContext(ctx, query, guildID, string(set), playerID); err != nil {
		return fmt.Errorf("failed to remove from %s: %w", set, err)
	}
	return nil
}

// MoveMember moves a player between roster sets in one transaction
func (r *Repository) MoveMember(ctx context.Context, guildID string, from, to models.RosterSet, player models.Player) error {
	if err := checkSet(from); err != nil {
		return err
	}
	if err := checkSet(to); err != nil {
		return err
	}
	tx, err := r.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	remove := tx.Rebind(`DELETE FROM roster_members WHERE guild_id = ? AND roster = ? AND user_id = ?`)
	if _, err := tx.ExecContext(ctx, remove, guildID, string(from), player.ID); err != nil {
		return fmt.Errorf("failed to remove from %s: %w", from, err)
	}
	add := tx.Rebind(`
		INSERT INTO roster_members (guild_id, roster, user_id, user_name, joined_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (guild_id, roster, user_id) DO NOTHING`)
	if _, err := tx.ExecContext(ctx, add, guildID, string(to), player.ID, player.Name, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("failed to add to %s: %w", to, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit move to %s: %w", to, err)
	}
	return nil
}

// ClearRosters deletes attendees, decliners and cancellers for a guild
func (r *Repository) ClearRosters(ctx context.Context, guildID string) error {
	query := r.db.conn.Rebind(`DELETE FROM roster_members WHERE guild_id = ? AND roster IN (?, ?, ?)`)
	_, err := r.db.conn.ExecContext(ctx, query, guildID,
		string(models.Attendees), string(models.Decliners), string(models.Cancellers))
	if err != nil {
		return fmt.Errorf("failed to clear rosters: %w", err)
	}
	return nil
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// Close closes the underlying database
func (r *Repository) Close() error {
	return r.db.Close()
}
