// Package alerts decides, once per tick, which reminders, cancellation
// notices, organizer digests and cycle resets are due for every configured
// guild.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"rollcall/internal/apperr"
	"rollcall/internal/database"
	"rollcall/internal/models"
	"rollcall/internal/roster"
	"rollcall/internal/schedule"
)

// Notifier delivers dispatcher output to the chat platform.
type Notifier interface {
	SendFirstAlert(ctx context.Context, cfg models.GuildConfig, unanswered models.Unanswered) error
	SendSecondAlert(ctx context.Context, cfg models.GuildConfig, unanswered models.Unanswered) error
	SendCancellationNotice(ctx context.Context, cfg models.GuildConfig) error
	SendOrganizerDigest(ctx context.Context, cfg models.GuildConfig, digest models.Digest) error
}

// Dispatcher evaluates every guild's configuration against the current day.
type Dispatcher struct {
	store     database.Store
	engine    *roster.Engine
	notifier  Notifier
	alertHour int
	loc       *time.Location
	now       func() time.Time
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithClock replaces time.Now as the dispatcher's time source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// NewDispatcher creates a dispatcher that fires at alertHour in loc.
func NewDispatcher(store database.Store, engine *roster.Engine, notifier Notifier, alertHour int, loc *time.Location, opts ...Option) *Dispatcher {
	if loc == nil {
		loc = time.UTC
	}
	d := &Dispatcher{
		store:     store,
		engine:    engine,
		notifier:  notifier,
		alertHour: alertHour,
		loc:       loc,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Now returns the dispatcher's current time in the campaign location.
func (d *Dispatcher) Now() time.Time {
	return d.now().In(d.loc)
}

// Dispatch runs one pass. Unless force is set, the pass only does work when
// the current hour is the alert hour. Failures are isolated per guild and
// returned joined once every guild has been processed.
func (d *Dispatcher) Dispatch(ctx context.Context, force bool) error {
	return d.dispatchAt(ctx, d.Now(), force)
}

type alertKind struct {
	field models.ConfigField
	name  string
	send  func(n Notifier, ctx context.Context, cfg models.GuildConfig, u models.Unanswered) error
}

var alertKinds = []alertKind{
	{field: models.FieldFirstAlert, name: "first", send: Notifier.SendFirstAlert},
	{field: models.FieldSecondAlert, name: "second", send: Notifier.SendSecondAlert},
}

func (d *Dispatcher) dispatchAt(ctx context.Context, now time.Time, force bool) error {
	now = now.In(d.loc)
	if !force && now.Hour() != d.alertHour {
		log.Debug().Int("hour", now.Hour()).Int("alert_hour", d.alertHour).Msg("not alert hour, skipping")
		return nil
	}

	today := schedule.WeekdayOf(now)
	dayBefore, _, err := schedule.AdjacentDays(today)
	if err != nil {
		return err
	}

	logger := log.With().Str("tick", uuid.NewString()).Stringer("today", today).Bool("forced", force).Logger()
	logger.Info().Msg("alert pass started")

	var (
		errs []error
		done = make(map[string]bool)
	)
	fail := func(guildID, step string, err error) {
		logger.Error().Err(err).Str("guild", guildID).Str("step", step).Msg("guild failed")
		errs = append(errs, fmt.Errorf("guild %s %s: %w", guildID, step, err))
	}

	for _, kind := range alertKinds {
		configs, err := d.enabledConfigs(ctx, kind.field, today)
		if err != nil {
			fail("*", kind.name+" alert lookup", err)
			continue
		}
		for _, cfg := range configs {
			if done[cfg.GuildID] {
				continue
			}
			handled, err := d.alert(ctx, logger, cfg, kind)
			if handled {
				done[cfg.GuildID] = true
			}
			if err != nil {
				fail(cfg.GuildID, kind.name+" alert", err)
			}
		}
	}

	configs, err := d.enabledConfigs(ctx, models.FieldSessionDay, today)
	if err != nil {
		fail("*", "digest lookup", err)
	}
	for _, cfg := range configs {
		if done[cfg.GuildID] || cfg.CancelSession {
			continue
		}
		if err := d.digest(ctx, logger, cfg); err != nil {
			fail(cfg.GuildID, "digest", err)
		}
	}

	configs, err = d.enabledConfigs(ctx, models.FieldSessionDay, dayBefore)
	if err != nil {
		fail("*", "reset lookup", err)
	}
	for _, cfg := range configs {
		if done[cfg.GuildID] {
			continue
		}
		if err := d.engine.ResetCycle(ctx, cfg.GuildID); err != nil {
			fail(cfg.GuildID, "reset", err)
		}
	}

	logger.Info().Int("errors", len(errs)).Msg("alert pass finished")
	return errors.Join(errs...)
}

// alert runs one alert category for a guild. handled reports whether the
// guild took the cancelled or not-full branch, which ends its processing
// for the tick.
func (d *Dispatcher) alert(ctx context.Context, logger zerolog.Logger, cfg models.GuildConfig, kind alertKind) (handled bool, err error) {
	if cfg.CancelSession {
		logger.Info().Str("guild", cfg.GuildID).Msg("sending cancellation notice")
		if err := d.notifier.SendCancellationNotice(ctx, cfg); err != nil {
			return true, notifyFailure("cancellation notice", err)
		}
		return true, nil
	}

	full, err := d.engine.IsFullGroup(ctx, cfg.GuildID)
	if err != nil {
		return false, err
	}
	if full {
		logger.Debug().Str("guild", cfg.GuildID).Str("alert", kind.name).Msg("group is full, no alert needed")
		return false, nil
	}

	unanswered, err := d.engine.UnansweredPlayers(ctx, cfg.GuildID)
	if err != nil {
		return false, err
	}
	logger.Info().
		Str("guild", cfg.GuildID).
		Str("alert", kind.name).
		Bool("everyone", unanswered.Everyone).
		Int("unanswered", len(unanswered.Players)).
		Msg("sending alert")
	if err := kind.send(d.notifier, ctx, cfg, unanswered); err != nil {
		return true, notifyFailure(kind.name+" alert", err)
	}
	return true, nil
}

func (d *Dispatcher) digest(ctx context.Context, logger zerolog.Logger, cfg models.GuildConfig) error {
	if cfg.Organizer == nil {
		logger.Warn().Str("guild", cfg.GuildID).Msg("no organizer configured, skipping digest")
		return nil
	}
	digest, err := d.engine.Lists(ctx, cfg.GuildID)
	if err != nil {
		return err
	}
	logger.Info().Str("guild", cfg.GuildID).Str("organizer", cfg.Organizer.ID).Msg("sending organizer digest")
	if err := d.notifier.SendOrganizerDigest(ctx, cfg, digest); err != nil {
		return notifyFailure("organizer digest", err)
	}
	return nil
}

// enabledConfigs lists the configs whose field matches day and whose alerts
// are switched on.
func (d *Dispatcher) enabledConfigs(ctx context.Context, field models.ConfigField, day models.Weekday) ([]models.GuildConfig, error) {
	configs, err := d.store.ConfigsWhere(ctx, field, day)
	if err != nil {
		return nil, apperr.Persistence(fmt.Sprintf("failed to list configs by %s", field), err)
	}
	enabled := configs[:0]
	for _, cfg := range configs {
		if cfg.AlertsEnabled {
			enabled = append(enabled, cfg)
		}
	}
	return enabled, nil
}

func notifyFailure(what string, err error) error {
	return apperr.Wrap(apperr.CodeNotifyFailure, "failed to send "+what, err)
}
