package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"rollcall/internal/alerts"
	"rollcall/internal/config"
	"rollcall/internal/database"
	"rollcall/internal/discord"
	"rollcall/internal/logging"
	"rollcall/internal/roster"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("bot exited")
	}
}

// run owns every resource it opens, so deferred cleanup happens before main
// exits on an error.
func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logging.Setup(cfg.LogLevel, cfg.LogPretty); err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	// Initialize storage
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize %s store: %w", cfg.StoreDriver, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close store")
		}
	}()

	engine := roster.NewEngine(store)

	// Initialize Discord session, dispatcher and bot
	session, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create Discord session: %w", err)
	}
	notifier := discord.NewNotifier(session, cfg)
	dispatcher := alerts.NewDispatcher(store, engine, notifier, cfg.AlertHour, cfg.Location())
	scheduler := alerts.NewScheduler(dispatcher, cfg.AlertInterval)
	bot := discord.New(session, cfg, engine, scheduler, store)

	// Start bot
	if err := bot.Start(); err != nil {
		return fmt.Errorf("failed to start bot: %w", err)
	}
	defer bot.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("alert scheduler stopped")
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	log.Info().Msg("shutting down bot")
	<-done
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		return database.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.StoreMemory:
		log.Warn().Msg("using in-memory store, nothing will survive a restart")
		return database.NewMemoryStore(), nil
	default:
		db, err := database.New(cfg.StoreDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return database.NewRepository(db), nil
	}
}
