package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"

	"rollcall/internal/apperr"
	"rollcall/internal/models"
)

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return openSQLiteStore(t) })
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	runStoreContract(t, func(t *testing.T) Store {
		db, err := New(DriverPostgres, dsn)
		if err != nil {
			t.Fatalf("open postgres: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		return NewRepository(db)
	})
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	runStoreContract(t, func(t *testing.T) Store {
		store, err := OpenMongo(context.Background(), uri, "rollcall_test")
		if err != nil {
			t.Fatalf("open mongo: %v", err)
		}
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	if _, err := New("mysql", "whatever"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestSQLiteStoreReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rollcall.db")
	ctx := context.Background()

	db, err := New(DriverSQLite, path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo := NewRepository(db)
	if err := repo.SaveGuildConfig(ctx, sampleConfig("g1")); err != nil {
		t.Fatalf("save config: %v", err)
	}
	if err := repo.AddMember(ctx, "g1", models.Players, models.Player{ID: "1", Name: "ana"}); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Migrations must be re-runnable against an existing schema.
	db, err = New(DriverSQLite, path)
	if err != nil {
		t.Fatalf("reopen sqlite: %v", err)
	}
	repo = NewRepository(db)
	defer repo.Close()

	if _, err := repo.GuildConfig(ctx, "g1"); err != nil {
		t.Fatalf("config after reopen: %v", err)
	}
	players, err := repo.Members(ctx, "g1", models.Players)
	if err != nil {
		t.Fatalf("members after reopen: %v", err)
	}
	if len(players) != 1 || players[0].ID != "1" {
		t.Fatalf("players = %+v, want [1]", players)
	}
}

func runStoreContract(t *testing.T, open func(t *testing.T) Store) {
	t.Run("config round trip", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		guild := uuid.NewString()

		if _, err := store.GuildConfig(ctx, guild); !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("GuildConfig() on empty store error = %v, want not found", err)
		}

		want := sampleConfig(guild)
		if err := store.SaveGuildConfig(ctx, want); err != nil {
			t.Fatalf("SaveGuildConfig() error = %v", err)
		}
		got, err := store.GuildConfig(ctx, guild)
		if err != nil {
			t.Fatalf("GuildConfig() error = %v", err)
		}
		assertConfigEqual(t, got, want)

		// Saving again replaces rather than duplicating.
		want.CancelSession = true
		want.AlertsEnabled = false
		want.Organizer = nil
		if err := store.SaveGuildConfig(ctx, want); err != nil {
			t.Fatalf("SaveGuildConfig() update error = %v", err)
		}
		got, err = store.GuildConfig(ctx, guild)
		if err != nil {
			t.Fatalf("GuildConfig() after update error = %v", err)
		}
		assertConfigEqual(t, got, want)

		if err := store.DeleteGuildConfig(ctx, guild); err != nil {
			t.Fatalf("DeleteGuildConfig() error = %v", err)
		}
		if _, err := store.GuildConfig(ctx, guild); !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("GuildConfig() after delete error = %v, want not found", err)
		}
		if err := store.DeleteGuildConfig(ctx, guild); !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("DeleteGuildConfig() twice error = %v, want not found", err)
		}
	})

	t.Run("configs where", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		a, b := uuid.NewString(), uuid.NewString()

		cfgA := sampleConfig(a)
		cfgA.FirstAlert = models.Monday
		cfgA.SecondAlert = models.Wednesday
		cfgB := sampleConfig(b)
		cfgB.FirstAlert = models.Monday
		cfgB.SecondAlert = models.Thursday
		for _, cfg := range []models.GuildConfig{cfgA, cfgB} {
			if err := store.SaveGuildConfig(ctx, cfg); err != nil {
				t.Fatalf("SaveGuildConfig() error = %v", err)
			}
		}

		first, err := store.ConfigsWhere(ctx, models.FieldFirstAlert, models.Monday)
		if err != nil {
			t.Fatalf("ConfigsWhere(first-alert) error = %v", err)
		}
		if !containsGuild(first, a) || !containsGuild(first, b) {
			t.Fatalf("first-alert Monday configs = %v, want both guilds", guildIDs(first))
		}

		second, err := store.ConfigsWhere(ctx, models.FieldSecondAlert, models.Thursday)
		if err != nil {
			t.Fatalf("ConfigsWhere(second-alert) error = %v", err)
		}
		if containsGuild(second, a) || !containsGuild(second, b) {
			t.Fatalf("second-alert Thursday configs = %v, want only %s", guildIDs(second), b)
		}

		if _, err := store.ConfigsWhere(ctx, models.ConfigField("vc-id"), 0); !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Fatalf("ConfigsWhere(unknown field) error = %v, want invalid argument", err)
		}
	})

	t.Run("members are sets", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		guild := uuid.NewString()
		ana := models.Player{ID: "1", Name: "ana"}
		bo := models.Player{ID: "2", Name: "bo"}

		empty, err := store.Members(ctx, guild, models.Players)
		if err != nil {
			t.Fatalf("Members() on empty guild error = %v", err)
		}
		if len(empty) != 0 {
			t.Fatalf("Members() = %v, want empty", empty)
		}

		for _, p := range []models.Player{ana, bo, ana, {ID: "1", Name: "renamed"}} {
			if err := store.AddMember(ctx, guild, models.Players, p); err != nil {
				t.Fatalf("AddMember(%v) error = %v", p, err)
			}
		}
		players, err := store.Members(ctx, guild, models.Players)
		if err != nil {
			t.Fatalf("Members() error = %v", err)
		}
		if len(players) != 2 || players[0] != ana || players[1] != bo {
			t.Fatalf("Members() = %v, want [ana bo]", players)
		}

		if err := store.RemoveMember(ctx, guild, models.Players, "1"); err != nil {
			t.Fatalf("RemoveMember() error = %v", err)
		}
		if err := store.RemoveMember(ctx, guild, models.Players, "404"); err != nil {
			t.Fatalf("RemoveMember(absent) error = %v", err)
		}
		players, _ = store.Members(ctx, guild, models.Players)
		if len(players) != 1 || players[0] != bo {
			t.Fatalf("Members() after remove = %v, want [bo]", players)
		}

		if err := store.AddMember(ctx, guild, models.RosterSet("inventories"), ana); !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Fatalf("AddMember(unknown set) error = %v, want invalid argument", err)
		}
	})

	t.Run("move member", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		guild := uuid.NewString()
		ana := models.Player{ID: "1", Name: "ana"}

		if err := store.AddMember(ctx, guild, models.Decliners, ana); err != nil {
			t.Fatalf("AddMember() error = %v", err)
		}
		for i := 0; i < 2; i++ {
			if err := store.MoveMember(ctx, guild, models.Decliners, models.Attendees, ana); err != nil {
				t.Fatalf("MoveMember() error = %v", err)
			}
		}
		attendees, _ := store.Members(ctx, guild, models.Attendees)
		decliners, _ := store.Members(ctx, guild, models.Decliners)
		if len(attendees) != 1 || attendees[0] != ana || len(decliners) != 0 {
			t.Fatalf("attendees = %v, decliners = %v; want ana attending only", attendees, decliners)
		}

		if err := store.MoveMember(ctx, guild, models.Attendees, models.RosterSet("inventories"), ana); !errors.Is(err, apperr.ErrInvalidArgument) {
			t.Fatalf("MoveMember(unknown set) error = %v, want invalid argument", err)
		}
		attendees, _ = store.Members(ctx, guild, models.Attendees)
		if len(attendees) != 1 {
			t.Fatalf("attendees = %v after rejected move, want ana kept", attendees)
		}
	})

	t.Run("clear rosters keeps players", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		guild := uuid.NewString()
		ana := models.Player{ID: "1", Name: "ana"}

		for _, set := range []models.RosterSet{models.Players, models.Attendees, models.Decliners, models.Cancellers} {
			if err := store.AddMember(ctx, guild, set, ana); err != nil {
				t.Fatalf("AddMember(%s) error = %v", set, err)
			}
		}
		if err := store.ClearRosters(ctx, guild); err != nil {
			t.Fatalf("ClearRosters() error = %v", err)
		}
		for _, set := range models.RSVPSets {
			members, err := store.Members(ctx, guild, set)
			if err != nil {
				t.Fatalf("Members(%s) error = %v", set, err)
			}
			if len(members) != 0 {
				t.Fatalf("Members(%s) = %v, want empty", set, members)
			}
		}
		players, _ := store.Members(ctx, guild, models.Players)
		if len(players) != 1 {
			t.Fatalf("players = %v, want ana kept", players)
		}

		// Sets are usable again after a clear.
		if err := store.AddMember(ctx, guild, models.Attendees, ana); err != nil {
			t.Fatalf("AddMember() after clear error = %v", err)
		}
	})

	t.Run("concurrent adds", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		guild := uuid.NewString()

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				p := models.Player{ID: string(rune('a' + i)), Name: "p"}
				if err := store.AddMember(ctx, guild, models.Attendees, p); err != nil {
					t.Errorf("AddMember(%s) error = %v", p.ID, err)
				}
				if err := store.AddMember(ctx, guild, models.Attendees, p); err != nil {
					t.Errorf("AddMember(%s) again error = %v", p.ID, err)
				}
			}(i)
		}
		wg.Wait()

		members, err := store.Members(ctx, guild, models.Attendees)
		if err != nil {
			t.Fatalf("Members() error = %v", err)
		}
		if len(members) != 8 {
			t.Fatalf("len(attendees) = %d, want 8", len(members))
		}
	})

	t.Run("ping", func(t *testing.T) {
		store := open(t)
		if err := store.Ping(context.Background()); err != nil {
			t.Fatalf("Ping() error = %v", err)
		}
	})
}

func openSQLiteStore(t *testing.T) *Repository {
	t.Helper()
	db, err := New(DriverSQLite, filepath.Join(t.TempDir(), "rollcall.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close sqlite: %v", err)
		}
	})
	return NewRepository(db)
}

func sampleConfig(guildID string) models.GuildConfig {
	cfg := models.NewGuildConfig(guildID)
	cfg.VoiceChannelID = "vc-1"
	cfg.Organizer = &models.Player{ID: "99", Name: "dm"}
	cfg.SessionDay = models.Friday
	cfg.SessionTime = models.TimeOfDay{Hour: 19, Minute: 30}
	cfg.MeetingRoomID = "room-1"
	cfg.FirstAlert = models.Tuesday
	cfg.SecondAlert = models.Thursday
	return cfg
}

func assertConfigEqual(t *testing.T, got, want models.GuildConfig) {
	t.Helper()
	if (got.Organizer == nil) != (want.Organizer == nil) {
		t.Fatalf("organizer = %v, want %v", got.Organizer, want.Organizer)
	}
	if got.Organizer != nil && *got.Organizer != *want.Organizer {
		t.Fatalf("organizer = %+v, want %+v", *got.Organizer, *want.Organizer)
	}
	got.Organizer, want.Organizer = nil, nil
	if got != want {
		t.Fatalf("config = %+v, want %+v", got, want)
	}
}

func containsGuild(configs []models.GuildConfig, guildID string) bool {
	for _, cfg := range configs {
		if cfg.GuildID == guildID {
			return true
		}
	}
	return false
}

func guildIDs(configs []models.GuildConfig) []string {
	ids := make([]string, 0, len(configs))
	for _, cfg := range configs {
		ids = append(ids, cfg.GuildID)
	}
	return ids
}
