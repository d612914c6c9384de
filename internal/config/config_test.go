package config

import (
	"errors"
	"testing"
	"time"
)

func setEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	setEnv(t, map[string]string{
		"DISCORD_TOKEN": "token",
		"DATABASE_DSN":  "postgres://localhost/rollcall",
	})

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.Prefix != "!" {
		t.Fatalf("Prefix = %q, want !", cfg.Prefix)
	}
	if cfg.AlertHour != 12 {
		t.Fatalf("AlertHour = %d, want 12", cfg.AlertHour)
	}
	if cfg.AlertInterval != time.Minute {
		t.Fatalf("AlertInterval = %v, want 1m", cfg.AlertInterval)
	}
	if cfg.StoreDriver != StorePostgres {
		t.Fatalf("StoreDriver = %q, want postgres", cfg.StoreDriver)
	}
	if cfg.CampaignAlias != "D&D" {
		t.Fatalf("CampaignAlias = %q, want the campaign name", cfg.CampaignAlias)
	}
	if cfg.PlayersMention != "@everyone" {
		t.Fatalf("PlayersMention = %q, want @everyone", cfg.PlayersMention)
	}
	if got := cfg.Location().String(); got != "America/New_York" {
		t.Fatalf("Location() = %s, want America/New_York", got)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	setEnv(t, map[string]string{
		"DISCORD_TOKEN":  "token",
		"STORE_DRIVER":   "SQLite",
		"DATABASE_DSN":   "file:rollcall.db",
		"ALERT_HOUR":     "9",
		"ALERT_INTERVAL": "15m",
		"CAMPAIGN_NAME":  "Curse of Strahd",
		"CAMPAIGN_ALIAS": "CoS",
		"TIMEZONE":       "UTC",
		"LOG_PRETTY":     "true",
	})

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.StoreDriver != StoreSQLite {
		t.Fatalf("StoreDriver = %q, want sqlite", cfg.StoreDriver)
	}
	if cfg.AlertHour != 9 || cfg.AlertInterval != 15*time.Minute {
		t.Fatalf("alert = %d every %v, want 9 every 15m", cfg.AlertHour, cfg.AlertInterval)
	}
	if cfg.CampaignAlias != "CoS" {
		t.Fatalf("CampaignAlias = %q, want CoS", cfg.CampaignAlias)
	}
	if !cfg.LogPretty {
		t.Fatal("LogPretty = false, want true")
	}
	if cfg.Location() != time.UTC {
		t.Fatalf("Location() = %v, want UTC", cfg.Location())
	}
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name  string
		vars  map[string]string
		field string
	}{
		{"missing token", map[string]string{"DISCORD_TOKEN": "", "STORE_DRIVER": "memory"}, "DISCORD_TOKEN"},
		{"missing dsn", map[string]string{"DISCORD_TOKEN": "t", "DATABASE_DSN": ""}, "DATABASE_DSN"},
		{"missing mongo uri", map[string]string{"DISCORD_TOKEN": "t", "STORE_DRIVER": "mongo", "MONGO_URI": ""}, "MONGO_URI"},
		{"unknown driver", map[string]string{"DISCORD_TOKEN": "t", "STORE_DRIVER": "redis"}, "STORE_DRIVER"},
		{"alert hour", map[string]string{"DISCORD_TOKEN": "t", "STORE_DRIVER": "memory", "ALERT_HOUR": "24"}, "ALERT_HOUR"},
		{"interval", map[string]string{"DISCORD_TOKEN": "t", "STORE_DRIVER": "memory", "ALERT_INTERVAL": "0s"}, "ALERT_INTERVAL"},
		{"timezone", map[string]string{"DISCORD_TOKEN": "t", "STORE_DRIVER": "memory", "TIMEZONE": "Mars/Olympus"}, "TIMEZONE"},
		{"bad number", map[string]string{"DISCORD_TOKEN": "t", "STORE_DRIVER": "memory", "ALERT_HOUR": "noon"}, "environment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.vars)
			_, err := FromEnv()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("FromEnv() error = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.field {
				t.Fatalf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}
