package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers accepted in STORE_DRIVER.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

// Config holds all configuration for our application
type Config struct {
	DiscordToken   string `env:"DISCORD_TOKEN"`
	Prefix         string `env:"BOT_PREFIX" envDefault:"!"`
	Description    string `env:"BOT_DESCRIPTION" envDefault:"Keeps track of who is coming to the next session."`
	PlayersMention string `env:"PLAYERS_MENTION" envDefault:"@everyone"`

	CampaignName  string `env:"CAMPAIGN_NAME" envDefault:"D&D"`
	CampaignAlias string `env:"CAMPAIGN_ALIAS"`
	VoiceChannel  string `env:"VOICE_CHANNEL"`
	Timezone      string `env:"TIMEZONE" envDefault:"America/New_York"`

	AlertHour     int           `env:"ALERT_HOUR" envDefault:"12"`
	AlertInterval time.Duration `env:"ALERT_INTERVAL" envDefault:"1m"`

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseDSN   string `env:"DATABASE_DSN"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"dnd-bot"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`

	location *time.Location
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// .env file is optional, continue with environment variables
	}
	return FromEnv()
}

// FromEnv parses the process environment without reading a .env file.
func FromEnv() (*Config, error) {
	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, &ConfigError{Field: "environment", Message: fmt.Sprintf("parse env: %v", err)}
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.DiscordToken == "" {
		return &ConfigError{Field: "DISCORD_TOKEN", Message: "DISCORD_TOKEN is required"}
	}
	if c.Prefix == "" {
		return &ConfigError{Field: "BOT_PREFIX", Message: "BOT_PREFIX must not be empty"}
	}
	if c.AlertHour < 0 || c.AlertHour > 23 {
		return &ConfigError{Field: "ALERT_HOUR", Message: fmt.Sprintf("ALERT_HOUR must be in 0..23, got %d", c.AlertHour)}
	}
	if c.AlertInterval <= 0 {
		return &ConfigError{Field: "ALERT_INTERVAL", Message: "ALERT_INTERVAL must be positive"}
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return &ConfigError{Field: "TIMEZONE", Message: fmt.Sprintf("unknown TIMEZONE %q: %v", c.Timezone, err)}
	}
	c.location = loc

	c.StoreDriver = strings.ToLower(c.StoreDriver)
	switch c.StoreDriver {
	case StorePostgres, StoreSQLite:
		if c.DatabaseDSN == "" {
			return &ConfigError{Field: "DATABASE_DSN", Message: "DATABASE_DSN is required for " + c.StoreDriver}
		}
	case StoreMongo:
		if c.MongoURI == "" {
			return &ConfigError{Field: "MONGO_URI", Message: "MONGO_URI is required for mongo"}
		}
	case StoreMemory:
	default:
		return &ConfigError{Field: "STORE_DRIVER", Message: fmt.Sprintf("unsupported STORE_DRIVER %q", c.StoreDriver)}
	}

	if c.CampaignAlias == "" {
		c.CampaignAlias = c.CampaignName
	}
	return nil
}

// Location is the campaign time zone. Alert hours and session times are
// interpreted in it.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
