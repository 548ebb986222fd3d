// Package config provides Viper-based configuration loading for the room server.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	// Host is the bind address for the HTTP listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the HTTP listener.
	Port int `mapstructure:"port"`
	// BaseURL is the externally visible URL used to build shareable room links.
	BaseURL string `mapstructure:"base_url"`
	// AllowedOrigin is the Origin header accepted on WebSocket upgrades; "*" accepts any.
	AllowedOrigin string `mapstructure:"allowed_origin"`
	// ReadTimeout is the HTTP server read timeout.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the HTTP server write timeout for non-streaming responses.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout bounds graceful shutdown on stop.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RoomsConfig holds room lifecycle policy settings.
type RoomsConfig struct {
	// MinPlayers is the minimum membership required to start a game.
	MinPlayers int `mapstructure:"min_players"`
	// MaxPlayersCap is the upper bound accepted for a room's max_players.
	MaxPlayersCap int `mapstructure:"max_players_cap"`
	// EmptyGrace is how long a room may sit with zero members before eviction.
	EmptyGrace time.Duration `mapstructure:"empty_grace"`
	// TTL is the absolute lifetime of a room from creation.
	TTL time.Duration `mapstructure:"ttl"`
	// SweepInterval is how often the eviction sweeper runs.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// SessionConfig holds per-connection streaming settings.
type SessionConfig struct {
	// SendBuffer is the outbound message buffer size per connection.
	SendBuffer int `mapstructure:"send_buffer"`
	// IdleTimeout is the duration of read inactivity after which a connection is dropped.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// WriteTimeout is the per-message write deadline on a connection.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Rooms   RoomsConfig   `mapstructure:"rooms"`
	Session SessionConfig `mapstructure:"session"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateRooms(c.Rooms); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSession(c.Session); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", s.Port))
	}
	if s.BaseURL == "" {
		errs = append(errs, "server.base_url must not be empty")
	}
	if s.ReadTimeout < 0 {
		errs = append(errs, "server.read_timeout must not be negative")
	}
	if s.WriteTimeout < 0 {
		errs = append(errs, "server.write_timeout must not be negative")
	}
	if s.ShutdownTimeout <= 0 {
		errs = append(errs, "server.shutdown_timeout must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRooms(r RoomsConfig) error {
	var errs []string
	if r.MinPlayers < 1 {
		errs = append(errs, fmt.Sprintf("rooms.min_players must be >= 1, got %d", r.MinPlayers))
	}
	if r.MaxPlayersCap < r.MinPlayers {
		errs = append(errs, fmt.Sprintf("rooms.max_players_cap must be >= rooms.min_players, got %d", r.MaxPlayersCap))
	}
	if r.EmptyGrace < 0 {
		errs = append(errs, "rooms.empty_grace must not be negative")
	}
	if r.TTL <= 0 {
		errs = append(errs, "rooms.ttl must be positive")
	}
	if r.SweepInterval <= 0 {
		errs = append(errs, "rooms.sweep_interval must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSession(s SessionConfig) error {
	var errs []string
	if s.SendBuffer < 1 {
		errs = append(errs, fmt.Sprintf("session.send_buffer must be >= 1, got %d", s.SendBuffer))
	}
	if s.IdleTimeout <= 0 {
		errs = append(errs, "session.idle_timeout must be positive")
	}
	if s.WriteTimeout <= 0 {
		errs = append(errs, "session.write_timeout must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with PARLOR_ prefix
	v.SetEnvPrefix("PARLOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.base_url", "http://localhost:8000")
	v.SetDefault("server.allowed_origin", "*")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("rooms.min_players", 2)
	v.SetDefault("rooms.max_players_cap", 8)
	v.SetDefault("rooms.empty_grace", "1m")
	v.SetDefault("rooms.ttl", "24h")
	v.SetDefault("rooms.sweep_interval", "30s")

	v.SetDefault("session.send_buffer", 64)
	v.SetDefault("session.idle_timeout", "5m")
	v.SetDefault("session.write_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
