package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func validConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			BaseURL:         "http://localhost:8000",
			AllowedOrigin:   "*",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Rooms: RoomsConfig{
			MinPlayers:    2,
			MaxPlayersCap: 8,
			EmptyGrace:    time.Minute,
			TTL:           24 * time.Hour,
			SweepInterval: 30 * time.Second,
		},
		Session: SessionConfig{
			SendBuffer:   64,
			IdleTimeout:  5 * time.Minute,
			WriteTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func TestValidConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestServerAddr(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: 127.0.0.1
  port: 9000
  base_url: https://parlor.example.com
rooms:
  min_players: 3
  empty_grace: 90s
logging:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "https://parlor.example.com", cfg.Server.BaseURL)
	assert.Equal(t, 3, cfg.Rooms.MinPlayers)
	assert.Equal(t, 90*time.Second, cfg.Rooms.EmptyGrace)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Defaults fill in unspecified sections.
	assert.Equal(t, 64, cfg.Session.SendBuffer)
	assert.Equal(t, 24*time.Hour, cfg.Rooms.TTL)
}

func TestLoadInvalidPath(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestValidateServerPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg.Server.Port = 70000
	assert.Error(t, cfg.Validate())
}

func TestValidateBaseURLEmpty(t *testing.T) {
	cfg := validConfig()
	cfg.Server.BaseURL = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}

func TestValidateMinPlayers(t *testing.T) {
	cfg := validConfig()
	cfg.Rooms.MinPlayers = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateMaxPlayersCapBelowMin(t *testing.T) {
	cfg := validConfig()
	cfg.Rooms.MinPlayers = 4
	cfg.Rooms.MaxPlayersCap = 3
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_players_cap")
}

func TestValidateSendBuffer(t *testing.T) {
	cfg := validConfig()
	cfg.Session.SendBuffer = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateLoggingLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestValidateLoggingFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Format = "xml"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.format")
}

func TestPropertyValidPortRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		port := rapid.IntRange(1, 65535).Draw(t, "port")
		cfg := validConfig()
		cfg.Server.Port = port
		if err := cfg.Validate(); err != nil {
			t.Fatalf("valid port %d rejected: %v", port, err)
		}
	})
}

func TestPropertyInvalidPortRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		port := rapid.OneOf(
			rapid.IntRange(-1000, 0),
			rapid.IntRange(65536, 100000),
		).Draw(t, "port")
		cfg := validConfig()
		cfg.Server.Port = port
		if cfg.Validate() == nil {
			t.Fatalf("invalid port %d accepted", port)
		}
	})
}

func TestPropertyMinPlayersWithinCap(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		min := rapid.IntRange(1, 100).Draw(t, "min_players")
		cap := rapid.IntRange(min, 200).Draw(t, "max_players_cap")
		cfg := validConfig()
		cfg.Rooms.MinPlayers = min
		cfg.Rooms.MaxPlayersCap = cap
		if err := cfg.Validate(); err != nil {
			t.Fatalf("valid min=%d cap=%d rejected: %v", min, cap, err)
		}
	})
}
