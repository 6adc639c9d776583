package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", cfg.Address())
	assert.Equal(t, 4, cfg.Rooms.MaxSeats)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigParsesHCL(t *testing.T) {
	path := writeConfig(t, `
server {
  address = "0.0.0.0"
  port    = 9000
}

rooms {
  max_seats        = 6
  min_players      = 3
  decision_timeout = "30s"
}

storage {
  path      = "/var/lib/dicee/rooms.db"
  gc_window = "48h"
}
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:9000", cfg.Address())
	assert.Equal(t, "/var/lib/dicee/rooms.db", cfg.Storage.Path)

	rc, err := cfg.RoomConfig()
	require.NoError(t, err)
	assert.Equal(t, 6, rc.MaxSeats)
	assert.Equal(t, 3, rc.MinPlayers)
	assert.Equal(t, 30*time.Second, rc.DecisionTimeout)
	// Unset durations fall back to wire defaults.
	assert.Equal(t, 3*time.Minute, rc.ReclaimWindow)
	assert.Equal(t, "greedy", rc.DefaultBot)

	gc, err := cfg.GCWindow()
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, gc)
}

func TestLoadConfigRejectsBadHCL(t *testing.T) {
	path := writeConfig(t, `server { port = `)
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestValidateCatchesBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"too many seats", func(c *Config) { c.Rooms.MaxSeats = 20 }},
		{"min above max", func(c *Config) { c.Rooms.MinPlayers = 5 }},
		{"unknown bot", func(c *Config) { c.Rooms.DefaultBot = "psychic" }},
		{"bad duration", func(c *Config) { c.Rooms.ReclaimWindow = "soon" }},
		{"negative duration", func(c *Config) { c.Rooms.IdleTimeout = "-1m" }},
		{"bad gc window", func(c *Config) { c.Storage.GCWindow = "whenever" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
