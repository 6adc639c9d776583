package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/playdicee/dicee/internal/room"
	"github.com/playdicee/dicee/internal/strategy"
)

// Config represents the complete server configuration
type Config struct {
	Server  ServerSettings  `hcl:"server,block"`
	Rooms   RoomSettings    `hcl:"rooms,block"`
	Storage StorageSettings `hcl:"storage,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	LogFile  string `hcl:"log_file,optional"`
}

// RoomSettings bounds every room the server hosts. Durations are HCL
// strings like "45s".
type RoomSettings struct {
	MaxSeats        int    `hcl:"max_seats,optional"`
	MinPlayers      int    `hcl:"min_players,optional"`
	ReservationTTL  string `hcl:"reservation_ttl,optional"`
	ReclaimWindow   string `hcl:"reclaim_window,optional"`
	DecisionTimeout string `hcl:"decision_timeout,optional"`
	IdleTimeout     string `hcl:"idle_timeout,optional"`
	DefaultBot      string `hcl:"default_bot,optional"`
}

// StorageSettings configures the snapshot store
type StorageSettings struct {
	Path     string `hcl:"path,optional"`
	GCWindow string `hcl:"gc_window,optional"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Rooms: RoomSettings{
			MaxSeats:        4,
			MinPlayers:      2,
			ReservationTTL:  "2m",
			ReclaimWindow:   "3m",
			DecisionTimeout: "45s",
			IdleTimeout:     "10m",
			DefaultBot:      "greedy",
		},
		Storage: StorageSettings{
			Path:     "dicee.db",
			GCWindow: "24h",
		},
	}
}

// LoadConfig loads server configuration from an HCL file. A missing
// file yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	defaults := DefaultConfig()
	if config.Server.Address == "" {
		config.Server.Address = defaults.Server.Address
	}
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = defaults.Server.LogLevel
	}
	if config.Rooms.MaxSeats == 0 {
		config.Rooms.MaxSeats = defaults.Rooms.MaxSeats
	}
	if config.Rooms.MinPlayers == 0 {
		config.Rooms.MinPlayers = defaults.Rooms.MinPlayers
	}
	if config.Rooms.ReservationTTL == "" {
		config.Rooms.ReservationTTL = defaults.Rooms.ReservationTTL
	}
	if config.Rooms.ReclaimWindow == "" {
		config.Rooms.ReclaimWindow = defaults.Rooms.ReclaimWindow
	}
	if config.Rooms.DecisionTimeout == "" {
		config.Rooms.DecisionTimeout = defaults.Rooms.DecisionTimeout
	}
	if config.Rooms.IdleTimeout == "" {
		config.Rooms.IdleTimeout = defaults.Rooms.IdleTimeout
	}
	if config.Rooms.DefaultBot == "" {
		config.Rooms.DefaultBot = defaults.Rooms.DefaultBot
	}
	if config.Storage.Path == "" {
		config.Storage.Path = defaults.Storage.Path
	}
	if config.Storage.GCWindow == "" {
		config.Storage.GCWindow = defaults.Storage.GCWindow
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Rooms.MaxSeats < 1 || c.Rooms.MaxSeats > 8 {
		return fmt.Errorf("max_seats must be between 1 and 8, got %d", c.Rooms.MaxSeats)
	}
	if c.Rooms.MinPlayers < 1 || c.Rooms.MinPlayers > c.Rooms.MaxSeats {
		return fmt.Errorf("min_players must be between 1 and max_seats, got %d", c.Rooms.MinPlayers)
	}

	validBot := false
	for _, name := range strategy.Names() {
		if name == c.Rooms.DefaultBot {
			validBot = true
			break
		}
	}
	if !validBot {
		return fmt.Errorf("invalid default_bot strategy %q", c.Rooms.DefaultBot)
	}

	if _, err := c.RoomConfig(); err != nil {
		return err
	}
	if _, err := c.GCWindow(); err != nil {
		return err
	}
	return nil
}

// Address returns the full listen address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// RoomConfig converts the room settings into a room.Config
func (c *Config) RoomConfig() (room.Config, error) {
	cfg := room.Config{
		MaxSeats:   c.Rooms.MaxSeats,
		MinPlayers: c.Rooms.MinPlayers,
		DefaultBot: c.Rooms.DefaultBot,
	}
	for _, d := range []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"reservation_ttl", c.Rooms.ReservationTTL, &cfg.ReservationTTL},
		{"reclaim_window", c.Rooms.ReclaimWindow, &cfg.ReclaimWindow},
		{"decision_timeout", c.Rooms.DecisionTimeout, &cfg.DecisionTimeout},
		{"idle_timeout", c.Rooms.IdleTimeout, &cfg.IdleTimeout},
	} {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return room.Config{}, fmt.Errorf("invalid %s: %w", d.name, err)
		}
		if parsed <= 0 {
			return room.Config{}, fmt.Errorf("%s must be positive", d.name)
		}
		*d.dst = parsed
	}
	return cfg, nil
}

// GCWindow parses the snapshot retention window
func (c *Config) GCWindow() (time.Duration, error) {
	if c.Storage.GCWindow == "" {
		return 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(c.Storage.GCWindow)
	if err != nil {
		return 0, fmt.Errorf("invalid gc_window: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("gc_window must be positive")
	}
	return d, nil
}
