package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for SmokeSense Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Building  BuildingConfig  `yaml:"building"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Database  DatabaseConfig  `yaml:"database"`
	Alarm     AlarmConfig     `yaml:"alarm"`
	History   HistoryConfig   `yaml:"history"`
	Logging   LoggingConfig   `yaml:"logging"`
	Simulator SimulatorConfig `yaml:"simulator"`
}

// BuildingConfig describes the monitored building and its rooms.
// The room list is the static room registry: insertion order here is the
// order used for snapshots and global commands.
type BuildingConfig struct {
	ID    string       `yaml:"id"`
	Name  string       `yaml:"name"`
	Floor string       `yaml:"floor"`
	Rooms []RoomConfig `yaml:"rooms"`
}

// RoomConfig describes one room's identity and floor-plan geometry.
type RoomConfig struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// DatabaseConfig contains SQLite event-log database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// AlarmConfig contains alarm engine settings.
type AlarmConfig struct {
	// DefaultThreshold is the initial smoke threshold for every room (0-100).
	DefaultThreshold float64 `yaml:"default_threshold"`

	// HeartbeatTimeout is how long a sensor may stay silent before it is
	// marked offline (seconds).
	HeartbeatTimeout int `yaml:"heartbeat_timeout"`
}

// HistoryConfig contains settings for the in-memory reading window.
type HistoryConfig struct {
	// Window is the number of readings retained per room.
	Window int `yaml:"window"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SimulatorConfig contains sensor simulator settings (cmd/sensorsim).
type SimulatorConfig struct {
	// Mode selects the simulation profile: realistic, random, or test.
	Mode string `yaml:"mode"`

	// PublishInterval is the delay between reading publications (seconds).
	PublishInterval int `yaml:"publish_interval"`

	// HeartbeatInterval is the delay between heartbeats (seconds).
	HeartbeatInterval int `yaml:"heartbeat_interval"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SMOKESENSE_SECTION_KEY
// For example: SMOKESENSE_MQTT_HOST, SMOKESENSE_API_PORT
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults, including the demo
// six-room floor plan. It is valid without any file or overrides.
func Default() *Config {
	return &Config{
		Building: BuildingConfig{
			ID:    "building-001",
			Name:  "Demo Building",
			Floor: "floor1",
			Rooms: []RoomConfig{
				{ID: "room1", Name: "Living Room", X: 10, Y: 10, Width: 200, Height: 150},
				{ID: "room2", Name: "Kitchen", X: 220, Y: 10, Width: 150, Height: 150},
				{ID: "room3", Name: "Bedroom 1", X: 380, Y: 10, Width: 180, Height: 150},
				{ID: "room4", Name: "Bedroom 2", X: 10, Y: 170, Width: 200, Height: 150},
				{ID: "room5", Name: "Bathroom", X: 220, Y: 170, Width: 150, Height: 150},
				{ID: "room6", Name: "Office", X: 380, Y: 170, Width: 180, Height: 150},
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "smokesense-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 3001,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Database: DatabaseConfig{
			Path:        "./data/smokesense.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Alarm: AlarmConfig{
			DefaultThreshold: 50,
			HeartbeatTimeout: 15,
		},
		History: HistoryConfig{
			Window: 300,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Simulator: SimulatorConfig{
			Mode:              "realistic",
			PublishInterval:   1,
			HeartbeatInterval: 5,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: SMOKESENSE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("SMOKESENSE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SMOKESENSE_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("SMOKESENSE_MQTT_CLIENT_ID"); v != "" {
		cfg.MQTT.Broker.ClientID = v
	}
	if v := os.Getenv("SMOKESENSE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SMOKESENSE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("SMOKESENSE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("SMOKESENSE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Database
	if v := os.Getenv("SMOKESENSE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Simulator
	if v := os.Getenv("SMOKESENSE_SIMULATOR_MODE"); v != "" {
		cfg.Simulator.Mode = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Building.ID == "" {
		errs = append(errs, "building.id is required")
	}
	if c.Building.Floor == "" {
		errs = append(errs, "building.floor is required")
	}
	if len(c.Building.Rooms) == 0 {
		errs = append(errs, "building.rooms must contain at least one room")
	}
	seen := make(map[string]bool, len(c.Building.Rooms))
	for _, room := range c.Building.Rooms {
		if room.ID == "" {
			errs = append(errs, "building.rooms entries require an id")
			continue
		}
		if seen[room.ID] {
			errs = append(errs, fmt.Sprintf("building.rooms contains duplicate id %q", room.ID))
		}
		seen[room.ID] = true
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.Alarm.DefaultThreshold <= 0 || c.Alarm.DefaultThreshold > 100 {
		errs = append(errs, "alarm.default_threshold must be in (0, 100]")
	}
	if c.Alarm.HeartbeatTimeout <= 0 {
		errs = append(errs, "alarm.heartbeat_timeout must be positive")
	}

	if c.History.Window <= 0 {
		errs = append(errs, "history.window must be positive")
	}

	switch c.Simulator.Mode {
	case "realistic", "random", "test":
	default:
		errs = append(errs, "simulator.mode must be realistic, random, or test")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// HeartbeatTimeout returns the sensor staleness window as a Duration.
func (c *Config) HeartbeatTimeout() time.Duration {
	return time.Duration(c.Alarm.HeartbeatTimeout) * time.Second
}
