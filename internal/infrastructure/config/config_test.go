package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
building:
  id: "test-building"
  floor: "floor1"
  rooms:
    - id: "room1"
      name: "Living Room"
      x: 10
      y: 10
      width: 200
      height: 150
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 3001
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Building.ID != "test-building" {
		t.Errorf("Building.ID = %q, want %q", cfg.Building.ID, "test-building")
	}

	if len(cfg.Building.Rooms) != 1 {
		t.Fatalf("len(Building.Rooms) = %d, want 1", len(cfg.Building.Rooms))
	}
	if cfg.Building.Rooms[0].ID != "room1" {
		t.Errorf("Rooms[0].ID = %q, want %q", cfg.Building.Rooms[0].ID, "room1")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}

	// Defaults survive a partial file.
	if cfg.Alarm.DefaultThreshold != 50 {
		t.Errorf("Alarm.DefaultThreshold = %v, want 50", cfg.Alarm.DefaultThreshold)
	}
	if cfg.History.Window != 300 {
		t.Errorf("History.Window = %d, want 300", cfg.History.Window)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty building id", func(c *Config) { c.Building.ID = "" }},
		{"no rooms", func(c *Config) { c.Building.Rooms = nil }},
		{"duplicate room id", func(c *Config) {
			c.Building.Rooms = append(c.Building.Rooms, RoomConfig{ID: "room1", Name: "Copy"})
		}},
		{"bad qos", func(c *Config) { c.MQTT.QoS = 3 }},
		{"bad api port", func(c *Config) { c.API.Port = 0 }},
		{"zero threshold", func(c *Config) { c.Alarm.DefaultThreshold = 0 }},
		{"threshold above range", func(c *Config) { c.Alarm.DefaultThreshold = 150 }},
		{"zero history window", func(c *Config) { c.History.Window = 0 }},
		{"unknown simulator mode", func(c *Config) { c.Simulator.Mode = "chaotic" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() expected error, got nil")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SMOKESENSE_MQTT_HOST", "broker.example.com")
	t.Setenv("SMOKESENSE_API_PORT", "9090")

	cfg := Default()
	applyEnvOverrides(cfg)

	if cfg.MQTT.Broker.Host != "broker.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want override", cfg.MQTT.Broker.Host)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
}
