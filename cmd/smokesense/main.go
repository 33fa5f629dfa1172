// SmokeSense Core - IoT smoke sensor dashboard backend
//
// This is the main entry point for the SmokeSense Core application.
// Core ingests smoke telemetry over MQTT, runs the alarm state machine,
// and serves the dashboard over REST and WebSocket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/smokesense/smokesense-core/migrations"

	"github.com/smokesense/smokesense-core/internal/api"
	"github.com/smokesense/smokesense-core/internal/eventlog"
	"github.com/smokesense/smokesense-core/internal/infrastructure/config"
	"github.com/smokesense/smokesense-core/internal/infrastructure/database"
	"github.com/smokesense/smokesense-core/internal/infrastructure/logging"
	"github.com/smokesense/smokesense-core/internal/infrastructure/mqtt"
	"github.com/smokesense/smokesense-core/internal/sensor"
	"github.com/smokesense/smokesense-core/internal/service"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting SmokeSense Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Build the sensor store from the configured room registry
	store := sensor.NewStore(buildRooms(cfg), cfg.Alarm.DefaultThreshold, time.Now().UTC())
	history := sensor.NewHistory(cfg.History.Window)
	log.Info("sensor store initialised",
		"rooms", len(store.RoomIDs()),
		"default_threshold", cfg.Alarm.DefaultThreshold,
	)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Set up MQTT logging callbacks
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Wire the core service: event log, state machine, telemetry ingest
	events := eventlog.NewSQLiteRepository(db.DB)
	svc := service.New(cfg, store, history, mqttClient, events, log)

	// Start the API server and connect it to the service. The hub needs
	// the service for command dispatch and the service needs the hub for
	// broadcasts, so wiring happens in stages.
	server, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log,
		Service: svc,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	svc.SetBroadcaster(server.Hub())

	if startErr := svc.Start(ctx); startErr != nil {
		return fmt.Errorf("starting service: %w", startErr)
	}

	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, server); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. MQTT
	// 3. Database

	log.Info("SmokeSense Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses SMOKESENSE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SMOKESENSE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildRooms converts the configured room registry into sensor rooms,
// preserving configuration order.
func buildRooms(cfg *config.Config) []sensor.Room {
	rooms := make([]sensor.Room, len(cfg.Building.Rooms))
	for i, r := range cfg.Building.Rooms {
		rooms[i] = sensor.Room{
			ID:     r.ID,
			Name:   r.Name,
			X:      r.X,
			Y:      r.Y,
			Width:  r.Width,
			Height: r.Height,
		}
	}
	return rooms
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, server *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}
