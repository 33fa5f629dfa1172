// sensorsim - simulated smoke sensor fleet
//
// sensorsim publishes synthetic smoke telemetry for every configured room
// so the dashboard can be developed and demonstrated without physical
// hardware. It shares the Core configuration file and connects to the
// same MQTT broker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/smokesense/smokesense-core/internal/infrastructure/config"
	"github.com/smokesense/smokesense-core/internal/infrastructure/logging"
	"github.com/smokesense/smokesense-core/internal/infrastructure/mqtt"
	"github.com/smokesense/smokesense-core/internal/simulator"
)

// Version information - set at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting SmokeSense sensor simulator",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)

	// Use a distinct client ID so the simulator and Core can share a
	// broker without evicting each other's sessions.
	cfg.MQTT.Broker.ClientID += "-sim"

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

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	manager := simulator.New(cfg, mqttClient, log)
	if startErr := manager.Start(ctx); startErr != nil {
		return fmt.Errorf("starting simulator: %w", startErr)
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("sensor simulator stopped")
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
