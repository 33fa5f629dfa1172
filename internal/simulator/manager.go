package simulator

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/smokesense/smokesense-core/internal/infrastructure/config"
	"github.com/smokesense/smokesense-core/internal/infrastructure/logging"
	"github.com/smokesense/smokesense-core/internal/infrastructure/mqtt"
)

// Publisher is the slice of the MQTT client the simulator needs.
type Publisher interface {
	PublishString(topic, payload string, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Manager drives a set of simulated sensors: one publish loop for smoke
// levels and status, one for heartbeats, plus per-room control
// subscriptions.
type Manager struct {
	cfg    *config.Config
	bus    Publisher
	logger *logging.Logger
	topics mqtt.Topics

	mu         sync.Mutex
	sensors    map[string]*Sensor
	lastStatus map[string]string
}

// New creates a simulator manager with one sensor per configured room.
func New(cfg *config.Config, bus Publisher, logger *logging.Logger) *Manager {
	m := &Manager{
		cfg:        cfg,
		bus:        bus,
		logger:     logger,
		topics:     mqtt.Topics{Floor: cfg.Building.Floor},
		sensors:    make(map[string]*Sensor),
		lastStatus: make(map[string]string),
	}

	for _, room := range cfg.Building.Rooms {
		rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(len(m.sensors))))
		m.sensors[room.ID] = NewSensor(room.ID, cfg.Simulator.Mode, cfg.Alarm.DefaultThreshold, rng)
	}

	return m
}

// Start subscribes to the control channels and runs the publish loops
// until the context is cancelled.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.subscribeControls(); err != nil {
		return err
	}

	m.logger.Info("simulator started",
		"mode", m.cfg.Simulator.Mode,
		"rooms", len(m.sensors),
		"publish_interval", m.cfg.Simulator.PublishInterval,
	)

	go m.publishLoop(ctx)
	go m.heartbeatLoop(ctx)
	return nil
}

// subscribeControls wires the control channels Core republishes so the
// simulated sensors react like physical ones would.
func (m *Manager) subscribeControls() error {
	qos := byte(m.cfg.MQTT.QoS)

	for roomID := range m.sensors {
		id := roomID
		subs := []struct {
			topic   string
			handler mqtt.MessageHandler
		}{
			{m.topics.RoomReset(id), func(_ string, _ []byte) error {
				m.handleReset(id)
				return nil
			}},
			{m.topics.RoomThreshold(id), func(_ string, payload []byte) error {
				m.handleThreshold(id, payload)
				return nil
			}},
			{m.topics.RoomConfig(id), func(_ string, payload []byte) error {
				m.handleConfig(id, payload)
				return nil
			}},
			{m.topics.RoomTest(id), func(_ string, _ []byte) error {
				m.handleTest(id)
				return nil
			}},
		}
		for _, sub := range subs {
			if err := m.bus.Subscribe(sub.topic, qos, sub.handler); err != nil {
				return err
			}
		}
	}

	return nil
}

// publishLoop advances every sensor and publishes its smoke level each
// tick, plus a status message whenever the status changes.
func (m *Manager) publishLoop(ctx context.Context) {
	interval := time.Duration(m.cfg.Simulator.PublishInterval) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.publishReadings()
		}
	}
}

func (m *Manager) publishReadings() {
	qos := byte(m.cfg.MQTT.QoS)

	m.mu.Lock()
	defer m.mu.Unlock()

	for roomID, s := range m.sensors {
		level := s.Step()
		payload := strconv.FormatFloat(level, 'f', 2, 64)
		if err := m.bus.PublishString(m.topics.RoomSmoke(roomID), payload, qos, true); err != nil {
			m.logger.Warn("failed to publish smoke level", "room_id", roomID, "error", err)
			continue
		}

		status := s.Status()
		if status != m.lastStatus[roomID] {
			m.lastStatus[roomID] = status
			if err := m.bus.PublishString(m.topics.RoomStatus(roomID), status, qos, true); err != nil {
				m.logger.Warn("failed to publish status", "room_id", roomID, "error", err)
			}
		}
	}
}

// heartbeatLoop publishes a liveness timestamp for every sensor. Heartbeats
// are fire-and-forget: QoS 0, not retained.
func (m *Manager) heartbeatLoop(ctx context.Context) {
	interval := time.Duration(m.cfg.Simulator.HeartbeatInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now().UTC().Format(time.RFC3339)
			m.mu.Lock()
			for roomID := range m.sensors {
				if err := m.bus.PublishString(m.topics.RoomHeartbeat(roomID), now, 0, false); err != nil {
					m.logger.Warn("failed to publish heartbeat", "room_id", roomID, "error", err)
				}
			}
			m.mu.Unlock()
		}
	}
}

func (m *Manager) handleReset(roomID string) {
	m.mu.Lock()
	s, ok := m.sensors[roomID]
	m.mu.Unlock()
	if !ok {
		return
	}

	s.Reset()
	m.logger.Info("sensor reset", "room_id", roomID)
}

func (m *Manager) handleThreshold(roomID string, payload []byte) {
	m.mu.Lock()
	s, ok := m.sensors[roomID]
	m.mu.Unlock()
	if !ok {
		return
	}

	value, err := strconv.ParseFloat(string(payload), 64)
	if err != nil {
		m.logger.Warn("ignoring malformed threshold",
			"room_id", roomID,
			"payload", string(payload),
		)
		return
	}

	s.SetThreshold(value)
	m.logger.Info("sensor threshold updated", "room_id", roomID, "threshold", value)
}

func (m *Manager) handleConfig(roomID string, payload []byte) {
	m.mu.Lock()
	s, ok := m.sensors[roomID]
	m.mu.Unlock()
	if !ok {
		return
	}

	var cfg struct {
		Sensitivity string `json:"sensitivity"`
	}
	if err := json.Unmarshal(payload, &cfg); err != nil {
		m.logger.Warn("ignoring malformed config",
			"room_id", roomID,
			"payload", string(payload),
		)
		return
	}

	if cfg.Sensitivity != "" {
		if s.SetSensitivity(cfg.Sensitivity) {
			m.logger.Info("sensor sensitivity updated",
				"room_id", roomID,
				"sensitivity", cfg.Sensitivity,
			)
		} else {
			m.logger.Warn("ignoring unknown sensitivity",
				"room_id", roomID,
				"sensitivity", cfg.Sensitivity,
			)
		}
	}
}

func (m *Manager) handleTest(roomID string) {
	m.mu.Lock()
	s, ok := m.sensors[roomID]
	m.mu.Unlock()
	if !ok {
		return
	}

	s.TriggerTest()
	m.logger.Info("sensor test triggered", "room_id", roomID)
}
