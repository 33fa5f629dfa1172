package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/smokesense/smokesense-core/internal/eventlog"
	"github.com/smokesense/smokesense-core/internal/infrastructure/mqtt"
	"github.com/smokesense/smokesense-core/internal/sensor"
)

// systemAlarmPayload is the building-wide alarm summary published on
// building/system/alarm when any room's alarm triggers.
type systemAlarmPayload struct {
	RoomID     string    `json:"roomId"`
	SmokeLevel float64   `json:"smokeLevel"`
	Timestamp  time.Time `json:"timestamp"`
}

// handleSmoke ingests a smoke-level reading from the bus.
//
// Malformed payloads are logged and dropped; readings for rooms outside
// the registry are dropped silently since foreign publishers may share
// the broker.
func (s *Service) handleSmoke(topic string, payload []byte) error {
	_, roomID, _, ok := mqtt.ParseRoomTopic(topic)
	if !ok {
		return nil
	}

	level, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
	if err != nil {
		s.logger.Warn("malformed smoke payload dropped",
			"topic", topic,
			"payload", string(payload),
		)
		return nil
	}

	_, err = s.apply(context.Background(), roomID, sensor.Reading{Level: level}, eventlog.SourceBus)
	if errors.Is(err, sensor.ErrUnknownRoom) {
		s.logger.Debug("reading for unregistered room dropped", "room_id", roomID)
		return nil
	}
	return err
}

// handleStatus stores a sensor's self-reported connection status.
func (s *Service) handleStatus(topic string, payload []byte) error {
	_, roomID, _, ok := mqtt.ParseRoomTopic(topic)
	if !ok {
		return nil
	}

	rec, err := s.store.SetConnectionStatus(roomID, strings.TrimSpace(string(payload)))
	if errors.Is(err, sensor.ErrUnknownRoom) {
		return nil
	}
	if err != nil {
		return err
	}

	s.broadcast(sensorUpdateFor(rec))
	return nil
}

// handleHeartbeat records sensor liveness. A heartbeat from an offline
// room flips it back online and notifies observers.
func (s *Service) handleHeartbeat(topic string, payload []byte) error {
	_, roomID, _, ok := mqtt.ParseRoomTopic(topic)
	if !ok {
		return nil
	}

	rec, wasOffline, err := s.store.Heartbeat(roomID, time.Now().UTC())
	if errors.Is(err, sensor.ErrUnknownRoom) {
		return nil
	}
	if err != nil {
		return err
	}

	if wasOffline {
		s.logger.Info("sensor online", "room_id", roomID)
		s.broadcast(sensorUpdateFor(rec))
		s.recordEvent(context.Background(), roomID, "sensor-online", eventlog.SourceSystem, nil)
	}
	return nil
}

// sweepHeartbeats periodically marks rooms offline when their heartbeats
// go stale. Runs until ctx is cancelled.
func (s *Service) sweepHeartbeats(ctx context.Context) {
	interval := s.heartbeatTimeout / 3
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-s.heartbeatTimeout)
			for _, rec := range s.store.MarkStale(cutoff) {
				s.logger.Warn("sensor offline, heartbeat stale", "room_id", rec.RoomID)
				s.broadcast(sensorUpdateFor(rec))
				s.recordEvent(ctx, rec.RoomID, "sensor-offline", eventlog.SourceSystem, nil)
			}
		}
	}
}

// publishNotification republishes a transition onto the bus so sensors and
// other bus consumers observe alarm state. Publish failures are logged and
// swallowed; the in-memory state is already committed and observers were
// notified.
func (s *Service) publishNotification(note sensor.Notification) {
	var err error

	switch note.Type {
	case sensor.NotifyAlarmTrigger:
		err = s.bus.PublishString(s.topics.RoomAlarm(note.RoomID), "active", s.qos, true)
		if err == nil {
			var payload []byte
			payload, err = json.Marshal(systemAlarmPayload{
				RoomID:     note.RoomID,
				SmokeLevel: note.SmokeLevel,
				Timestamp:  note.Timestamp,
			})
			if err == nil {
				err = s.bus.Publish(s.topics.SystemAlarm(), payload, s.qos, false)
			}
		}

	case sensor.NotifyAlarmClear:
		err = s.bus.PublishString(s.topics.RoomAlarm(note.RoomID), "cleared", s.qos, true)

	case sensor.NotifyAlarmReset, sensor.NotifyRoomReset:
		err = s.bus.PublishString(s.topics.RoomReset(note.RoomID), "true", s.qos, false)

	case sensor.NotifyThresholdUpdate:
		value := strconv.FormatFloat(note.Threshold, 'f', -1, 64)
		err = s.bus.PublishString(s.topics.RoomThreshold(note.RoomID), value, s.qos, true)

	case sensor.NotifyTestPulse:
		err = s.bus.PublishString(s.topics.RoomTest(note.RoomID), "true", s.qos, false)
	}

	if err != nil {
		s.logger.Warn("bus publish failed",
			"type", note.Type,
			"room_id", note.RoomID,
			"error", err,
		)
	}
}
