package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/smokesense/smokesense-core/internal/eventlog"
	"github.com/smokesense/smokesense-core/internal/sensor"
)

// manualTriggerMargin is how far above the threshold a manually triggered
// alarm sets the smoke level, so the alarm latches immediately.
const manualTriggerMargin = 20.0

// Sensitivity levels accepted by SetSensitivity.
var validSensitivities = map[string]bool{
	"low":    true,
	"medium": true,
	"high":   true,
}

// ResetAlarm clears a room's alarm flag without touching the smoke level
// or a manual override.
func (s *Service) ResetAlarm(ctx context.Context, roomID, source string) (sensor.Record, error) {
	return s.apply(ctx, roomID, sensor.ResetAlarm{}, source)
}

// ResetRoom restores a room to its safe default state, clearing any manual
// override so bus readings take effect again.
func (s *Service) ResetRoom(ctx context.Context, roomID, source string) (sensor.Record, error) {
	return s.apply(ctx, roomID, sensor.ResetRoom{}, source)
}

// UpdateThreshold changes a room's alarm threshold. The new threshold
// applies from the next reading; the current alarm state is left alone.
func (s *Service) UpdateThreshold(ctx context.Context, roomID string, value float64, source string) (sensor.Record, error) {
	if value <= 0 || value > sensor.MaxLevel {
		return sensor.Record{}, fmt.Errorf("%w: threshold %v outside (0,%v]", ErrInvalidInput, value, sensor.MaxLevel)
	}
	return s.apply(ctx, roomID, sensor.ThresholdUpdate{Value: value}, source)
}

// TestAlarm requests a test pulse for a room. Persistent alarm state is
// not modified.
func (s *Service) TestAlarm(ctx context.Context, roomID, source string) (sensor.Record, error) {
	return s.apply(ctx, roomID, sensor.TriggerTest{}, source)
}

// SetSmokeLevel manually overrides a room's smoke level. The override
// suppresses bus readings until the room is reset.
func (s *Service) SetSmokeLevel(ctx context.Context, roomID string, level float64, source string) (sensor.Record, error) {
	if level < sensor.MinLevel || level > sensor.MaxLevel {
		return sensor.Record{}, fmt.Errorf("%w: smoke level %v outside [%v,%v]", ErrInvalidInput, level, sensor.MinLevel, sensor.MaxLevel)
	}
	return s.apply(ctx, roomID, sensor.ManualSet{Level: level}, source)
}

// TriggerRoomAlarm forces a room into alarm by setting its level above the
// threshold as a manual override.
func (s *Service) TriggerRoomAlarm(ctx context.Context, roomID, source string) (sensor.Record, error) {
	rec, err := s.store.Get(roomID)
	if err != nil {
		return sensor.Record{}, err
	}

	level := rec.Threshold + manualTriggerMargin
	if level > sensor.MaxLevel {
		level = sensor.MaxLevel
	}
	return s.apply(ctx, roomID, sensor.ManualSet{Level: level}, source)
}

// SilenceAlarm notifies observers to mute a room's audible alarm. It is a
// presentation concern only: alarm state, the bus, and the sensors are
// untouched.
func (s *Service) SilenceAlarm(ctx context.Context, roomID, source string) error {
	if _, err := s.store.Get(roomID); err != nil {
		return err
	}

	s.broadcast(EventMessage{
		Type:      MessageAlarmSilence,
		RoomID:    roomID,
		Timestamp: time.Now().UTC(),
	})
	s.recordEvent(ctx, roomID, MessageAlarmSilence, source, nil)
	return nil
}

// TriggerGlobalAlarm forces every room into alarm, in registry order, then
// announces one building-wide event.
func (s *Service) TriggerGlobalAlarm(ctx context.Context, source string) error {
	for _, roomID := range s.store.RoomIDs() {
		if _, err := s.TriggerRoomAlarm(ctx, roomID, source); err != nil {
			return fmt.Errorf("triggering alarm for %s: %w", roomID, err)
		}
	}

	s.broadcast(EventMessage{
		Type:      MessageGlobalAlarmTrigger,
		Timestamp: time.Now().UTC(),
	})
	s.recordEvent(ctx, "", MessageGlobalAlarmTrigger, source, nil)
	return nil
}

// ResetGlobal resets every room to its safe default state, in registry
// order, then announces one building-wide event.
func (s *Service) ResetGlobal(ctx context.Context, source string) error {
	for _, roomID := range s.store.RoomIDs() {
		if _, err := s.ResetRoom(ctx, roomID, source); err != nil {
			return fmt.Errorf("resetting %s: %w", roomID, err)
		}
	}

	s.broadcast(EventMessage{
		Type:      MessageGlobalReset,
		Timestamp: time.Now().UTC(),
	})
	s.recordEvent(ctx, "", MessageGlobalReset, source, nil)
	return nil
}

// SetSensitivity forwards a sensitivity setting to a room's sensor via its
// config channel. Core keeps no sensitivity state; the sensor applies it
// to its own signal generation.
func (s *Service) SetSensitivity(ctx context.Context, roomID, sensitivity, source string) error {
	if !validSensitivities[sensitivity] {
		return fmt.Errorf("%w: sensitivity %q not one of low, medium, high", ErrInvalidInput, sensitivity)
	}
	if _, err := s.store.Get(roomID); err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]string{"sensitivity": sensitivity})
	if err != nil {
		return fmt.Errorf("marshalling sensitivity config: %w", err)
	}
	if err := s.bus.Publish(s.topics.RoomConfig(roomID), payload, s.qos, false); err != nil {
		return err
	}

	s.recordEvent(ctx, roomID, "sensitivity-update", source, map[string]any{
		"sensitivity": sensitivity,
	})
	return nil
}

// Source constants re-exported for callers wiring commands.
const (
	SourceAPI       = eventlog.SourceAPI
	SourceWebSocket = eventlog.SourceWebSocket
)
