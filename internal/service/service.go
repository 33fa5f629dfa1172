package service

import (
	"context"
	"time"

	"github.com/smokesense/smokesense-core/internal/eventlog"
	"github.com/smokesense/smokesense-core/internal/infrastructure/config"
	"github.com/smokesense/smokesense-core/internal/infrastructure/logging"
	"github.com/smokesense/smokesense-core/internal/infrastructure/mqtt"
	"github.com/smokesense/smokesense-core/internal/sensor"
)

// Publisher is the MQTT surface the service needs. Satisfied by
// *mqtt.Client; tests substitute a mock.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	PublishString(topic, payload string, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Broadcaster delivers a message to all connected WebSocket observers.
// Satisfied by *api.Hub; tests substitute a mock. Implementations must
// not block: slow observers are dropped, not waited on.
type Broadcaster interface {
	Broadcast(message any)
}

// Service owns the flow between the bus, the sensor store, and observers.
type Service struct {
	store   *sensor.Store
	history *sensor.History
	bus     Publisher
	events  eventlog.Repository
	logger  *logging.Logger

	topics           mqtt.Topics
	qos              byte
	heartbeatTimeout time.Duration

	// broadcaster is set after construction; the hub needs the service
	// for command dispatch, so the two are wired in stages.
	broadcaster Broadcaster
}

// New creates a Service. Call SetBroadcaster before Start so state changes
// reach WebSocket observers.
func New(
	cfg *config.Config,
	store *sensor.Store,
	history *sensor.History,
	bus Publisher,
	events eventlog.Repository,
	logger *logging.Logger,
) *Service {
	return &Service{
		store:            store,
		history:          history,
		bus:              bus,
		events:           events,
		logger:           logger.With("component", "service"),
		topics:           mqtt.Topics{Floor: cfg.Building.Floor},
		qos:              byte(cfg.MQTT.QoS),
		heartbeatTimeout: cfg.HeartbeatTimeout(),
	}
}

// SetBroadcaster wires the WebSocket hub. Must be called before Start.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Start subscribes to sensor telemetry and launches the heartbeat
// staleness sweeper. The sweeper stops when ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{s.topics.AllRoomSmoke(), s.handleSmoke},
		{s.topics.AllRoomStatus(), s.handleStatus},
		{s.topics.AllRoomHeartbeats(), s.handleHeartbeat},
	}
	for _, sub := range subs {
		if err := s.bus.Subscribe(sub.topic, s.qos, sub.handler); err != nil {
			return err
		}
		s.logger.Debug("subscribed to telemetry", "topic", sub.topic)
	}

	go s.sweepHeartbeats(ctx)

	s.logger.Info("service started",
		"rooms", len(s.store.RoomIDs()),
		"heartbeat_timeout", s.heartbeatTimeout,
	)
	return nil
}

// Snapshot returns every room record in registry order.
func (s *Service) Snapshot() []sensor.Record {
	return s.store.Snapshot()
}

// Get returns one room's record.
func (s *Service) Get(roomID string) (sensor.Record, error) {
	return s.store.Get(roomID)
}

// Rooms returns the static room registry.
func (s *Service) Rooms() []sensor.Room {
	return s.store.Rooms()
}

// History returns the retained smoke samples for a room, oldest first.
func (s *Service) History(roomID string) ([]sensor.Sample, error) {
	if _, err := s.store.Get(roomID); err != nil {
		return nil, err
	}
	return s.history.Samples(roomID), nil
}

// Events returns event log entries matching the filter.
func (s *Service) Events(ctx context.Context, filter eventlog.Filter) (*eventlog.ListResult, error) {
	return s.events.List(ctx, filter)
}

// apply runs one event through the store and fans out the results. All
// delivery happens here, after the store has committed and released its
// lock.
func (s *Service) apply(ctx context.Context, roomID string, ev sensor.Event, source string) (sensor.Record, error) {
	now := time.Now().UTC()

	rec, notes, err := s.store.Apply(roomID, ev, now)
	if err != nil {
		return sensor.Record{}, err
	}

	switch ev.(type) {
	case sensor.Reading, sensor.ManualSet:
		s.history.Append(roomID, sensor.Sample{
			SmokeLevel: rec.SmokeLevel,
			Status:     rec.Status,
			Timestamp:  now,
		})
	}

	s.broadcast(sensorUpdateFor(rec))

	for _, note := range notes {
		s.publishNotification(note)
		s.broadcast(eventFromNotification(note))
		s.recordNotification(ctx, note, source)
	}

	return rec, nil
}

// broadcast delivers a message to observers if a hub is wired.
func (s *Service) broadcast(message any) {
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(message)
	}
}

// recordNotification writes a transition to the event log. Failures are
// logged and swallowed; persistence is best effort and must not block
// alarm delivery.
func (s *Service) recordNotification(ctx context.Context, note sensor.Notification, source string) {
	entry := &eventlog.Entry{
		RoomID: note.RoomID,
		Type:   string(note.Type),
		Source: source,
	}
	if note.SmokeLevel != 0 || note.Threshold != 0 {
		entry.Details = map[string]any{}
		if note.SmokeLevel != 0 {
			entry.Details["smokeLevel"] = note.SmokeLevel
		}
		if note.Threshold != 0 {
			entry.Details["threshold"] = note.Threshold
		}
	}
	if err := s.events.Record(ctx, entry); err != nil {
		s.logger.Warn("recording event failed",
			"type", note.Type,
			"room_id", note.RoomID,
			"error", err,
		)
	}
}

// recordEvent writes a non-transition event (global commands, silence,
// liveness changes) to the event log.
func (s *Service) recordEvent(ctx context.Context, roomID, eventType, source string, details map[string]any) {
	err := s.events.Record(ctx, &eventlog.Entry{
		RoomID:  roomID,
		Type:    eventType,
		Source:  source,
		Details: details,
	})
	if err != nil {
		s.logger.Warn("recording event failed",
			"type", eventType,
			"room_id", roomID,
			"error", err,
		)
	}
}
