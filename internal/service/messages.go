package service

import (
	"time"

	"github.com/smokesense/smokesense-core/internal/sensor"
)

// WebSocket message types pushed to observers beyond the per-notification
// events. Notification-driven events reuse the sensor.NotificationType
// values directly.
const (
	MessageSensorUpdate       = "sensor-update"
	MessageAlarmSilence       = "alarm-silence"
	MessageGlobalAlarmTrigger = "global-alarm-trigger"
	MessageGlobalReset        = "global-reset"
)

// SensorUpdate carries one room's full record after a state change. The
// room ID is duplicated at the top level so observers can route a frame
// without unpacking the record.
type SensorUpdate struct {
	Type   string        `json:"type"`
	RoomID string        `json:"roomId"`
	Data   sensor.Record `json:"data"`
}

// sensorUpdateFor builds the update frame for one room record.
func sensorUpdateFor(rec sensor.Record) SensorUpdate {
	return SensorUpdate{Type: MessageSensorUpdate, RoomID: rec.RoomID, Data: rec}
}

// EventMessage carries a discrete event such as an alarm transition or a
// building-wide command. RoomID is empty for global events.
type EventMessage struct {
	Type       string    `json:"type"`
	RoomID     string    `json:"roomId,omitempty"`
	SmokeLevel float64   `json:"smokeLevel,omitempty"`
	Threshold  float64   `json:"threshold,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// eventFromNotification converts a transition notification into the wire
// message observers receive.
func eventFromNotification(n sensor.Notification) EventMessage {
	return EventMessage{
		Type:       string(n.Type),
		RoomID:     n.RoomID,
		SmokeLevel: n.SmokeLevel,
		Threshold:  n.Threshold,
		Timestamp:  n.Timestamp,
	}
}
