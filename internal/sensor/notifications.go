package sensor

import "time"

// NotificationType identifies a side effect requested by a transition.
type NotificationType string

// Notification types emitted by Transition.
const (
	NotifyAlarmTrigger    NotificationType = "alarm-trigger"
	NotifyAlarmClear      NotificationType = "alarm-clear"
	NotifyAlarmReset      NotificationType = "alarm-reset"
	NotifyRoomReset       NotificationType = "room-reset"
	NotifyThresholdUpdate NotificationType = "threshold-update"
	NotifyTestPulse       NotificationType = "alarm-test"
)

// Notification describes one side effect of a state transition: a message
// to broadcast to observers and, for most types, to republish onto the bus.
type Notification struct {
	Type       NotificationType `json:"type"`
	RoomID     string           `json:"roomId"`
	SmokeLevel float64          `json:"smokeLevel,omitempty"`
	Threshold  float64          `json:"threshold,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}
