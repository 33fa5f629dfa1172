package sensor

import "time"

// Status is the derived tri-state room condition.
type Status string

// Room status values.
const (
	StatusNormal  Status = "normal"
	StatusWarning Status = "warning"
	StatusAlarm   Status = "alarm"
)

// Smoke level domain bounds.
const (
	MinLevel = 0.0
	MaxLevel = 100.0
)

// Position is a room's floor-plan coordinate.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Dimensions is a room's floor-plan extent.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Room is one entry in the static room registry. Rooms are created at
// startup and never mutated or destroyed.
type Room struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Record is the current sensor state for one room.
//
// Status and IsAlarmActive are derived by Transition and must never be set
// directly by transport code. IsManuallySet marks an operator override:
// while set, bus readings are ignored until a ResetRoom clears it.
// ConnectionStatus, Online, and LastHeartbeat are best-effort liveness
// metadata maintained outside the alarm logic.
type Record struct {
	RoomID           string     `json:"roomId"`
	RoomName         string     `json:"roomName"`
	SmokeLevel       float64    `json:"smokeLevel"`
	Threshold        float64    `json:"threshold"`
	Status           Status     `json:"status"`
	IsAlarmActive    bool       `json:"isAlarmActive"`
	IsManuallySet    bool       `json:"isManuallySet"`
	ConnectionStatus string     `json:"connectionStatus,omitempty"`
	Online           bool       `json:"online"`
	LastHeartbeat    *time.Time `json:"lastHeartbeat,omitempty"`
	LastUpdate       time.Time  `json:"lastUpdate"`
	Position         Position   `json:"position"`
	Dimensions       Dimensions `json:"dimensions"`
}

// clampLevel bounds a smoke level to the sensor domain [0,100].
func clampLevel(level float64) float64 {
	if level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}
