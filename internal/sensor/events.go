package sensor

// Event is a request to change one room's sensor state. Events are produced
// by the ingestion adapter (bus telemetry) and the command handler
// (operator actions) and consumed by Transition.
type Event interface {
	isEvent()
}

// Reading is an automatic smoke-level report from the bus. It is ignored
// while the record carries a manual override.
type Reading struct {
	Level float64
}

// ManualSet is an operator override of the smoke level. It suppresses
// subsequent Readings until a ResetRoom.
type ManualSet struct {
	Level float64
}

// ThresholdUpdate changes the room's alarm threshold. The new threshold is
// not evaluated against the current level until the next Reading or
// ManualSet.
type ThresholdUpdate struct {
	Value float64
}

// TriggerTest requests a test pulse. It mutates no persisted alarm state.
type TriggerTest struct{}

// ResetAlarm clears the alarm flag and status without touching the smoke
// level or the manual override.
type ResetAlarm struct{}

// ResetRoom restores the room to its safe default state and clears the
// manual override.
type ResetRoom struct{}

func (Reading) isEvent()         {}
func (ManualSet) isEvent()       {}
func (ThresholdUpdate) isEvent() {}
func (TriggerTest) isEvent()     {}
func (ResetAlarm) isEvent()      {}
func (ResetRoom) isEvent()       {}
