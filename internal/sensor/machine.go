package sensor

import "time"

// Hysteresis band ratios relative to the room threshold.
//
// An alarm raises when the level exceeds the threshold and clears only
// once the level drops below clearBandRatio*threshold. The gap prevents
// rapid trigger/clear oscillation around the threshold. Below
// normalBandRatio*threshold the derived status is normal; between that
// and the threshold it is warning.
const (
	clearBandRatio  = 0.8
	normalBandRatio = 0.5
)

// Transition computes the next record state and the side effects for one
// event. It is a pure function: it never blocks, never does I/O, and needs
// no locking as long as callers serialize invocations per record (the
// Store does this).
func Transition(rec Record, ev Event, now time.Time) (Record, []Notification) {
	switch e := ev.(type) {
	case Reading:
		// Operator override wins: automatic telemetry never overwrites a
		// manually set value until a ResetRoom clears the flag.
		if rec.IsManuallySet {
			return rec, nil
		}
		rec.SmokeLevel = clampLevel(e.Level)
		rec.LastUpdate = now
		return evaluateLevel(rec, now)

	case ManualSet:
		rec.SmokeLevel = clampLevel(e.Level)
		rec.IsManuallySet = true
		rec.LastUpdate = now
		return evaluateLevel(rec, now)

	case ThresholdUpdate:
		rec.Threshold = e.Value
		rec.LastUpdate = now
		return rec, []Notification{{
			Type:      NotifyThresholdUpdate,
			RoomID:    rec.RoomID,
			Threshold: e.Value,
			Timestamp: now,
		}}

	case TriggerTest:
		// Test pulses are transient signals only; persisted state is untouched.
		return rec, []Notification{{
			Type:      NotifyTestPulse,
			RoomID:    rec.RoomID,
			Timestamp: now,
		}}

	case ResetAlarm:
		rec.IsAlarmActive = false
		rec.Status = StatusNormal
		rec.LastUpdate = now
		return rec, []Notification{{
			Type:      NotifyAlarmReset,
			RoomID:    rec.RoomID,
			Timestamp: now,
		}}

	case ResetRoom:
		wasActive := rec.IsAlarmActive
		rec.SmokeLevel = 0
		rec.IsAlarmActive = false
		rec.Status = StatusNormal
		rec.IsManuallySet = false
		rec.LastUpdate = now

		var notes []Notification
		if wasActive {
			notes = append(notes, Notification{
				Type:      NotifyAlarmClear,
				RoomID:    rec.RoomID,
				Timestamp: now,
			})
		}
		notes = append(notes, Notification{
			Type:      NotifyRoomReset,
			RoomID:    rec.RoomID,
			Timestamp: now,
		})
		return rec, notes
	}

	return rec, nil
}

// evaluateLevel applies alarm hysteresis and status refinement after a
// level change.
//
// When the hysteresis comparison transitions the alarm flag, its status
// assignment is final. Otherwise the status is recomputed from the level
// alone, which may legitimately leave status=warning while a latched alarm
// is still active inside the hysteresis band.
func evaluateLevel(rec Record, now time.Time) (Record, []Notification) {
	var notes []Notification

	switch {
	case rec.SmokeLevel > rec.Threshold && !rec.IsAlarmActive:
		rec.IsAlarmActive = true
		rec.Status = StatusAlarm
		notes = append(notes, Notification{
			Type:       NotifyAlarmTrigger,
			RoomID:     rec.RoomID,
			SmokeLevel: rec.SmokeLevel,
			Timestamp:  now,
		})
		return rec, notes

	case rec.SmokeLevel < rec.Threshold*clearBandRatio && rec.IsAlarmActive:
		rec.IsAlarmActive = false
		rec.Status = StatusNormal
		notes = append(notes, Notification{
			Type:      NotifyAlarmClear,
			RoomID:    rec.RoomID,
			Timestamp: now,
		})
		return rec, notes
	}

	switch {
	case rec.SmokeLevel == 0:
		rec.Status = StatusNormal
	case rec.SmokeLevel < rec.Threshold*normalBandRatio:
		rec.Status = StatusNormal
	case rec.SmokeLevel < rec.Threshold:
		rec.Status = StatusWarning
	}
	// Above the threshold without an alarm transition the status keeps its
	// latched value until hysteresis clears it.

	return rec, notes
}
