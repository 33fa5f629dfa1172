package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of the building topic hierarchy.
//
// Room channels follow building/{floor}/{room}/{channel}; system channels
// follow building/system/{channel}. Sensors publish on the telemetry
// channels (smoke, status, heartbeat) and consume the control channels
// (alarm, reset, threshold, test, config) that Core republishes.
const TopicPrefix = "building"

// systemSegment is the floor-level segment reserved for system topics.
const systemSegment = "system"

// Topics provides builders for SmokeSense MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{Floor: "floor1"}
//	topics.RoomSmoke("room2") // "building/floor1/room2/smoke"
type Topics struct {
	// Floor is the floor segment used for room topics.
	Floor string
}

// room builds a room channel topic.
func (t Topics) room(roomID, channel string) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicPrefix, t.Floor, roomID, channel)
}

// RoomSmoke returns the smoke-level telemetry topic for a room.
// Payload: decimal string in [0,100].
func (t Topics) RoomSmoke(roomID string) string { return t.room(roomID, "smoke") }

// RoomStatus returns the sensor self-reported status topic for a room.
func (t Topics) RoomStatus(roomID string) string { return t.room(roomID, "status") }

// RoomHeartbeat returns the liveness heartbeat topic for a room.
func (t Topics) RoomHeartbeat(roomID string) string { return t.room(roomID, "heartbeat") }

// RoomAlarm returns the alarm state topic for a room.
// Payload: "active" or "cleared".
func (t Topics) RoomAlarm(roomID string) string { return t.room(roomID, "alarm") }

// RoomReset returns the reset command topic for a room.
// Payload: "true".
func (t Topics) RoomReset(roomID string) string { return t.room(roomID, "reset") }

// RoomThreshold returns the threshold configuration topic for a room.
// Payload: decimal string.
func (t Topics) RoomThreshold(roomID string) string { return t.room(roomID, "threshold") }

// RoomTest returns the test-pulse command topic for a room.
// Payload: "true".
func (t Topics) RoomTest(roomID string) string { return t.room(roomID, "test") }

// RoomConfig returns the structured configuration topic for a room.
// Payload: JSON (sensitivity, simulation mode).
func (t Topics) RoomConfig(roomID string) string { return t.room(roomID, "config") }

// SystemAlarm returns the building-wide alarm summary topic.
// Payload: JSON {roomId, smokeLevel, timestamp}.
func (Topics) SystemAlarm() string {
	return fmt.Sprintf("%s/%s/alarm", TopicPrefix, systemSegment)
}

// SystemStatus returns the backend online/offline status topic.
// Used for the Last Will and Testament and graceful shutdown messages.
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/%s/status", TopicPrefix, systemSegment)
}

// AllRoomSmoke returns a pattern matching smoke telemetry from any room.
//
// Pattern: building/+/+/smoke
func (Topics) AllRoomSmoke() string { return TopicPrefix + "/+/+/smoke" }

// AllRoomStatus returns a pattern matching status updates from any room.
//
// Pattern: building/+/+/status
func (Topics) AllRoomStatus() string { return TopicPrefix + "/+/+/status" }

// AllRoomHeartbeats returns a pattern matching heartbeats from any room.
//
// Pattern: building/+/+/heartbeat
func (Topics) AllRoomHeartbeats() string { return TopicPrefix + "/+/+/heartbeat" }

// AllSystem returns a pattern matching all system channels.
//
// Pattern: building/system/+
func (Topics) AllSystem() string {
	return fmt.Sprintf("%s/%s/+", TopicPrefix, systemSegment)
}

// ParseRoomTopic splits a room channel topic into its floor, room, and
// channel segments. ok is false for topics outside the room hierarchy
// (wrong prefix, wrong depth, or the system segment).
func ParseRoomTopic(topic string) (floor, roomID, channel string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != TopicPrefix || parts[1] == systemSegment {
		return "", "", "", false
	}
	return parts[1], parts[2], parts[3], true
}
