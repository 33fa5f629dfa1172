package api

import (
	"encoding/json"
	"testing"

	"github.com/smokesense/smokesense-core/internal/service"
)

func newHubClient(hub *Hub) *WSClient {
	return &WSClient{
		hub:  hub,
		send: make(chan []byte, wsSendBufferSize),
	}
}

func drain(t *testing.T, c *WSClient) [][]byte {
	t.Helper()

	var out [][]byte
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestHubInitialStateBeforeBroadcasts(t *testing.T) {
	srv, _ := newTestServer(t)
	hub := srv.Hub()

	client := newHubClient(hub)
	hub.Register(client)
	defer hub.Unregister(client)

	hub.Broadcast(service.EventMessage{Type: "alarm-trigger", RoomID: "room1"})

	msgs := drain(t, client)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want initial-state then broadcast", len(msgs))
	}

	var first initialState
	if err := json.Unmarshal(msgs[0], &first); err != nil {
		t.Fatalf("decoding first message: %v", err)
	}
	if first.Type != WSTypeInitialState {
		t.Errorf("first message type = %q, want initial-state", first.Type)
	}
	if len(first.Data) != 2 || len(first.Rooms) != 2 {
		t.Errorf("initial state = %+v", first)
	}

	var second map[string]any
	if err := json.Unmarshal(msgs[1], &second); err != nil {
		t.Fatalf("decoding second message: %v", err)
	}
	if second["type"] != "alarm-trigger" {
		t.Errorf("second message = %v", second)
	}
}

func TestHubBroadcastSkipsFullBuffers(t *testing.T) {
	srv, _ := newTestServer(t)
	hub := srv.Hub()

	slow := &WSClient{hub: hub, send: make(chan []byte)} // unbuffered, never read
	hub.mu.Lock()
	hub.clients[slow] = struct{}{}
	hub.mu.Unlock()
	defer hub.Unregister(slow)

	fast := newHubClient(hub)
	hub.Register(fast)
	defer hub.Unregister(fast)
	drain(t, fast)

	// Must not block on the slow client.
	hub.Broadcast(service.EventMessage{Type: "alarm-clear", RoomID: "room1"})

	if msgs := drain(t, fast); len(msgs) != 1 {
		t.Errorf("fast client messages = %d, want 1", len(msgs))
	}
}

func TestHubUnregisterIdempotent(t *testing.T) {
	srv, _ := newTestServer(t)
	hub := srv.Hub()

	client := newHubClient(hub)
	hub.Register(client)

	hub.Unregister(client)
	hub.Unregister(client) // second call must not panic

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d, want 0", hub.ClientCount())
	}
}

func TestDispatchCommands(t *testing.T) {
	srv, _ := newTestServer(t)
	hub := srv.Hub()
	client := newHubClient(hub)

	threshold := 40.0
	level := 60.0

	tests := []struct {
		name    string
		cmd     wsCommand
		wantErr bool
	}{
		{"reset alarm", wsCommand{Type: WSCmdResetAlarm, RoomID: "room1"}, false},
		{"update threshold", wsCommand{Type: WSCmdUpdateThreshold, RoomID: "room1", Threshold: &threshold}, false},
		{"threshold missing", wsCommand{Type: WSCmdUpdateThreshold, RoomID: "room1"}, true},
		{"silence", wsCommand{Type: WSCmdSilenceAlarm, RoomID: "room1"}, false},
		{"test alarm", wsCommand{Type: WSCmdTestAlarm, RoomID: "room1"}, false},
		{"trigger room", wsCommand{Type: WSCmdTriggerRoomAlarm, RoomID: "room1"}, false},
		{"trigger global", wsCommand{Type: WSCmdTriggerGlobalAlarm}, false},
		{"reset room status", wsCommand{Type: WSCmdResetRoomStatus, RoomID: "room1"}, false},
		{"reset global status", wsCommand{Type: WSCmdResetGlobalStatus}, false},
		{"set manual smoke", wsCommand{Type: WSCmdSetManualSmoke, RoomID: "room1", Level: &level}, false},
		{"manual smoke missing level", wsCommand{Type: WSCmdSetManualSmoke, RoomID: "room1"}, true},
		{"unknown room", wsCommand{Type: WSCmdResetAlarm, RoomID: "room99"}, true},
		{"unknown command", wsCommand{Type: "launch-confetti"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.dispatch(tt.cmd)
			if (err != nil) != tt.wantErr {
				t.Errorf("dispatch(%s) error = %v, wantErr %v", tt.cmd.Type, err, tt.wantErr)
			}
		})
	}

	// Manual smoke override took effect through the dispatch path.
	rec, err := srv.service.Get("room1")
	if err != nil {
		t.Fatalf("Get error = %v", err)
	}
	if rec.SmokeLevel != 60 || !rec.IsManuallySet {
		t.Errorf("record after commands = %+v", rec)
	}
}

func TestHandleMessageSmokeLevelKey(t *testing.T) {
	srv, _ := newTestServer(t)
	client := newHubClient(srv.Hub())

	client.handleMessage([]byte(`{"type":"set-manual-smoke-level","roomId":"room1","smokeLevel":55}`))

	rec, err := srv.service.Get("room1")
	if err != nil {
		t.Fatalf("Get error = %v", err)
	}
	if rec.SmokeLevel != 55 || !rec.IsManuallySet {
		t.Errorf("record = %+v, want manual level 55", rec)
	}

	msgs := drain(t, client)
	if len(msgs) != 1 {
		t.Fatalf("replies = %d, want ack", len(msgs))
	}
	var reply map[string]any
	if err := json.Unmarshal(msgs[0], &reply); err != nil {
		t.Fatalf("decoding reply: %v", err)
	}
	if reply["type"] != WSTypeAck {
		t.Errorf("reply = %v, want ack", reply)
	}

	// The old key is not accepted as a fallback.
	client.handleMessage([]byte(`{"type":"set-manual-smoke-level","roomId":"room1","level":70}`))
	if rec, _ := srv.service.Get("room1"); rec.SmokeLevel != 55 {
		t.Errorf("SmokeLevel = %v, want 55 after rejected command", rec.SmokeLevel)
	}
}
