package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/smokesense/smokesense-core/internal/eventlog"
	"github.com/smokesense/smokesense-core/internal/infrastructure/config"
	"github.com/smokesense/smokesense-core/internal/infrastructure/logging"
	"github.com/smokesense/smokesense-core/internal/infrastructure/mqtt"
	"github.com/smokesense/smokesense-core/internal/sensor"
	"github.com/smokesense/smokesense-core/internal/service"
)

// stubBus satisfies service.Publisher without a broker.
type stubBus struct {
	mu        sync.Mutex
	published []string
}

func (b *stubBus) Publish(topic string, _ []byte, _ byte, _ bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, topic)
	return nil
}

func (b *stubBus) PublishString(topic, _ string, _ byte, _ bool) error {
	return b.Publish(topic, nil, 0, false)
}

func (b *stubBus) Subscribe(string, byte, mqtt.MessageHandler) error { return nil }

// stubEventLog satisfies eventlog.Repository in memory.
type stubEventLog struct {
	mu      sync.Mutex
	entries []eventlog.Entry
}

func (l *stubEventLog) Record(_ context.Context, entry *eventlog.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, *entry)
	return nil
}

func (l *stubEventLog) List(_ context.Context, _ eventlog.Filter) (*eventlog.ListResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	events := append([]eventlog.Entry{}, l.entries...)
	return &eventlog.ListResult{Events: events, Total: len(events), Limit: 50}, nil
}

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Building.Floor = "floor1"
	cfg.MQTT.QoS = 1
	cfg.Alarm.HeartbeatTimeout = 15
	cfg.WebSocket.MaxMessageSize = 4096
	cfg.WebSocket.PingInterval = 30
	cfg.WebSocket.PongTimeout = 10

	rooms := []sensor.Room{
		{ID: "room1", Name: "Living Room", X: 10, Y: 10, Width: 200, Height: 150},
		{ID: "room2", Name: "Kitchen", X: 220, Y: 10, Width: 150, Height: 150},
	}
	store := sensor.NewStore(rooms, 50, time.Now())
	svc := service.New(cfg, store, sensor.NewHistory(10), &stubBus{}, &stubEventLog{}, logging.Default())

	srv, err := New(Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  logging.Default(),
		Service: svc,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	svc.SetBroadcaster(srv.Hub())

	return srv, srv.buildRouter()
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
}

func TestListSensors(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodGet, "/api/sensors", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var records []sensor.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(records) != 2 || records[0].RoomID != "room1" {
		t.Errorf("records = %+v", records)
	}
}

func TestGetSensorNotFound(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodGet, "/api/sensors/room99", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	var apiErr Error
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if apiErr.Code != ErrCodeNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, ErrCodeNotFound)
	}
}

func TestSensorConfigUpdatesThreshold(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodPost, "/api/sensors/room1/config",
		map[string]any{"threshold": 40})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var record sensor.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if record.Threshold != 40 {
		t.Errorf("Threshold = %v, want 40", record.Threshold)
	}
}

func TestSensorConfigValidation(t *testing.T) {
	_, handler := newTestServer(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"empty body", map[string]any{}, http.StatusBadRequest},
		{"threshold too high", map[string]any{"threshold": 150}, http.StatusBadRequest},
		{"threshold zero", map[string]any{"threshold": 0}, http.StatusBadRequest},
		{"bad sensitivity", map[string]any{"sensitivity": "extreme"}, http.StatusBadRequest},
		{"good sensitivity", map[string]any{"sensitivity": "high"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, handler, http.MethodPost, "/api/sensors/room1/config", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestControlTriggerAndReset(t *testing.T) {
	srv, handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodPost, "/api/control/trigger-alarm/room1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("trigger status = %d: %s", rec.Code, rec.Body.String())
	}

	var record sensor.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if !record.IsAlarmActive || !record.IsManuallySet {
		t.Errorf("record = %+v", record)
	}

	// System status reflects the alarm.
	rec = doRequest(t, handler, http.MethodGet, "/api/system/status", nil)
	var status systemStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if status.Status != "alarm" || status.ActiveAlarms != 1 {
		t.Errorf("status = %+v", status)
	}

	rec = doRequest(t, handler, http.MethodPost, "/api/control/reset-all", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset-all status = %d", rec.Code)
	}
	for _, r := range srv.service.Snapshot() {
		if r.IsAlarmActive || r.SmokeLevel != 0 {
			t.Errorf("room %s not reset: %+v", r.RoomID, r)
		}
	}
}

func TestSetSmokeValidation(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodPost, "/api/control/set-smoke/room1",
		map[string]any{"smokeLevel": 150})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodPost, "/api/control/set-smoke/room1",
		map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing level status = %d, want 400", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodPost, "/api/control/set-smoke/room1",
		map[string]any{"smokeLevel": 60})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestListEvents(t *testing.T) {
	_, handler := newTestServer(t)

	// Trip an alarm so the log has entries.
	doRequest(t, handler, http.MethodPost, "/api/control/trigger-alarm/room1", nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/events", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var result eventlog.ListResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if result.Total == 0 {
		t.Error("expected event log entries after alarm trigger")
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/events?limit=abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestSensorHistory(t *testing.T) {
	_, handler := newTestServer(t)

	doRequest(t, handler, http.MethodPost, "/api/control/set-smoke/room1",
		map[string]any{"smokeLevel": 30})

	rec := doRequest(t, handler, http.MethodGet, "/api/sensors/room1/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		RoomID  string          `json:"roomId"`
		Samples []sensor.Sample `json:"samples"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(body.Samples) != 1 || body.Samples[0].SmokeLevel != 30 {
		t.Errorf("samples = %+v", body.Samples)
	}
}

func TestListRooms(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodGet, "/api/rooms", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var rooms []sensor.Room
	if err := json.Unmarshal(rec.Body.Bytes(), &rooms); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(rooms) != 2 || rooms[1].Name != "Kitchen" {
		t.Errorf("rooms = %+v", rooms)
	}
}
