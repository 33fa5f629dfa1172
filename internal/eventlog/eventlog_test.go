package eventlog

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	_, err = db.Exec(`
		CREATE TABLE event_log (
			id         TEXT PRIMARY KEY,
			room_id    TEXT,
			type       TEXT NOT NULL,
			source     TEXT NOT NULL,
			details    TEXT,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		t.Fatalf("creating event_log table: %v", err)
	}

	return NewSQLiteRepository(db)
}

func TestRecordGeneratesIDAndTimestamp(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	entry := &Entry{
		RoomID: "room1",
		Type:   "alarm-trigger",
		Source: SourceBus,
		Details: map[string]any{
			"smokeLevel": 75.5,
		},
	}

	if err := repo.Record(ctx, entry); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if entry.ID == "" {
		t.Error("expected generated ID")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("expected generated CreatedAt")
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("Total = %d, want 1", result.Total)
	}

	got := result.Events[0]
	if got.RoomID != "room1" || got.Type != "alarm-trigger" || got.Source != SourceBus {
		t.Errorf("unexpected entry: %+v", got)
	}
	if got.Details["smokeLevel"] != 75.5 {
		t.Errorf("Details = %v", got.Details)
	}
}

func TestRecordGlobalEventHasNoRoom(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	entry := &Entry{
		Type:   "global-alarm-trigger",
		Source: SourceWebSocket,
	}
	if err := repo.Record(ctx, entry); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Events[0].RoomID != "" {
		t.Errorf("RoomID = %q, want empty", result.Events[0].RoomID)
	}
}

func TestListFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seed := []Entry{
		{RoomID: "room1", Type: "alarm-trigger", Source: SourceBus},
		{RoomID: "room1", Type: "alarm-clear", Source: SourceBus},
		{RoomID: "room2", Type: "alarm-trigger", Source: SourceBus},
		{RoomID: "room2", Type: "threshold-update", Source: SourceAPI},
	}
	for i := range seed {
		if err := repo.Record(ctx, &seed[i]); err != nil {
			t.Fatalf("seeding entry %d: %v", i, err)
		}
	}

	tests := []struct {
		name      string
		filter    Filter
		wantTotal int
	}{
		{"no filter", Filter{}, 4},
		{"by room", Filter{RoomID: "room1"}, 2},
		{"by type", Filter{Type: "alarm-trigger"}, 2},
		{"by room and type", Filter{RoomID: "room2", Type: "alarm-trigger"}, 1},
		{"no match", Filter{RoomID: "room9"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if result.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", result.Total, tt.wantTotal)
			}
			if len(result.Events) != tt.wantTotal {
				t.Errorf("len(Events) = %d, want %d", len(result.Events), tt.wantTotal)
			}
		})
	}
}

func TestListPaginationAndOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		entry := &Entry{
			RoomID:    "room1",
			Type:      "alarm-test",
			Source:    SourceAPI,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Record(ctx, entry); err != nil {
			t.Fatalf("seeding entry %d: %v", i, err)
		}
	}

	result, err := repo.List(ctx, Filter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 5 {
		t.Errorf("Total = %d, want 5", result.Total)
	}
	if len(result.Events) != 2 {
		t.Fatalf("len(Events) = %d, want 2", len(result.Events))
	}

	// Most recent first; offset 1 skips the newest.
	want0 := base.Add(3 * time.Minute)
	if !result.Events[0].CreatedAt.Equal(want0) {
		t.Errorf("Events[0].CreatedAt = %v, want %v", result.Events[0].CreatedAt, want0)
	}
}

func TestListClampsLimit(t *testing.T) {
	repo := newTestRepo(t)

	result, err := repo.List(context.Background(), Filter{Limit: 500, Offset: -3})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Limit != 200 {
		t.Errorf("Limit = %d, want 200", result.Limit)
	}
	if result.Offset != 0 {
		t.Errorf("Offset = %d, want 0", result.Offset)
	}
	if result.Events == nil {
		t.Error("Events should be an empty slice, not nil")
	}
}
