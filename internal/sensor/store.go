package sensor

import (
	"sync"
	"time"
)

// Store holds the authoritative sensor state for every registered room.
//
// All mutation flows through Apply, Heartbeat, SetConnectionStatus, and
// MarkStale under a single mutex, so transitions for a room are serialized
// and readers always observe a consistent record. Accessors return copies;
// callers never hold references into the store.
type Store struct {
	mu      sync.Mutex
	order   []string
	rooms   map[string]Room
	records map[string]Record
}

// NewStore builds a store with one record per registered room, each starting
// at level zero, status normal, and the default threshold. Registry order is
// preserved for Snapshot and Rooms.
func NewStore(rooms []Room, defaultThreshold float64, now time.Time) *Store {
	s := &Store{
		order:   make([]string, 0, len(rooms)),
		rooms:   make(map[string]Room, len(rooms)),
		records: make(map[string]Record, len(rooms)),
	}
	for _, room := range rooms {
		s.order = append(s.order, room.ID)
		s.rooms[room.ID] = room
		s.records[room.ID] = Record{
			RoomID:     room.ID,
			RoomName:   room.Name,
			SmokeLevel: 0,
			Threshold:  defaultThreshold,
			Status:     StatusNormal,
			LastUpdate: now,
			Position:   Position{X: room.X, Y: room.Y},
			Dimensions: Dimensions{Width: room.Width, Height: room.Height},
		}
	}
	return s
}

// Get returns a copy of one room's record.
func (s *Store) Get(roomID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[roomID]
	if !ok {
		return Record{}, ErrUnknownRoom
	}
	return rec, nil
}

// Snapshot returns copies of every record in registry order.
func (s *Store) Snapshot() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out
}

// Rooms returns the static registry in registry order.
func (s *Store) Rooms() []Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Room, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rooms[id])
	}
	return out
}

// RoomIDs returns the registered room identifiers in registry order.
func (s *Store) RoomIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Apply runs one event through the transition function and commits the
// result. It returns the updated record and the notifications the caller
// must deliver. Delivery happens outside the store lock.
func (s *Store) Apply(roomID string, ev Event, now time.Time) (Record, []Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[roomID]
	if !ok {
		return Record{}, nil, ErrUnknownRoom
	}

	next, notes := Transition(rec, ev, now)
	s.records[roomID] = next
	return next, notes, nil
}

// Heartbeat records a liveness report for a room and marks it online.
// It returns the updated record and whether the room was offline before.
func (s *Store) Heartbeat(roomID string, now time.Time) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[roomID]
	if !ok {
		return Record{}, false, ErrUnknownRoom
	}

	wasOffline := !rec.Online
	ts := now
	rec.Online = true
	rec.LastHeartbeat = &ts
	s.records[roomID] = rec
	return rec, wasOffline, nil
}

// SetConnectionStatus stores the free-form connection status string a
// sensor last reported. Liveness tracking is separate; see Heartbeat.
func (s *Store) SetConnectionStatus(roomID, status string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[roomID]
	if !ok {
		return Record{}, ErrUnknownRoom
	}

	rec.ConnectionStatus = status
	s.records[roomID] = rec
	return rec, nil
}

// MarkStale flips rooms offline whose last heartbeat predates the cutoff.
// It returns the records that changed state, in registry order.
func (s *Store) MarkStale(cutoff time.Time) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed []Record
	for _, id := range s.order {
		rec := s.records[id]
		if !rec.Online {
			continue
		}
		if rec.LastHeartbeat == nil || rec.LastHeartbeat.Before(cutoff) {
			rec.Online = false
			s.records[id] = rec
			changed = append(changed, rec)
		}
	}
	return changed
}
