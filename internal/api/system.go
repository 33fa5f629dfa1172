package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/smokesense/smokesense-core/internal/eventlog"
)

// systemStatus summarises the building-wide alarm and liveness state.
type systemStatus struct {
	Status       string    `json:"status"`
	ActiveAlarms int       `json:"activeAlarms"`
	OnlineRooms  int       `json:"onlineRooms"`
	TotalRooms   int       `json:"totalRooms"`
	Clients      int       `json:"clients"`
	Timestamp    time.Time `json:"timestamp"`
}

// handleSystemStatus returns the building-wide status derived from the
// current sensor snapshot.
func (s *Server) handleSystemStatus(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.service.Snapshot()

	status := systemStatus{
		Status:     "ok",
		TotalRooms: len(snapshot),
		Clients:    s.Hub().ClientCount(),
		Timestamp:  time.Now().UTC(),
	}
	for _, rec := range snapshot {
		if rec.IsAlarmActive {
			status.ActiveAlarms++
		}
		if rec.Online {
			status.OnlineRooms++
		}
	}
	if status.ActiveAlarms > 0 {
		status.Status = "alarm"
	}

	writeJSON(w, http.StatusOK, status)
}

// handleListEvents returns event log entries, most recent first.
// Query parameters: roomId, type, limit, offset.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := eventlog.Filter{
		RoomID: q.Get("roomId"),
		Type:   q.Get("type"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "offset must be an integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.service.Events(r.Context(), filter)
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}
