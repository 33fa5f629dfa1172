package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smokesense/smokesense-core/internal/service"
)

// handleTriggerAlarm forces one room into alarm as a manual override.
func (s *Server) handleTriggerAlarm(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.TriggerRoomAlarm(r.Context(), chi.URLParam(r, "roomId"), service.SourceAPI)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleTriggerAlarmAll forces every room into alarm.
func (s *Server) handleTriggerAlarmAll(w http.ResponseWriter, r *http.Request) {
	if err := s.service.TriggerGlobalAlarm(r.Context(), service.SourceAPI); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Snapshot())
}

// handleControlReset restores one room to its safe default state, clearing
// any manual override.
func (s *Server) handleControlReset(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.ResetRoom(r.Context(), chi.URLParam(r, "roomId"), service.SourceAPI)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleControlResetAll restores every room to its safe default state.
func (s *Server) handleControlResetAll(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ResetGlobal(r.Context(), service.SourceAPI); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Snapshot())
}

// setSmokeRequest is the body for POST /api/control/set-smoke/{roomId}.
type setSmokeRequest struct {
	Level *float64 `json:"smokeLevel"`
}

// handleSetSmoke manually overrides a room's smoke level.
func (s *Server) handleSetSmoke(w http.ResponseWriter, r *http.Request) {
	var req setSmokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Level == nil {
		writeBadRequest(w, "smokeLevel is required")
		return
	}

	rec, err := s.service.SetSmokeLevel(r.Context(), chi.URLParam(r, "roomId"), *req.Level, service.SourceAPI)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
