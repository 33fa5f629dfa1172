package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smokesense/smokesense-core/internal/service"
)

// handleListSensors returns the current state of every room sensor.
func (s *Server) handleListSensors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Snapshot())
}

// handleGetSensor returns the current state of one room sensor.
func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.Get(chi.URLParam(r, "roomId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleSensorHistory returns the retained smoke samples for a room,
// oldest first.
func (s *Server) handleSensorHistory(w http.ResponseWriter, r *http.Request) {
	samples, err := s.service.History(chi.URLParam(r, "roomId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"roomId":  chi.URLParam(r, "roomId"),
		"samples": samples,
	})
}

// sensorConfigRequest is the body for POST /api/sensors/{roomId}/config.
// Threshold and Sensitivity are both optional; at least one must be set.
type sensorConfigRequest struct {
	Threshold   *float64 `json:"threshold,omitempty"`
	Sensitivity string   `json:"sensitivity,omitempty"`
}

// handleSensorConfig updates a room's alarm threshold and/or forwards a
// sensitivity setting to the sensor.
func (s *Server) handleSensorConfig(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	var req sensorConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Threshold == nil && req.Sensitivity == "" {
		writeBadRequest(w, "threshold or sensitivity is required")
		return
	}

	if req.Threshold != nil {
		if _, err := s.service.UpdateThreshold(r.Context(), roomID, *req.Threshold, service.SourceAPI); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	if req.Sensitivity != "" {
		if err := s.service.SetSensitivity(r.Context(), roomID, req.Sensitivity, service.SourceAPI); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	rec, err := s.service.Get(roomID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleSensorReset acknowledges a room's alarm, clearing the alarm flag
// while leaving the smoke level alone.
func (s *Server) handleSensorReset(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.ResetAlarm(r.Context(), chi.URLParam(r, "roomId"), service.SourceAPI)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleSensorTest requests a test pulse for a room.
func (s *Server) handleSensorTest(w http.ResponseWriter, r *http.Request) {
	rec, err := s.service.TestAlarm(r.Context(), chi.URLParam(r, "roomId"), service.SourceAPI)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleListRooms returns the static room registry.
func (s *Server) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Rooms())
}
