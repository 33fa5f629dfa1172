package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smokesense/smokesense-core/internal/sensor"
	"github.com/smokesense/smokesense-core/internal/service"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Sensor state and per-room operations
		r.Route("/sensors", func(r chi.Router) {
			r.Get("/", s.handleListSensors)

			r.Route("/{roomId}", func(r chi.Router) {
				r.Get("/", s.handleGetSensor)
				r.Get("/history", s.handleSensorHistory)
				r.Post("/config", s.handleSensorConfig)
				r.Post("/reset", s.handleSensorReset)
				r.Post("/test", s.handleSensorTest)
			})
		})

		// Static room registry
		r.Get("/rooms", s.handleListRooms)

		// Building-wide status and event history
		r.Get("/system/status", s.handleSystemStatus)
		r.Get("/events", s.handleListEvents)

		// Manual alarm controls
		r.Route("/control", func(r chi.Router) {
			r.Post("/trigger-alarm/{roomId}", s.handleTriggerAlarm)
			r.Post("/trigger-alarm-all", s.handleTriggerAlarmAll)
			r.Post("/reset/{roomId}", s.handleControlReset)
			r.Post("/reset-all", s.handleControlResetAll)
			r.Post("/set-smoke/{roomId}", s.handleSetSmoke)
		})
	})

	// WebSocket endpoint (outside /api; middleware applies)
	r.Get("/ws", s.handleWebSocket)

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// writeServiceError maps service and domain errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sensor.ErrUnknownRoom):
		writeNotFound(w, "room not found")
	case errors.Is(err, service.ErrInvalidInput):
		writeBadRequest(w, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
