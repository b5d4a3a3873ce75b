package api

import (
	"errors"
	"net/http"

	"roomfinder/internal/availability"
	"roomfinder/internal/metrics"
)

const msgStoreFailure = "failed to query room availability"

// handleRoomAvailability returns one room's free slots for a weekday.
// GET /api/room-availability?room=...&weekday=...
func (s *HTTPServer) handleRoomAvailability(w http.ResponseWriter, r *http.Request) {
	q, err := availability.ParseRoomQuery(r.URL.Query())
	if err != nil {
		s.writeQueryError(w, r, EndpointRoomAvailability, err)
		return
	}

	slots, err := s.engine.RoomAvailability(r.Context(), q)
	if err != nil {
		s.writeQueryError(w, r, EndpointRoomAvailability, err)
		return
	}

	metrics.ObserveResults(EndpointRoomAvailability, len(slots))
	writeJSON(w, http.StatusOK, slots)
}

// handleRoomsInBuilding returns intervals of the building's rooms, optionally only
// those containing checkTime.
// GET /api/rooms-in-building?building=...&weekday=...[&checkTime=HH:MM[:SS]]
func (s *HTTPServer) handleRoomsInBuilding(w http.ResponseWriter, r *http.Request) {
	q, err := availability.ParseBuildingQuery(r.URL.Query())
	if err != nil {
		s.writeQueryError(w, r, EndpointRoomsInBuilding, err)
		return
	}

	intervals, err := s.engine.RoomsInBuilding(r.Context(), q)
	if err != nil {
		s.writeQueryError(w, r, EndpointRoomsInBuilding, err)
		return
	}

	metrics.ObserveResults(EndpointRoomsInBuilding, len(intervals))
	writeJSON(w, http.StatusOK, intervals)
}

// handleBuildings returns the building directory.
// GET /api/buildings
func (s *HTTPServer) handleBuildings(w http.ResponseWriter, r *http.Request) {
	entries, err := s.engine.Buildings(r.Context())
	if err != nil {
		s.writeQueryError(w, r, EndpointBuildings, err)
		return
	}

	metrics.ObserveResults(EndpointBuildings, len(entries))
	writeJSON(w, http.StatusOK, entries)
}

// writeQueryError maps engine errors to responses. Parameter errors carry their own
// message; everything else is logged in full and answered generically.
func (s *HTTPServer) writeQueryError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	switch {
	case errors.Is(err, availability.ErrMissingParameter), errors.Is(err, availability.ErrInvalidParameter):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, availability.ErrStoreUnavailable):
		metrics.IncStoreError(endpoint)
		s.logger.Error().Err(err).
			Str("request_id", RequestIDFrom(r.Context())).
			Str("endpoint", endpoint).
			Msg("store query failed")
		writeError(w, http.StatusInternalServerError, msgStoreFailure)
	default:
		s.logger.Error().Err(err).
			Str("request_id", RequestIDFrom(r.Context())).
			Str("endpoint", endpoint).
			Msg("unexpected query error")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
