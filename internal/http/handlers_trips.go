package http

import (
	"net/http"
	"strings"
)

func tripID(r *http.Request) string { return strings.TrimSpace(r.PathValue("tripID")) }

// handlePutTrip creates a trip with its cash instrument. Existing trips answer
// 409; their settings change through an edit session commit.
func (s *Server) handlePutTrip(w http.ResponseWriter, r *http.Request) {
	var req tripRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	settings, err := req.settings(tripID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, instruments, err := s.budget.CreateTrip(r.Context(), settings)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).
		Header("Location", "/trips/"+saved.TripID+"/settings").
		Data(map[string]any{
			"settings":    saved,
			"instruments": instruments,
		}).Write(w)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	view, err := s.reader.Settings(r.Context(), tripID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(view).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	view, err := s.reader.Summary(r.Context(), tripID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(view).Write(w)
}

func (s *Server) handleListInstruments(w http.ResponseWriter, r *http.Request) {
	view, err := s.reader.Instruments(r.Context(), tripID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(view).Write(w)
}

// handleBusy reports whether writes to the trip are in flight.
func (s *Server) handleBusy(w http.ResponseWriter, r *http.Request) {
	id := tripID(r)
	busy := s.budget.Busy()
	NewJSONResponse().Status(http.StatusCreated).
		Header("Location", "/trips/"+saved.TripID+"/settings").
		Data(map[string]any{
			"tripId":   id,
			"busy":     busy.Busy(id),
			"inFlight": busy.InFlight(id),
		}).Write(w)
}
