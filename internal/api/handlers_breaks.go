// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Aathif-M/workpulse/internal/breaks"
	"github.com/Aathif-M/workpulse/internal/hub"
	"github.com/Aathif-M/workpulse/internal/log"
	"github.com/Aathif-M/workpulse/internal/metrics"
)

type startBreakRequest struct {
	BreakTypeID int64 `json:"breakTypeId"`
}

// handleStartBreak opens a break session for the caller. The store enforces
// both the allowed-set policy and the single-ongoing-session invariant.
func (s *Server) handleStartBreak(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	var req startBreakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.BreakTypeID <= 0 {
		writeBadRequest(w, "breakTypeId is required")
		return
	}

	session, err := s.store.StartBreak(r.Context(), p.user.ID, req.BreakTypeID, s.clk.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	metrics.IncBreakStarted(session.BreakType.Name)
	s.events.Publish(hub.Event{Type: hub.EventBreakUpdate, UserID: p.user.ID})
	s.sweep(r.Context())

	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().
		Str(log.FieldSessionID, session.ID).
		Str(log.FieldBreakType, session.BreakType.Name).
		Time(log.FieldExpectedEnd, session.ExpectedEndTime).
		Msg("break started")

	writeJSON(w, http.StatusCreated, session)
}

// handleEndBreak closes the caller's ongoing session. A caller with no
// ongoing session gets 400; clients treat that as a stale cache and refresh.
func (s *Server) handleEndBreak(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	session, err := s.store.EndBreak(r.Context(), p.user.ID, s.clk.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	metrics.IncBreakEnded("ended")
	if session.ViolationDuration != nil {
		metrics.ObserveViolation(*session.ViolationDuration)
	}
	s.events.Publish(hub.Event{Type: hub.EventBreakUpdate, UserID: p.user.ID})
	s.sweep(r.Context())

	logger := log.WithComponentFromContext(r.Context(), "api")
	evt := logger.Info().Str(log.FieldSessionID, session.ID)
	if session.ViolationDuration != nil {
		evt = evt.Int64(log.FieldViolationSeconds, *session.ViolationDuration)
	}
	evt.Msg("break ended")

	writeJSON(w, http.StatusOK, session)
}

// handleCancelBreak administratively terminates a session by ID.
func (s *Server) handleCancelBreak(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, err := s.store.CancelBreak(r.Context(), sessionID, s.clk.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}

	metrics.IncBreakEnded("cancelled")
	s.events.Publish(hub.Event{Type: hub.EventBreakUpdate, UserID: session.UserID})
	s.sweep(r.Context())

	writeJSON(w, http.StatusOK, session)
}

// handleActiveBreak returns the caller's ongoing session, or 404.
func (s *Server) handleActiveBreak(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	session, err := s.store.OngoingSession(r.Context(), p.user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// handleHistory returns the caller's own sessions, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	history, err := s.store.History(r.Context(), p.user.ID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if history == nil {
		history = []breaks.Session{}
	}
	writeJSON(w, http.StatusOK, history)
}

// handleHistoryAll returns sessions across all users for manager views.
func (s *Server) handleHistoryAll(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	history, err := s.store.HistoryAll(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if history == nil {
		history = []breaks.SessionWithUser{}
	}
	writeJSON(w, http.StatusOK, history)
}
