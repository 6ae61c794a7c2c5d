// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Aathif-M/workpulse/internal/breaks"
	"github.com/Aathif-M/workpulse/internal/hub"
)

// handleListBreakTypes returns break types. Non-managers see only active
// ones; the allowed-set policy is applied per user at start time, not here.
func (s *Server) handleListBreakTypes(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	activeOnly := !p.user.Role.Managerial()
	types, err := s.store.ListBreakTypes(r.Context(), activeOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if types == nil {
		types = []breaks.BreakType{}
	}
	writeJSON(w, http.StatusOK, types)
}

type breakTypeRequest struct {
	Name     string `json:"name"`
	Duration int64  `json:"duration"`
	IsActive *bool  `json:"isActive"`
}

func (req breakTypeRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	if req.Duration <= 0 {
		return "duration must be a positive number of seconds"
	}
	return ""
}

// handleCreateBreakType adds a break type.
func (s *Server) handleCreateBreakType(w http.ResponseWriter, r *http.Request) {
	var req breakTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeBadRequest(w, msg)
		return
	}

	bt := breaks.BreakType{Name: req.Name, Duration: req.Duration, IsActive: true}
	if req.IsActive != nil {
		bt.IsActive = *req.IsActive
	}

	created, err := s.store.CreateBreakType(r.Context(), bt)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.events.Publish(hub.Event{Type: hub.EventBreakUpdate})
	writeJSON(w, http.StatusCreated, created)
}

// handleUpdateBreakType edits a break type. Running sessions keep their
// snapshot; only future starts see the change.
func (s *Server) handleUpdateBreakType(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "breakTypeID"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid break type id")
		return
	}

	var req breakTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeBadRequest(w, msg)
		return
	}

	bt := breaks.BreakType{ID: id, Name: req.Name, Duration: req.Duration, IsActive: true}
	if req.IsActive != nil {
		bt.IsActive = *req.IsActive
	}

	if err := s.store.UpdateBreakType(r.Context(), bt); err != nil {
		writeError(w, r, err)
		return
	}

	s.events.Publish(hub.Event{Type: hub.EventBreakUpdate})
	writeJSON(w, http.StatusOK, bt)
}

// handleDeleteBreakType removes a break type (or deactivates it when
// history references it).
func (s *Server) handleDeleteBreakType(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "breakTypeID"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid break type id")
		return
	}

	if err := s.store.DeleteBreakType(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	s.events.Publish(hub.Event{Type: hub.EventBreakUpdate})
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
