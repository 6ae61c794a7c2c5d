// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Aathif-M/workpulse/internal/auth"
	"github.com/Aathif-M/workpulse/internal/breaks"
	"github.com/Aathif-M/workpulse/internal/hub"
	"github.com/Aathif-M/workpulse/internal/log"
	"github.com/Aathif-M/workpulse/internal/metrics"
)

// handleListUsers returns every user with presence and their active session
// attached, the payload the manager live feed renders.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	for i := range users {
		online, err := s.sessions.Online(r.Context(), users[i].ID)
		if err != nil {
			s.logger.Warn().Err(err).Int64(log.FieldUserID, users[i].ID).Msg("presence lookup failed")
			continue
		}
		users[i].IsOnline = online
	}

	if users == nil {
		users = []breaks.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

type createUserRequest struct {
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	Password      string      `json:"password"`
	Role          breaks.Role `json:"role"`
	AllowedBreaks []int64     `json:"allowedBreaks"`
}

// handleCreateUser registers a user. New accounts must change the initial
// password on first login.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" {
		writeBadRequest(w, "name and email are required")
		return
	}
	if len(req.Password) < 8 {
		writeBadRequest(w, "password must be at least 8 characters")
		return
	}
	role := req.Role
	if role == "" {
		role = breaks.RoleAgent
	}
	if !role.Valid() {
		writeBadRequest(w, "unknown role")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := s.store.CreateUser(r.Context(), breaks.User{
		Name:               req.Name,
		Email:              req.Email,
		Role:               role,
		AllowedBreaks:      req.AllowedBreaks,
		MustChangePassword: true,
	}, hash)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// handleGetUser returns one user with presence.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid user id")
		return
	}

	user, err := s.store.UserByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if online, err := s.sessions.Online(r.Context(), user.ID); err == nil {
		user.IsOnline = online
	}
	if session, err := s.store.OngoingSession(r.Context(), user.ID); err == nil {
		user.BreakSessions = append(user.BreakSessions, session)
	}

	writeJSON(w, http.StatusOK, user)
}

type updateUserRequest struct {
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	Role          breaks.Role `json:"role"`
	AllowedBreaks []int64     `json:"allowedBreaks"`
}

// handleUpdateUser rewrites profile fields and the allowed-break set.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid user id")
		return
	}

	current, err := s.store.UserByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Name != "" {
		current.Name = req.Name
	}
	if req.Email != "" {
		current.Email = req.Email
	}
	if req.Role != "" {
		if !req.Role.Valid() {
			writeBadRequest(w, "unknown role")
			return
		}
		current.Role = req.Role
	}
	if req.AllowedBreaks != nil {
		current.AllowedBreaks = req.AllowedBreaks
	}

	if err := s.store.UpdateUser(r.Context(), current); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, current)
}

// handleDeleteUser removes a user and revokes their tokens.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid user id")
		return
	}

	p, _ := principalFrom(r.Context())
	if p.user.ID == id {
		writeBadRequest(w, "cannot delete your own account")
		return
	}

	if err := s.store.DeleteUser(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.sessions.RevokeUser(r.Context(), id); err != nil {
		s.logger.Warn().Err(err).Int64(log.FieldUserID, id).Msg("token revocation after delete failed")
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleForceLogout revokes every token the target user holds and pushes a
// force_logout event so connected clients drop their credentials.
func (s *Server) handleForceLogout(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid user id")
		return
	}

	if _, err := s.store.UserByID(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	// push first: once tokens are gone the event endpoint rejects the user
	s.events.Publish(hub.Event{
		Type:   hub.EventForceLogout,
		UserID: id,
		Reason: "logged out by administrator",
	})

	if err := s.sessions.RevokeUser(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	metrics.IncForcedLogout()
	p, _ := principalFrom(r.Context())
	s.logger.Info().
		Int64(log.FieldUserID, id).
		Int64("actor_id", p.user.ID).
		Msg("user forcibly logged out")

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
