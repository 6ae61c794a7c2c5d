// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"

	"github.com/Aathif-M/workpulse/internal/auth"
	"github.com/Aathif-M/workpulse/internal/log"
	"github.com/Aathif-M/workpulse/internal/metrics"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

// handleLogin verifies credentials and issues a bearer token. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	user, hash, err := s.store.UserByEmail(r.Context(), req.Email)
	if err != nil || !auth.VerifyPassword(hash, req.Password) {
		metrics.IncLogin("failure")
		s.logger.Warn().
			Str("email", req.Email).
			Str("remote_addr", r.RemoteAddr).
			Msg("login rejected")
		writeUnauthorized(w)
		return
	}

	token, err := s.sessions.Issue(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	now := s.clk.Now()
	if err := s.store.TouchLastLogin(r.Context(), user.ID, now); err != nil {
		s.logger.Warn().Err(err).Int64(log.FieldUserID, user.ID).Msg("last login update failed")
	}
	user.LastLogin = &now
	user.IsOnline = true

	metrics.IncLogin("success")
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

// handleLogout revokes the caller's token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	if err := s.sessions.Revoke(r.Context(), p.token); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// handleChangePassword replaces the caller's password and clears the
// must-change flag. Every other token the user holds is revoked.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if len(req.NewPassword) < 8 {
		writeBadRequest(w, "new password must be at least 8 characters")
		return
	}

	_, hash, err := s.store.UserByEmail(r.Context(), p.user.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !auth.VerifyPassword(hash, req.CurrentPassword) {
		writeUnauthorized(w)
		return
	}

	newHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.SetPassword(r.Context(), p.user.ID, newHash); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.sessions.RevokeUser(r.Context(), p.user.ID); err != nil {
		s.logger.Warn().Err(err).Msg("token revocation after password change failed")
	}
	token, err := s.sessions.Issue(r.Context(), p.user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// handleMe returns the caller's profile with live presence fields.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	user, err := s.store.UserByID(r.Context(), p.user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	user.IsOnline = true

	session, err := s.store.OngoingSession(r.Context(), user.ID)
	if err == nil {
		user.BreakSessions = append(user.BreakSessions, session)
	}

	writeJSON(w, http.StatusOK, user)
}
