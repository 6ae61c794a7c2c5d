// SPDX-License-Identifier: MIT

// Package breaks holds the break-session domain model: lifecycle states,
// transition rules and the violation computation. The package is pure; the
// server store and the client cache both build on it so the two sides agree
// on semantics.
package breaks

import (
	"time"

	"github.com/Aathif-M/workpulse/internal/clock"
)

// Status is the lifecycle state of a break session.
type Status string

const (
	StatusOngoing   Status = "ONGOING"
	StatusEnded     Status = "ENDED"
	StatusCancelled Status = "CANCELLED"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusEnded || s == StatusCancelled
}

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusOngoing, StatusEnded, StatusCancelled:
		return true
	}
	return false
}

// Role is a user's access level.
type Role string

const (
	RoleAgent      Role = "AGENT"
	RoleManager    Role = "MANAGER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Managerial reports whether the role receives manager-scope events and may
// read the all-users history.
func (r Role) Managerial() bool {
	switch r {
	case RoleManager, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAgent, RoleManager, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// BreakType is a named, pre-configured break duration.
type BreakType struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Duration int64  `json:"duration"` // seconds, > 0
	IsActive bool   `json:"isActive"`
}

// User is the account model. AllowedBreaks lists permitted break type IDs;
// an empty list means every active break type is permitted (see Allowed).
type User struct {
	ID                 int64      `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	Role               Role       `json:"role"`
	IsOnline           bool       `json:"isOnline"`
	LastLogin          *time.Time `json:"lastLogin,omitempty"`
	AllowedBreaks      []int64    `json:"allowedBreaks"`
	MustChangePassword bool       `json:"mustChangePassword"`

	// BreakSessions carries the user's active session (if any) on
	// manager-feed responses. At most one entry.
	BreakSessions []Session `json:"breakSessions,omitempty"`
}

// Session is one break from start to end. ExpectedEndTime and the break type
// snapshot are fixed at creation; a later edit of the BreakType never changes
// an already-started session.
type Session struct {
	ID              string     `json:"id"`
	UserID          int64      `json:"userId"`
	BreakTypeID     int64      `json:"breakTypeId"`
	BreakType       BreakType  `json:"breakType"` // snapshot taken at start
	Status          Status     `json:"status"`
	StartTime       time.Time  `json:"startTime"`
	ExpectedEndTime time.Time  `json:"expectedEndTime"`
	EndTime         *time.Time `json:"endTime,omitempty"`

	// ViolationDuration is the final overrun in seconds, set on end; nil
	// means the session ended on time (or has not ended).
	ViolationDuration *int64 `json:"violationDuration,omitempty"`
}

// SessionWithUser pairs a session with its owner's display fields for the
// manager-scope history.
type SessionWithUser struct {
	Session
	UserName string `json:"userName"`
}

// CurrentViolation returns the overrun in seconds at now. Ongoing sessions
// are measured live against the fixed expected end; ended sessions report the
// stored value; cancelled sessions never accrue violation. The result is
// never negative.
func (s *Session) CurrentViolation(now time.Time) int64 {
	switch s.Status {
	case StatusOngoing:
		if v := clock.SecondsBetween(s.ExpectedEndTime, now); v > 0 {
			return v
		}
		return 0
	case StatusEnded:
		if s.ViolationDuration != nil {
			return *s.ViolationDuration
		}
		return 0
	default:
		return 0
	}
}

// IsOverrun reports whether the session has exceeded its expected end at now.
func (s *Session) IsOverrun(now time.Time) bool {
	return s.CurrentViolation(now) > 0
}

// Remaining returns seconds until the expected end at now; negative once the
// session is overrun.
func (s *Session) Remaining(now time.Time) int64 {
	return clock.SecondsBetween(now, s.ExpectedEndTime)
}
