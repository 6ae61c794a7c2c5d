// SPDX-License-Identifier: MIT

package breaks

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Aathif-M/workpulse/internal/clock"
)

// NewSession creates an ONGOING session for the user at now. The break type
// is snapshotted into the session so the expected end never moves, even if
// the type's duration is edited mid-break.
//
// The one-ongoing-session-per-user invariant is NOT checked here; it is a
// shared resource guarded by the store (the single source of truth).
func NewSession(u User, bt BreakType, now time.Time) (Session, error) {
	if !Allowed(u, bt) {
		return Session{}, fmt.Errorf("user %d, break type %d: %w", u.ID, bt.ID, ErrForbidden)
	}
	if bt.Duration <= 0 {
		return Session{}, fmt.Errorf("break type %d has duration %d: %w", bt.ID, bt.Duration, ErrInactiveBreakType)
	}
	return Session{
		ID:              uuid.New().String(),
		UserID:          u.ID,
		BreakTypeID:     bt.ID,
		BreakType:       bt,
		Status:          StatusOngoing,
		StartTime:       now,
		ExpectedEndTime: now.Add(time.Duration(bt.Duration) * time.Second),
	}, nil
}

// End closes the session at now: status ENDED, end time recorded, violation
// fixed to max(0, now - expectedEnd) with nil meaning on time. Ending a
// session that is not ongoing returns ErrInvalidState and mutates nothing.
func (s *Session) End(now time.Time) error {
	if s.Status != StatusOngoing {
		return fmt.Errorf("session %s in state %s: %w", s.ID, s.Status, ErrInvalidState)
	}
	end := now
	s.Status = StatusEnded
	s.EndTime = &end
	if v := clock.SecondsBetween(s.ExpectedEndTime, now); v > 0 {
		s.ViolationDuration = &v
	} else {
		s.ViolationDuration = nil
	}
	return nil
}

// Cancel administratively terminates the session at now. Cancelled sessions
// record their end time but never a violation.
func (s *Session) Cancel(now time.Time) error {
	if s.Status != StatusOngoing {
		return fmt.Errorf("session %s in state %s: %w", s.ID, s.Status, ErrInvalidState)
	}
	end := now
	s.Status = StatusCancelled
	s.EndTime = &end
	s.ViolationDuration = nil
	return nil
}
