// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Aathif-M/workpulse/internal/breaks"
)

// StartBreak creates an ONGOING session for the user at now. The allowed-set
// policy is checked here (the server is authoritative); the uniqueness
// invariant is enforced by both a pre-check and the partial unique index, so
// two racing starts cannot both commit.
func (s *Store) StartBreak(ctx context.Context, userID, breakTypeID int64, now time.Time) (breaks.Session, error) {
	user, err := s.UserByID(ctx, userID)
	if err != nil {
		return breaks.Session{}, err
	}
	bt, err := s.BreakTypeByID(ctx, breakTypeID)
	if err != nil {
		return breaks.Session{}, err
	}

	session, err := breaks.NewSession(user, bt, now)
	if err != nil {
		return breaks.Session{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return breaks.Session{}, fmt.Errorf("start break: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var ongoing int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM break_sessions WHERE user_id = ? AND status = ?`,
		userID, breaks.StatusOngoing,
	).Scan(&ongoing)
	if err != nil {
		return breaks.Session{}, fmt.Errorf("start break: %w", err)
	}
	if ongoing > 0 {
		return breaks.Session{}, breaks.ErrConflict
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO break_sessions
			(id, user_id, break_type_id, break_type_name, break_type_duration,
			 status, start_time, expected_end_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.UserID, session.BreakTypeID,
		session.BreakType.Name, session.BreakType.Duration,
		session.Status, session.StartTime.Unix(), session.ExpectedEndTime.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return breaks.Session{}, breaks.ErrConflict
		}
		return breaks.Session{}, fmt.Errorf("start break: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return breaks.Session{}, breaks.ErrConflict
		}
		return breaks.Session{}, fmt.Errorf("start break: %w", err)
	}
	return session, nil
}

// EndBreak closes the user's ongoing session at now and returns it. Without
// an ongoing session it returns ErrInvalidState, which clients treat as a
// stale-cache signal.
func (s *Store) EndBreak(ctx context.Context, userID int64, now time.Time) (breaks.Session, error) {
	session, err := s.OngoingSession(ctx, userID)
	if err != nil {
		if errors.Is(err, breaks.ErrNotFound) {
			return breaks.Session{}, breaks.ErrInvalidState
		}
		return breaks.Session{}, err
	}

	if err := session.End(now); err != nil {
		return breaks.Session{}, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE break_sessions
		SET status = ?, end_time = ?, violation_duration = ?
		WHERE id = ? AND status = ?`,
		session.Status, session.EndTime.Unix(), nullableInt(session.ViolationDuration),
		session.ID, breaks.StatusOngoing,
	)
	if err != nil {
		return breaks.Session{}, fmt.Errorf("end break: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return breaks.Session{}, fmt.Errorf("end break: %w", err)
	}
	if affected == 0 {
		// lost a race against another end/cancel
		return breaks.Session{}, breaks.ErrInvalidState
	}
	return session, nil
}

// CancelBreak administratively terminates a session by ID.
func (s *Store) CancelBreak(ctx context.Context, sessionID string, now time.Time) (breaks.Session, error) {
	session, err := s.SessionByID(ctx, sessionID)
	if err != nil {
		return breaks.Session{}, err
	}
	if err := session.Cancel(now); err != nil {
		return breaks.Session{}, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE break_sessions
		SET status = ?, end_time = ?, violation_duration = NULL
		WHERE id = ? AND status = ?`,
		session.Status, session.EndTime.Unix(), session.ID, breaks.StatusOngoing,
	)
	if err != nil {
		return breaks.Session{}, fmt.Errorf("cancel break: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return breaks.Session{}, fmt.Errorf("cancel break: %w", err)
	}
	if affected == 0 {
		return breaks.Session{}, breaks.ErrInvalidState
	}
	return session, nil
}

// OngoingSession returns the user's single ongoing session, or ErrNotFound.
func (s *Store) OngoingSession(ctx context.Context, userID int64) (breaks.Session, error) {
	row := s.db.QueryRowContext(ctx, sessionSelect+` WHERE user_id = ? AND status = ?`,
		userID, breaks.StatusOngoing)
	return scanSession(row)
}

// SessionByID fetches one session.
func (s *Store) SessionByID(ctx context.Context, id string) (breaks.Session, error) {
	row := s.db.QueryRowContext(ctx, sessionSelect+` WHERE id = ?`, id)
	return scanSession(row)
}

// History returns the user's sessions, newest first.
func (s *Store) History(ctx context.Context, userID int64, limit int) ([]breaks.Session, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		sessionSelect+` WHERE user_id = ? ORDER BY start_time DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectSessions(rows)
}

// HistoryAll returns sessions across all users, newest first.
func (s *Store) HistoryAll(ctx context.Context, limit int) ([]breaks.SessionWithUser, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.user_id, s.break_type_id, s.break_type_name,
		       s.break_type_duration, s.status, s.start_time,
		       s.expected_end_time, s.end_time, s.violation_duration,
		       u.name
		FROM break_sessions s
		JOIN users u ON u.id = s.user_id
		ORDER BY s.start_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history all: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []breaks.SessionWithUser
	for rows.Next() {
		var (
			rec       breaks.SessionWithUser
			start     int64
			expected  int64
			end       sql.NullInt64
			violation sql.NullInt64
		)
		err := rows.Scan(&rec.ID, &rec.UserID, &rec.BreakTypeID,
			&rec.BreakType.Name, &rec.BreakType.Duration, &rec.Status,
			&start, &expected, &end, &violation, &rec.UserName)
		if err != nil {
			return nil, fmt.Errorf("history all: %w", err)
		}
		rec.BreakType.ID = rec.BreakTypeID
		rec.StartTime = time.Unix(start, 0).UTC()
		rec.ExpectedEndTime = time.Unix(expected, 0).UTC()
		if end.Valid {
			t := time.Unix(end.Int64, 0).UTC()
			rec.EndTime = &t
		}
		if violation.Valid {
			v := violation.Int64
			rec.ViolationDuration = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ActiveSessions returns every ongoing session; the break monitor sweeps this.
func (s *Store) ActiveSessions(ctx context.Context) ([]breaks.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		sessionSelect+` WHERE status = ? ORDER BY start_time`, breaks.StatusOngoing)
	if err != nil {
		return nil, fmt.Errorf("active sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectSessions(rows)
}

const sessionSelect = `
	SELECT id, user_id, break_type_id, break_type_name, break_type_duration,
	       status, start_time, expected_end_time, end_time, violation_duration
	FROM break_sessions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (breaks.Session, error) {
	var (
		session   breaks.Session
		start     int64
		expected  int64
		end       sql.NullInt64
		violation sql.NullInt64
	)
	err := row.Scan(&session.ID, &session.UserID, &session.BreakTypeID,
		&session.BreakType.Name, &session.BreakType.Duration, &session.Status,
		&start, &expected, &end, &violation)
	if errors.Is(err, sql.ErrNoRows) {
		return breaks.Session{}, breaks.ErrNotFound
	}
	if err != nil {
		return breaks.Session{}, fmt.Errorf("scan session: %w", err)
	}
	session.BreakType.ID = session.BreakTypeID
	session.StartTime = time.Unix(start, 0).UTC()
	session.ExpectedEndTime = time.Unix(expected, 0).UTC()
	if end.Valid {
		t := time.Unix(end.Int64, 0).UTC()
		session.EndTime = &t
	}
	if violation.Valid {
		v := violation.Int64
		session.ViolationDuration = &v
	}
	return session, nil
}

func collectSessions(rows *sql.Rows) ([]breaks.Session, error) {
	var out []breaks.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

func nullableInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
