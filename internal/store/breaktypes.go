// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Aathif-M/workpulse/internal/breaks"
)

// ListBreakTypes returns break types, optionally restricted to active ones.
func (s *Store) ListBreakTypes(ctx context.Context, activeOnly bool) ([]breaks.BreakType, error) {
	query := `SELECT id, name, duration, is_active FROM break_types`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list break types: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []breaks.BreakType
	for rows.Next() {
		bt, err := scanBreakType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, bt)
	}
	return out, rows.Err()
}

// BreakTypeByID fetches one break type.
func (s *Store) BreakTypeByID(ctx context.Context, id int64) (breaks.BreakType, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, duration, is_active FROM break_types WHERE id = ?`, id)
	return scanBreakType(row)
}

// CreateBreakType inserts a break type.
func (s *Store) CreateBreakType(ctx context.Context, bt breaks.BreakType) (breaks.BreakType, error) {
	if bt.Duration <= 0 {
		return breaks.BreakType{}, fmt.Errorf("duration must be positive: %w", breaks.ErrInactiveBreakType)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO break_types (name, duration, is_active) VALUES (?, ?, ?)`,
		bt.Name, bt.Duration, bt.IsActive)
	if err != nil {
		if isUniqueViolation(err) {
			return breaks.BreakType{}, fmt.Errorf("break type %q already exists: %w", bt.Name, breaks.ErrConflict)
		}
		return breaks.BreakType{}, fmt.Errorf("create break type: %w", err)
	}
	bt.ID, err = res.LastInsertId()
	if err != nil {
		return breaks.BreakType{}, fmt.Errorf("create break type: %w", err)
	}
	return bt, nil
}

// UpdateBreakType rewrites a break type. Sessions snapshot the duration at
// start, so edits never move an already-running session's expected end.
func (s *Store) UpdateBreakType(ctx context.Context, bt breaks.BreakType) error {
	if bt.Duration <= 0 {
		return fmt.Errorf("duration must be positive: %w", breaks.ErrInactiveBreakType)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE break_types SET name = ?, duration = ?, is_active = ? WHERE id = ?`,
		bt.Name, bt.Duration, bt.IsActive, bt.ID)
	if err != nil {
		return fmt.Errorf("update break type: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return breaks.ErrNotFound
	}
	return nil
}

// DeleteBreakType removes a break type when no session references it, and
// deactivates it otherwise so history keeps resolving.
func (s *Store) DeleteBreakType(ctx context.Context, id int64) error {
	var referenced int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM break_sessions WHERE break_type_id = ?`, id).Scan(&referenced)
	if err != nil {
		return fmt.Errorf("delete break type: %w", err)
	}

	if referenced > 0 {
		res, err := s.db.ExecContext(ctx,
			`UPDATE break_types SET is_active = 0 WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete break type: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return breaks.ErrNotFound
		}
		return nil
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM break_types WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete break type: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return breaks.ErrNotFound
	}
	return nil
}

func scanBreakType(row rowScanner) (breaks.BreakType, error) {
	var (
		bt     breaks.BreakType
		active int
	)
	err := row.Scan(&bt.ID, &bt.Name, &bt.Duration, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return breaks.BreakType{}, breaks.ErrNotFound
	}
	if err != nil {
		return breaks.BreakType{}, fmt.Errorf("scan break type: %w", err)
	}
	bt.IsActive = active != 0
	return bt, nil
}
