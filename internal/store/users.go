// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Aathif-M/workpulse/internal/breaks"
)

// CreateUser inserts a user and their allowed-break assignments.
func (s *Store) CreateUser(ctx context.Context, u breaks.User, passwordHash string) (breaks.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return breaks.User{}, fmt.Errorf("create user: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO users (name, email, password_hash, role, must_change_password)
		VALUES (?, ?, ?, ?, ?)`,
		u.Name, u.Email, passwordHash, u.Role, u.MustChangePassword)
	if err != nil {
		if isUniqueViolation(err) {
			return breaks.User{}, fmt.Errorf("email %s already registered: %w", u.Email, breaks.ErrConflict)
		}
		return breaks.User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return breaks.User{}, fmt.Errorf("create user: %w", err)
	}
	u.ID = id

	for _, btID := range u.AllowedBreaks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_allowed_breaks (user_id, break_type_id) VALUES (?, ?)`,
			id, btID); err != nil {
			return breaks.User{}, fmt.Errorf("create user: assign break %d: %w", btID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return breaks.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// UserByID loads a user with their allowed-break set.
func (s *Store) UserByID(ctx context.Context, id int64) (breaks.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, must_change_password, last_login
		FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return breaks.User{}, err
	}
	u.AllowedBreaks, err = s.allowedBreaks(ctx, id)
	return u, err
}

// UserByEmail loads a user plus their password hash for login verification.
func (s *Store) UserByEmail(ctx context.Context, email string) (breaks.User, string, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, role, must_change_password, last_login, password_hash
		FROM users WHERE email = ?`, email)

	var (
		u         breaks.User
		mustPw    int
		lastLogin sql.NullInt64
		hash      string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &mustPw, &lastLogin, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return breaks.User{}, "", breaks.ErrNotFound
	}
	if err != nil {
		return breaks.User{}, "", fmt.Errorf("user by email: %w", err)
	}
	u.MustChangePassword = mustPw != 0
	if lastLogin.Valid {
		t := time.Unix(lastLogin.Int64, 0).UTC()
		u.LastLogin = &t
	}
	u.AllowedBreaks, err = s.allowedBreaks(ctx, u.ID)
	return u, hash, err
}

// ListUsers returns all users with their active session attached (at most
// one per user), the shape the manager live feed renders.
func (s *Store) ListUsers(ctx context.Context) ([]breaks.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, role, must_change_password, last_login
		FROM users ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []breaks.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range users {
		users[i].AllowedBreaks, err = s.allowedBreaks(ctx, users[i].ID)
		if err != nil {
			return nil, err
		}
		session, err := s.OngoingSession(ctx, users[i].ID)
		switch {
		case err == nil:
			users[i].BreakSessions = []breaks.Session{session}
		case errors.Is(err, breaks.ErrNotFound):
		default:
			return nil, err
		}
	}
	return users, nil
}

// UpdateUser rewrites mutable profile fields and the allowed-break set.
func (s *Store) UpdateUser(ctx context.Context, u breaks.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE users SET name = ?, email = ?, role = ?, must_change_password = ?
		WHERE id = ?`,
		u.Name, u.Email, u.Role, u.MustChangePassword, u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return breaks.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_allowed_breaks WHERE user_id = ?`, u.ID); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	for _, btID := range u.AllowedBreaks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_allowed_breaks (user_id, break_type_id) VALUES (?, ?)`,
			u.ID, btID); err != nil {
			return fmt.Errorf("update user: assign break %d: %w", btID, err)
		}
	}
	return tx.Commit()
}

// DeleteUser removes the user; sessions and assignments cascade.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return breaks.ErrNotFound
	}
	return nil
}

// SetPassword replaces the stored hash and clears the must-change flag.
func (s *Store) SetPassword(ctx context.Context, id int64, hash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, must_change_password = 0 WHERE id = ?`,
		hash, id)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return breaks.ErrNotFound
	}
	return nil
}

// TouchLastLogin records a successful login at now.
func (s *Store) TouchLastLogin(ctx context.Context, id int64, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE id = ?`, now.Unix(), id)
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}

func (s *Store) allowedBreaks(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT break_type_id FROM user_allowed_breaks WHERE user_id = ? ORDER BY break_type_id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("allowed breaks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanUser(row rowScanner) (breaks.User, error) {
	var (
		u         breaks.User
		mustPw    int
		lastLogin sql.NullInt64
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &mustPw, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return breaks.User{}, breaks.ErrNotFound
	}
	if err != nil {
		return breaks.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.MustChangePassword = mustPw != 0
	if lastLogin.Valid {
		t := time.Unix(lastLogin.Int64, 0).UTC()
		u.LastLogin = &t
	}
	return u, nil
}
