// SPDX-License-Identifier: MIT

package breaks

import "errors"

var (
	// ErrConflict signals a start while the user already owns an ongoing
	// session. Surfaced to the user, never retried automatically.
	ErrConflict = errors.New("an ongoing break session already exists")

	// ErrForbidden signals a break type the user is not permitted to take.
	ErrForbidden = errors.New("break type not permitted for this user")

	// ErrInvalidState signals an end on a session that is not ongoing. On
	// the client this indicates a stale cache and triggers reconciliation.
	ErrInvalidState = errors.New("session is not ongoing")

	// ErrNotFound signals a missing user, break type or session.
	ErrNotFound = errors.New("not found")

	// ErrInactiveBreakType signals a start against a deactivated type.
	ErrInactiveBreakType = errors.New("break type is not active")
)
