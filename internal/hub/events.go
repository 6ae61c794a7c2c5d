// SPDX-License-Identifier: MIT

package hub

import "time"

// EventType names the push events understood by clients.
type EventType string

const (
	// EventBreakUpdate signals "something in the break dataset changed";
	// manager views respond by refreshing, not by patching fields.
	EventBreakUpdate EventType = "break_update"

	// EventBreakWarning warns the addressed user their break is ending.
	EventBreakWarning EventType = "break_warning"

	// EventForceLogout terminates the addressed user's session.
	EventForceLogout EventType = "force_logout"
)

// Event is one push notification. ID makes re-delivery detectable so
// dispatch side effects stay idempotent per event instance.
type Event struct {
	ID      string    `json:"id"`
	Type    EventType `json:"type"`
	UserID  int64     `json:"userId"`
	Message string    `json:"message,omitempty"`
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"at"`
}
