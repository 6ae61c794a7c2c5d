// SPDX-License-Identifier: MIT

package breaks

// Allowed decides whether a user may take the given break type.
//
// The rule is deliberately a named function because the empty-list case is
// easy to get backwards: an empty AllowedBreaks list means every ACTIVE
// break type is permitted (legacy accounts predate per-user assignment).
// A non-empty list is an allowlist; membership alone decides, so an
// explicitly assigned type stays usable even if deactivated later.
func Allowed(u User, bt BreakType) bool {
	if len(u.AllowedBreaks) == 0 {
		return bt.IsActive
	}
	for _, id := range u.AllowedBreaks {
		if id == bt.ID {
			return true
		}
	}
	return false
}
