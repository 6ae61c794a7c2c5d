// SPDX-License-Identifier: MIT

package clock

import (
	"fmt"
	"time"
)

// SecondsBetween returns floor((b-a) in seconds). The result is negative
// when b precedes a.
func SecondsBetween(a, b time.Time) int64 {
	d := b.Sub(a)
	if d >= 0 {
		return int64(d / time.Second)
	}
	// integer division truncates toward zero; floor needs the extra step down
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec--
	}
	return sec
}

// FormatHMS renders seconds as zero-padded HH:MM:SS. The sign is dropped;
// callers prepend their own marker for overruns.
func FormatHMS(seconds int64) string {
	if seconds < 0 {
		seconds = -seconds
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatCompact renders seconds using the largest two non-zero units,
// e.g. "1h 5m" or "45s". Zero and negative input yield "0s".
func FormatCompact(seconds int64) string {
	if seconds <= 0 {
		return "0s"
	}
	units := []struct {
		value int64
		tag   string
	}{
		{seconds / 3600, "h"},
		{(seconds % 3600) / 60, "m"},
		{seconds % 60, "s"},
	}

	out := ""
	kept := 0
	for _, u := range units {
		if u.value == 0 {
			continue
		}
		if kept > 0 {
			out += " "
		}
		out += fmt.Sprintf("%d%s", u.value, u.tag)
		kept++
		if kept == 2 {
			break
		}
	}
	return out
}
