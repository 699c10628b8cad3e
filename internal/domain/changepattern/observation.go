// Package changepattern holds the Content-Change Predictor's value objects:
// bounded observation/change-timestamp histories, the closed set of
// temporal pattern classifications, calendar triggers, and the
// ContentChangePattern aggregate that ties them together per (domain,
// url-pattern).
package changepattern

import "time"

// ChangeObservation is a single point-in-time check of a tracked URL.
type ChangeObservation struct {
	CheckedAt   time.Time
	Changed     bool
	ContentHash string
}

// appendBounded appends v to buf, evicting the oldest entry once len(buf) exceeds maxLen.
func appendBounded[T any](buf []T, v T, maxLen int) []T {
	buf = append(buf, v)
	if len(buf) > maxLen {
		buf = buf[len(buf)-maxLen:]
	}
	return buf
}
