// Package util holds small internal helpers that have not earned a public
// API commitment.
package util

import "github.com/google/uuid"

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return "sess_" + uuid.NewString()
}

// Truncate shortens s for log output, appending an ellipsis when cut.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
