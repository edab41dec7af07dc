// Package session owns per-session run admission and persistence: the
// Controller hands out monotonic generation numbers (at most one live run per
// session, newest wins), and Store implementations persist session state and
// checkpoints between runs.
package session
