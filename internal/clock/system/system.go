// Package system is the production crawler.Clock.
package system

import "time"

// Clock reads the host clock. Run summaries are stamped in UTC so they
// serialize without an offset.
type Clock struct{}

// New returns a Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time. UTC drops the monotonic reading, so
// Since measures wall time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}

// Since reports the time elapsed since t.
func (Clock) Since(t time.Time) time.Duration {
	return time.Since(t)
}
