package crawler

import (
	"context"
	"time"
)

// TimerPauser sleeps for the requested delay or until ctx is done.
type TimerPauser struct{}

// Pause blocks for d. Non-positive delays return immediately.
func (TimerPauser) Pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
