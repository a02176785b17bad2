package helpers

import (
	"context"
	"time"
)

// PollUntil calls testFn immediately and then at each interval until it returns true, the timeout
// elapses, or the context is cancelled. It returns true only if testFn returned true. There is
// always a bound: a non-positive timeout means testFn is tried exactly once.
func PollUntil(
	ctx context.Context,
	interval time.Duration,
	timeout time.Duration,
	testFn func(context.Context) bool,
) bool {
	if testFn(ctx) {
		return true
	}
	if timeout <= 0 {
		return false
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return false
		case <-ticker.C:
			if testFn(ctx) {
				return true
			}
		}
	}
}
