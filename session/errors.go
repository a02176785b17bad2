package session

import (
	"fmt"
	"time"
)

// SessionInitError means that an automation session could not be created. It is not retried.
type SessionInitError struct {
	Platform PlatformKind
	Endpoint string
	Err      error
}

func (e *SessionInitError) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("cannot create %s session: %s", e.Platform, e.Err)
	}
	return fmt.Sprintf("cannot create %s session at %s: %s", e.Platform, e.Endpoint, e.Err)
}

func (e *SessionInitError) Unwrap() error { return e.Err }

// ElementWaitTimeout means that a condition on the UI did not become true in time.
type ElementWaitTimeout struct {
	Description string
	Timeout     time.Duration
	// LastErr is the last error returned by the condition, if any.
	LastErr error
}

func (e *ElementWaitTimeout) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for %s", e.Timeout, e.Description)
	if e.LastErr != nil {
		msg += fmt.Sprintf(" (last error: %s)", e.LastErr)
	}
	return msg
}

func (e *ElementWaitTimeout) Unwrap() error { return e.LastErr }
