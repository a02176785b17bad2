package fixtures

import (
	"errors"
	"fmt"
)

// ErrFixtureNotFound is returned by GetFixture when the API has no record with the given id.
var ErrFixtureNotFound = errors.New("fixture not found")

// FixtureCreationError means that the API rejected a create request or could not be reached.
// Status is zero if no response was received.
type FixtureCreationError struct {
	Label  string
	Status int
	Body   string
	Err    error
}

func (e *FixtureCreationError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("could not create fixture %q: %s", e.Label, e.Err)
	}
	return fmt.Sprintf("could not create fixture %q: API returned HTTP %d: %s", e.Label, e.Status, e.Body)
}

func (e *FixtureCreationError) Unwrap() error { return e.Err }

// FixtureDeletionError means that a delete request failed for a reason other than the fixture
// already being gone.
type FixtureDeletionError struct {
	ID     string
	Status int
	Body   string
	Err    error
}

func (e *FixtureDeletionError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("could not delete fixture %s: %s", e.ID, e.Err)
	}
	return fmt.Sprintf("could not delete fixture %s: API returned HTTP %d: %s", e.ID, e.Status, e.Body)
}

func (e *FixtureDeletionError) Unwrap() error { return e.Err }
