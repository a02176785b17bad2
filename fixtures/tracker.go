package fixtures

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"golang.org/x/exp/slices"

	"github.com/petfinder/e2e-harness/framework"
)

// API is the part of Gateway that Tracker uses.
type API interface {
	CreateFixture(ctx context.Context, label string, fields map[string]ldvalue.Value) (Fixture, error)
	DeleteFixture(ctx context.Context, id string) error
}

// Tracker records the fixtures created during one scenario, so that all of them can be deleted
// when it ends. Each scenario has its own Tracker; nothing is shared between scenarios.
type Tracker struct {
	api      API
	logger   framework.Logger
	fixtures []Fixture
	lock     sync.Mutex
}

// NewTracker creates an empty Tracker.
func NewTracker(api API, logger framework.Logger) *Tracker {
	if logger == nil {
		logger = framework.NullLogger()
	}
	return &Tracker{api: api, logger: logger}
}

// Create creates a fixture and tracks it under the label. If the label is reused, Lookup returns
// the newest fixture, but all of them are still cleaned up.
func (t *Tracker) Create(ctx context.Context, label string, fields map[string]ldvalue.Value) (Fixture, error) {
	f, err := t.api.CreateFixture(ctx, label, fields)
	if err != nil {
		return Fixture{}, err
	}
	t.lock.Lock()
	t.fixtures = append(t.fixtures, f)
	t.lock.Unlock()
	return f, nil
}

// Lookup returns the most recent fixture with the label.
func (t *Tracker) Lookup(label string) (Fixture, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	for i := len(t.fixtures) - 1; i >= 0; i-- {
		if t.fixtures[i].Label == label {
			return t.fixtures[i], true
		}
	}
	return Fixture{}, false
}

// Fixtures returns the tracked fixtures in creation order.
func (t *Tracker) Fixtures() []Fixture {
	t.lock.Lock()
	defer t.lock.Unlock()
	return append([]Fixture(nil), t.fixtures...)
}

func (t *Tracker) Len() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.fixtures)
}

// CleanupAll deletes every tracked fixture in label order and stops tracking them. A failed
// deletion is logged and does not stop the others; all failures are returned together.
func (t *Tracker) CleanupAll(ctx context.Context) error {
	t.lock.Lock()
	pending := t.fixtures
	t.fixtures = nil
	t.lock.Unlock()

	slices.SortStableFunc(pending, func(a, b Fixture) int { return strings.Compare(a.Label, b.Label) })
	var errs []error
	for _, f := range pending {
		if err := t.api.DeleteFixture(ctx, f.ID); err != nil {
			t.logger.Printf("Cleanup of fixture %q failed: %s", f.Label, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
