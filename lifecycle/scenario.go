package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/petfinder/e2e-harness/fixtures"
	"github.com/petfinder/e2e-harness/framework"
	"github.com/petfinder/e2e-harness/session"
)

// State is the position of a scenario in its lifecycle.
type State int

const (
	NotStarted State = iota
	Running
	Passed
	Failed
	TornDown
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Running:
		return "running"
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	case TornDown:
		return "torn down"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ScenarioInfo is what the coordinator needs to know about a scenario from the test runner.
type ScenarioInfo struct {
	// ID identifies this execution of the scenario; it is used as the session registry's
	// worker id, so it must be unique among concurrently running scenarios.
	ID   string
	Name string
	Tags []string
}

// Scenario is the state of one scenario execution. It is created by Coordinator.Begin and
// discarded after Coordinator.End.
type Scenario struct {
	Info     ScenarioInfo
	Worker   string
	Platform session.PlatformKind
	Fixtures *fixtures.Tracker
	// Logger captures debug output, which the reporter shows if the scenario fails.
	Logger *framework.CapturingLogger

	coordinator    *Coordinator
	startedAt      time.Time
	state          State
	teardownErrors []error
	screenshots    int
	lock           sync.Mutex
}

// Session returns the automation session for the scenario's platform, creating it on first use.
func (s *Scenario) Session(ctx context.Context) (*session.Session, error) {
	sess, err := s.coordinator.sessions.Acquire(ctx, s.Worker, s.Platform)
	if err != nil {
		s.Logger.Printf("Could not create %s session: %s", s.Platform, err)
		return nil, err
	}
	return sess, nil
}

func (s *Scenario) State() State {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state
}

// TeardownErrors returns the problems caught while tearing the scenario down.
func (s *Scenario) TeardownErrors() []error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]error(nil), s.teardownErrors...)
}

func (s *Scenario) setState(state State) {
	s.lock.Lock()
	s.state = state
	s.lock.Unlock()
}

// finish moves a running scenario to Passed or Failed. Only the first caller gets true; every
// later or concurrent caller finds the scenario no longer running.
func (s *Scenario) finish(failed bool) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.state != Running {
		return false
	}
	s.state = Passed
	if failed {
		s.state = Failed
	}
	return true
}

func (s *Scenario) addTeardownError(err error) {
	s.lock.Lock()
	s.teardownErrors = append(s.teardownErrors, err)
	s.lock.Unlock()
}

func (s *Scenario) nextScreenshotLabel(suffix string) string {
	s.lock.Lock()
	s.screenshots++
	n := s.screenshots
	s.lock.Unlock()
	return fmt.Sprintf("%s-%02d-%s", s.Info.Name, n, suffix)
}

type scenarioContextKey struct{}

// FromContext returns the Scenario stored by Coordinator.Begin.
func FromContext(ctx context.Context) (*Scenario, bool) {
	s, ok := ctx.Value(scenarioContextKey{}).(*Scenario)
	return s, ok
}
