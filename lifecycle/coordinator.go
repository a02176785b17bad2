// Package lifecycle drives each scenario through its lifecycle: it detects the target platform
// when the scenario starts, gives steps lazy access to an automation session and a fixture
// tracker, and always tears everything down when the scenario ends, whatever the outcome.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/petfinder/e2e-harness/fixtures"
	"github.com/petfinder/e2e-harness/framework"
	"github.com/petfinder/e2e-harness/framework/helpers"
	"github.com/petfinder/e2e-harness/framework/opt"
	"github.com/petfinder/e2e-harness/framework/report"
	"github.com/petfinder/e2e-harness/metrics"
	"github.com/petfinder/e2e-harness/session"
)

const defaultCleanupTimeout = time.Minute

// Sessions is the part of session.Registry that the coordinator uses.
type Sessions interface {
	Acquire(ctx context.Context, worker string, kind session.PlatformKind) (*session.Session, error)
	Release(worker string) error
	Session(worker string) opt.Maybe[*session.Session]
}

// Coordinator begins and ends scenarios. It is safe for concurrent use.
type Coordinator struct {
	sessions         Sessions
	fixtures         fixtures.API
	defaultPlatform  session.PlatformKind
	screenshotDir    string
	debugScreenshots bool
	cleanupTimeout   time.Duration
	reporter         report.Reporter
	results          *report.Results
	logger           framework.Logger
	metrics          *metrics.Metrics
	runID            string
}

// CoordinatorOption is an option for NewCoordinator.
type CoordinatorOption func(*Coordinator) error

func (o CoordinatorOption) Configure(c *Coordinator) error { return o(c) }

// WithDefaultPlatform sets the platform for scenarios that have no platform tag. The default is web.
func WithDefaultPlatform(name string) CoordinatorOption {
	return func(c *Coordinator) error {
		k, err := session.ParsePlatform(name)
		if err != nil {
			return err
		}
		c.defaultPlatform = k
		return nil
	}
}

// WithScreenshots sets where screenshots are written and whether one is taken after every step,
// rather than only when a scenario fails.
func WithScreenshots(dir string, afterEveryStep bool) CoordinatorOption {
	return func(c *Coordinator) error {
		c.screenshotDir = dir
		c.debugScreenshots = afterEveryStep
		return nil
	}
}

func WithCleanupTimeout(timeout time.Duration) CoordinatorOption {
	return func(c *Coordinator) error {
		c.cleanupTimeout = timeout
		return nil
	}
}

func WithReporter(r report.Reporter) CoordinatorOption {
	return func(c *Coordinator) error {
		c.reporter = r
		return nil
	}
}

// WithLogger sets a logger that receives every scenario's debug output as it happens.
func WithLogger(logger framework.Logger) CoordinatorOption {
	return func(c *Coordinator) error {
		c.logger = logger
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) CoordinatorOption {
	return func(c *Coordinator) error {
		c.metrics = m
		return nil
	}
}

// NewCoordinator creates a Coordinator that acquires sessions from sessions and creates
// fixtures through api.
func NewCoordinator(sessions Sessions, api fixtures.API, options ...CoordinatorOption) (*Coordinator, error) {
	c := &Coordinator{
		sessions:        sessions,
		fixtures:        api,
		defaultPlatform: session.Web,
		screenshotDir:   "screenshots",
		cleanupTimeout:  defaultCleanupTimeout,
		reporter:        report.NullReporter(),
		results:         &report.Results{},
		runID:           uuid.NewString(),
	}
	if err := helpers.ApplyOptions(c, options...); err != nil {
		return nil, err
	}
	return c, nil
}

// Results returns the results of every scenario that has ended.
func (c *Coordinator) Results() *report.Results { return c.results }

// RunID identifies this harness run in logs.
func (c *Coordinator) RunID() string { return c.runID }

// DetectPlatform returns the platform named by the first platform tag, or the default platform
// if there is none.
func (c *Coordinator) DetectPlatform(tags []string) session.PlatformKind {
	for _, tag := range tags {
		if k, err := session.ParsePlatform(tag); err == nil {
			return k
		}
	}
	return c.defaultPlatform
}

// Begin starts a scenario and returns a context carrying it. No session is created yet; steps
// call Scenario.Session when they need one.
func (c *Coordinator) Begin(ctx context.Context, info ScenarioInfo) (context.Context, *Scenario) {
	worker := helpers.IfElse(info.ID != "", info.ID, uuid.NewString())
	logger := framework.NewCapturingLogger(c.logger)
	s := &Scenario{
		Info:        info,
		Worker:      worker,
		Platform:    c.DetectPlatform(info.Tags),
		Logger:      logger,
		coordinator: c,
		startedAt:   time.Now(),
		state:       Running,
	}
	s.Fixtures = fixtures.NewTracker(c.fixtures, logger)
	logger.Printf("Run %s: starting %q on %s (worker %s)", c.runID, info.Name, s.Platform, worker)
	c.reporter.ScenarioStarted(info.Name, string(s.Platform))
	return context.WithValue(ctx, scenarioContextKey{}, s), s
}

// End tears a scenario down. It always runs every step: a failure screenshot if the scenario
// failed, fixture cleanup, and session release. Problems in those steps, including panics, are
// recorded as teardown errors and never stop the later steps. End returns scenarioErr unchanged.
func (c *Coordinator) End(ctx context.Context, s *Scenario, scenarioErr error) error {
	if !s.finish(scenarioErr != nil) {
		return scenarioErr
	}
	status := helpers.IfElse(scenarioErr != nil, report.Failed, report.Passed)

	// Teardown must not be cut short because the scenario's own context was cancelled.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cleanupTimeout)
	defer cancel()

	if scenarioErr != nil {
		c.teardownStep(s, "screenshot", func() error {
			return c.takeScreenshot(s, "failed")
		})
	}
	c.teardownStep(s, "cleanup", func() error {
		return s.Fixtures.CleanupAll(ctx)
	})
	c.teardownStep(s, "release", func() error {
		return c.sessions.Release(s.Worker)
	})

	result := report.ScenarioResult{
		Name:           s.Info.Name,
		Worker:         s.Worker,
		Platform:       string(s.Platform),
		Status:         status,
		Duration:       time.Since(s.startedAt),
		Err:            scenarioErr,
		TeardownErrors: s.TeardownErrors(),
	}
	s.Logger.Printf("Scenario %q %s in %s", s.Info.Name, status, result.Duration.Round(time.Millisecond))
	c.results.Add(result)
	c.metrics.ScenarioFinished(string(status))
	c.reporter.ScenarioFinished(result, s.Logger.Output())
	s.setState(TornDown)
	return scenarioErr
}

func (c *Coordinator) teardownStep(s *Scenario, name string, fn func() error) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}()
	if err != nil {
		err = fmt.Errorf("%s: %w", name, err)
		s.Logger.Printf("Teardown error in %s", err)
		s.addTeardownError(err)
		c.metrics.TeardownError(name)
	}
}

// takeScreenshot captures the scenario's active session, if it has one. It never creates a
// session just for a screenshot.
func (c *Coordinator) takeScreenshot(s *Scenario, suffix string) error {
	sess, ok := c.sessions.Session(s.Worker).Get()
	if !ok {
		s.Logger.Println("No screenshot taken: no active session")
		return nil
	}
	path, err := sess.Screenshot(c.screenshotDir, s.nextScreenshotLabel(suffix))
	if err != nil {
		return err
	}
	s.Logger.Printf("Saved screenshot %s", path)
	return nil
}
