// Package environment makes sure that the services the scenarios depend on are running before
// the suite starts, starting them if necessary, and stops at the end whatever it started.
package environment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/petfinder/e2e-harness/framework"
	"github.com/petfinder/e2e-harness/framework/helpers"
	"github.com/petfinder/e2e-harness/metrics"
)

const (
	defaultProbeTimeout = 5 * time.Second
	defaultStartTimeout = 2 * time.Minute
	stopTimeout         = 30 * time.Second
)

var errExitedEarly = errors.New("exited before becoming healthy")

// Checker checks and starts dependencies. It remembers which ones it started, so that only
// those are stopped at the end of a run. It is safe for concurrent use.
type Checker struct {
	probes       map[string]Probe
	probeTimeout time.Duration
	logTailLines int
	logger       framework.Logger
	metrics      *metrics.Metrics

	states map[string]*dependencyState
	lock   sync.Mutex
}

type dependencyState struct {
	dependency  Dependency
	handle      Handle
	startedByUs bool
	lock        sync.Mutex
}

// CheckerOption is an option for NewChecker.
type CheckerOption func(*Checker) error

func (o CheckerOption) Configure(c *Checker) error { return o(c) }

// WithHTTPClient sets the client used for http and https health URLs.
func WithHTTPClient(client *http.Client) CheckerOption {
	return func(c *Checker) error {
		hp := httpProbe{client: client}
		c.probes["http"] = hp
		c.probes["https"] = hp
		return nil
	}
}

// WithProbe sets the probe used for health URLs with the given scheme.
func WithProbe(scheme string, p Probe) CheckerOption {
	return func(c *Checker) error {
		c.probes[scheme] = p
		return nil
	}
}

// WithProbeTimeout sets the time limit for a single health check.
func WithProbeTimeout(timeout time.Duration) CheckerOption {
	return func(c *Checker) error {
		if timeout <= 0 {
			return errors.New("probe timeout must be positive")
		}
		c.probeTimeout = timeout
		return nil
	}
}

// WithLogTailLines sets how many lines of a dependency's output are included in a startup error.
func WithLogTailLines(n int) CheckerOption {
	return func(c *Checker) error {
		c.logTailLines = n
		return nil
	}
}

func WithLogger(logger framework.Logger) CheckerOption {
	return func(c *Checker) error {
		c.logger = logger
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) CheckerOption {
	return func(c *Checker) error {
		c.metrics = m
		return nil
	}
}

// NewChecker creates a Checker.
func NewChecker(options ...CheckerOption) (*Checker, error) {
	c := &Checker{
		probes:       defaultProbes(&http.Client{Timeout: defaultProbeTimeout}),
		probeTimeout: defaultProbeTimeout,
		logTailLines: defaultLogTailLines,
		logger:       framework.NullLogger(),
		states:       make(map[string]*dependencyState),
	}
	if err := helpers.ApplyOptions(c, options...); err != nil {
		return nil, err
	}
	return c, nil
}

// IsHealthy makes a single health check with a bounded timeout. Any error, including an
// unsupported URL scheme, counts as unhealthy.
func (c *Checker) IsHealthy(ctx context.Context, dep Dependency) bool {
	return c.check(ctx, dep) == nil
}

func (c *Checker) check(ctx context.Context, dep Dependency) error {
	u, err := url.Parse(dep.HealthURL)
	if err != nil {
		return err
	}
	probe, ok := c.probes[u.Scheme]
	if !ok {
		return fmt.Errorf("no health check available for URL scheme %q", u.Scheme)
	}
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()
	return probe.Check(probeCtx, u)
}

func (c *Checker) stateFor(dep Dependency) *dependencyState {
	c.lock.Lock()
	defer c.lock.Unlock()
	s, ok := c.states[dep.Name]
	if !ok {
		s = &dependencyState{dependency: dep}
		c.states[dep.Name] = s
	}
	return s
}

// EnsureRunning returns immediately if the dependency is healthy. Otherwise it runs the
// dependency's startup procedure and waits for it to become healthy, returning a
// *DependencyStartupError if it does not within the dependency's timeout. The startup procedure
// itself is also limited by that timeout, and a started process that exits with an error ends
// the wait early. Concurrent calls for the same dependency start it only once.
func (c *Checker) EnsureRunning(ctx context.Context, dep Dependency) error {
	s := c.stateFor(dep)
	s.lock.Lock()
	defer s.lock.Unlock()

	if c.IsHealthy(ctx, dep) {
		c.logger.Printf("%s is already running", dep.Name)
		return nil
	}
	if s.handle == nil {
		if dep.Starter == nil {
			return &DependencyStartupError{
				Dependency: dep.Name,
				Err:        fmt.Errorf("not healthy at %s and no startup procedure is defined", dep.HealthURL),
			}
		}
		c.logger.Printf("Starting %s: %s", dep.Name, dep.Starter.Describe())
		h, err := c.start(ctx, dep)
		if err != nil {
			c.metrics.DependencyStarted(dep.Name, false)
			return &DependencyStartupError{Dependency: dep.Name, Command: dep.Starter.Describe(), Err: err}
		}
		s.handle, s.startedByUs = h, true
	}

	pollCtx, cancelPoll := context.WithCancelCause(ctx)
	defer cancelPoll(nil)
	if w, ok := s.handle.(exitWatcher); ok {
		go func() {
			select {
			case <-w.Exited():
				if err := w.ExitErr(); err != nil {
					cancelPoll(fmt.Errorf("%w: %w", errExitedEarly, err))
				}
			case <-pollCtx.Done():
			}
		}()
	}

	interval := helpers.IfElse(dep.Interval > 0, dep.Interval, time.Second)
	var lastErr error
	healthy := helpers.PollUntil(pollCtx, interval, dep.Timeout, func(ctx context.Context) bool {
		lastErr = c.check(ctx, dep)
		return lastErr == nil
	})
	c.metrics.DependencyStarted(dep.Name, healthy)
	if healthy {
		c.logger.Printf("%s is healthy", dep.Name)
		return nil
	}
	cause := fmt.Errorf("not healthy after %s", dep.Timeout)
	switch exitCause := context.Cause(pollCtx); {
	case errors.Is(exitCause, errExitedEarly):
		cause = exitCause
	case ctx.Err() != nil:
		cause = ctx.Err()
	case lastErr != nil:
		cause = fmt.Errorf("not healthy after %s (last health check: %w)", dep.Timeout, lastErr)
	}
	tailCtx, cancel := context.WithTimeout(context.Background(), c.probeTimeout)
	defer cancel()
	return &DependencyStartupError{
		Dependency: dep.Name,
		Command:    dep.describeStarter(),
		LogTail:    s.handle.LogTail(tailCtx, c.logTailLines),
		Err:        cause,
	}
}

// start runs the startup procedure with the dependency's timeout. A Starter may not honor its
// context, so the call is abandoned when the time is up and a handle that arrives later is
// stopped.
func (c *Checker) start(ctx context.Context, dep Dependency) (Handle, error) {
	timeout := helpers.IfElse(dep.Timeout > 0, dep.Timeout, defaultStartTimeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		handle Handle
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		h, err := dep.Starter.Start(ctx)
		ch <- result{h, err}
	}()
	select {
	case res := <-ch:
		return res.handle, res.err
	case <-ctx.Done():
		go func() {
			if res := <-ch; res.handle != nil {
				stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
				defer cancel()
				if err := res.handle.Stop(stopCtx); err != nil {
					c.logger.Printf("Failed to stop late start of %s: %s", dep.Name, err)
				}
			}
		}()
		return nil, fmt.Errorf("startup procedure did not finish within %s: %w", timeout, ctx.Err())
	}
}

// EnsureAll ensures all of the dependencies concurrently and returns the first failure.
func (c *Checker) EnsureAll(ctx context.Context, deps []Dependency) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range deps {
		d := d
		g.Go(func() error { return c.EnsureRunning(gctx, d) })
	}
	return g.Wait()
}

// StopIfStartedByUs stops the dependency only if this Checker started it. Calling it again, or
// for a dependency that was already running, does nothing.
func (c *Checker) StopIfStartedByUs(ctx context.Context, dep Dependency) error {
	c.lock.Lock()
	s, ok := c.states[dep.Name]
	c.lock.Unlock()
	if !ok {
		return nil
	}
	return c.stop(ctx, s)
}

func (c *Checker) stop(ctx context.Context, s *dependencyState) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if !s.startedByUs || s.handle == nil {
		return nil
	}
	c.logger.Printf("Stopping %s", s.dependency.Name)
	stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	err := s.handle.Stop(stopCtx)
	s.handle, s.startedByUs = nil, false
	if err != nil {
		return fmt.Errorf("failed to stop %s: %w", s.dependency.Name, err)
	}
	return nil
}

// StopAll stops every dependency that this Checker started, in name order, and returns all of
// the errors.
func (c *Checker) StopAll(ctx context.Context) error {
	c.lock.Lock()
	states := make([]*dependencyState, 0, len(c.states))
	for _, name := range helpers.SortedKeys(c.states) {
		states = append(states, c.states[name])
	}
	c.lock.Unlock()

	var errs []error
	for _, s := range states {
		if err := c.stop(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StartedByUs returns the names of the dependencies this Checker has started and not stopped.
func (c *Checker) StartedByUs() []string {
	c.lock.Lock()
	defer c.lock.Unlock()
	var ret []string
	for _, name := range helpers.SortedKeys(c.states) {
		s := c.states[name]
		s.lock.Lock()
		if s.startedByUs {
			ret = append(ret, name)
		}
		s.lock.Unlock()
	}
	return ret
}
