// Package session manages the WebDriver and Appium sessions used by scenarios. Each worker (a
// concurrently running scenario) has at most one session, and no session is ever shared between
// workers.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tebeka/selenium"

	"github.com/petfinder/e2e-harness/config"
	"github.com/petfinder/e2e-harness/framework"
	"github.com/petfinder/e2e-harness/framework/helpers"
	"github.com/petfinder/e2e-harness/framework/opt"
	"github.com/petfinder/e2e-harness/metrics"
)

// DriverFactory creates a remote automation session. The default is selenium.NewRemote.
type DriverFactory func(caps selenium.Capabilities, serverURL string) (selenium.WebDriver, error)

// Registry holds the active session of each worker. It is safe for concurrent use.
type Registry struct {
	config         config.Config
	newDriver      DriverFactory
	builder        *AppBuilder
	sessionTimeout time.Duration
	logger         framework.Logger
	metrics        *metrics.Metrics

	sessions map[string]*Session
	lock     sync.Mutex
}

// RegistryOption is an option for NewRegistry.
type RegistryOption func(*Registry) error

func (o RegistryOption) Configure(r *Registry) error { return o(r) }

func WithDriverFactory(f DriverFactory) RegistryOption {
	return func(r *Registry) error {
		r.newDriver = f
		return nil
	}
}

// WithAppBuilder sets the builder that is run before the first mobile session of each platform.
// By default one is created from the configuration.
func WithAppBuilder(b *AppBuilder) RegistryOption {
	return func(r *Registry) error {
		r.builder = b
		return nil
	}
}

func WithLogger(logger framework.Logger) RegistryOption {
	return func(r *Registry) error {
		r.logger = logger
		return nil
	}
}

func WithMetrics(m *metrics.Metrics) RegistryOption {
	return func(r *Registry) error {
		r.metrics = m
		return nil
	}
}

// NewRegistry creates a Registry for the given configuration.
func NewRegistry(cfg config.Config, options ...RegistryOption) (*Registry, error) {
	r := &Registry{
		config:         cfg,
		newDriver:      selenium.NewRemote,
		sessionTimeout: cfg.Timeouts.Session,
		logger:         framework.NullLogger(),
		sessions:       make(map[string]*Session),
	}
	if err := helpers.ApplyOptions(r, options...); err != nil {
		return nil, err
	}
	if r.builder == nil {
		r.builder = NewAppBuilder(cfg, r.logger)
	}
	if r.sessionTimeout <= 0 {
		r.sessionTimeout = time.Minute
	}
	return r, nil
}

// Acquire returns the worker's session, creating it if the worker has none. An existing session
// for a different platform is an error, since a worker can only drive one surface at a time.
func (r *Registry) Acquire(ctx context.Context, worker string, kind PlatformKind) (*Session, error) {
	if existing := r.get(worker); existing != nil {
		if existing.Kind != kind {
			return nil, &SessionInitError{Platform: kind,
				Err: fmt.Errorf("worker already has a %s session", existing.Kind)}
		}
		return existing, nil
	}

	caps, endpoint, err := capabilitiesFor(r.config, kind)
	if err != nil {
		r.metrics.SessionFailed(string(kind))
		return nil, &SessionInitError{Platform: kind, Endpoint: endpoint, Err: err}
	}
	if err := r.builder.EnsureBuilt(ctx, kind); err != nil {
		r.metrics.SessionFailed(string(kind))
		return nil, &SessionInitError{Platform: kind, Endpoint: endpoint, Err: err}
	}

	driver, err := r.createDriver(ctx, caps, endpoint)
	if err != nil {
		r.metrics.SessionFailed(string(kind))
		return nil, &SessionInitError{Platform: kind, Endpoint: endpoint, Err: err}
	}
	s := &Session{Kind: kind, CreatedAt: time.Now(), Driver: driver}

	r.lock.Lock()
	if existing, ok := r.sessions[worker]; ok {
		// Another call for the same worker got there first.
		r.lock.Unlock()
		_ = driver.Quit()
		return existing, nil
	}
	r.sessions[worker] = s
	r.lock.Unlock()

	r.metrics.SessionCreated(string(kind))
	r.logger.Printf("Created %s session for worker %s", kind, worker)
	return s, nil
}

// createDriver calls the driver factory with a time limit. The factory itself cannot be
// cancelled, so if it finishes after the limit the late session is quit.
func (r *Registry) createDriver(
	ctx context.Context,
	caps selenium.Capabilities,
	endpoint string,
) (selenium.WebDriver, error) {
	ctx, cancel := context.WithTimeout(ctx, r.sessionTimeout)
	defer cancel()

	type result struct {
		driver selenium.WebDriver
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		d, err := r.newDriver(caps, endpoint)
		ch <- result{d, err}
	}()
	select {
	case res := <-ch:
		return res.driver, res.err
	case <-ctx.Done():
		go func() {
			if res := <-ch; res.driver != nil {
				_ = res.driver.Quit()
			}
		}()
		return nil, fmt.Errorf("session was not created within %s: %w", r.sessionTimeout, ctx.Err())
	}
}

func (r *Registry) get(worker string) *Session {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.sessions[worker]
}

// Release quits the worker's session. It does nothing if the worker has no session, so calling
// it twice is safe. The session is forgotten even if quitting it fails.
func (r *Registry) Release(worker string) error {
	r.lock.Lock()
	s, ok := r.sessions[worker]
	delete(r.sessions, worker)
	r.lock.Unlock()
	if !ok {
		return nil
	}
	r.metrics.SessionReleased(string(s.Kind))
	if err := s.Driver.Quit(); err != nil {
		return fmt.Errorf("error quitting %s session for worker %s: %w", s.Kind, worker, err)
	}
	r.logger.Printf("Released %s session for worker %s", s.Kind, worker)
	return nil
}

// ReleaseAll releases every session.
func (r *Registry) ReleaseAll() error {
	r.lock.Lock()
	workers := helpers.SortedKeys(r.sessions)
	r.lock.Unlock()

	var errs []error
	for _, w := range workers {
		if err := r.Release(w); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CurrentPlatform returns the platform of the worker's active session, if any. It asks the
// automation server first and falls back to the platform the session was created for.
func (r *Registry) CurrentPlatform(worker string) opt.Maybe[PlatformKind] {
	s := r.get(worker)
	if s == nil {
		return opt.None[PlatformKind]()
	}
	if caps, err := s.Driver.Capabilities(); err == nil {
		if name, ok := caps["platformName"].(string); ok {
			switch strings.ToLower(name) {
			case "android":
				return opt.Some(Android)
			case "ios":
				return opt.Some(IOS)
			}
		}
	}
	return opt.Some(s.Kind)
}

// Session returns the worker's active session without creating one.
func (r *Registry) Session(worker string) opt.Maybe[*Session] {
	if s := r.get(worker); s != nil {
		return opt.Some(s)
	}
	return opt.None[*Session]()
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.sessions)
}
