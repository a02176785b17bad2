// Package metrics counts harness lifecycle events with Prometheus collectors, so that a CI job
// can pick up the numbers from a textfile at the end of a run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for one harness run. A nil *Metrics is valid and records nothing,
// so components can take it as an optional dependency.
type Metrics struct {
	registry *prometheus.Registry

	sessionsCreated  *prometheus.CounterVec
	sessionFailures  *prometheus.CounterVec
	sessionsReleased *prometheus.CounterVec
	fixturesCreated  prometheus.Counter
	fixturesDeleted  prometheus.Counter
	fixtureFailures  *prometheus.CounterVec
	dependencyStarts *prometheus.CounterVec
	scenarios        *prometheus.CounterVec
	teardownErrors   *prometheus.CounterVec
}

// New creates the collectors and registers them in a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "petfinder_e2e_sessions_created_total",
			Help: "Automation sessions created, by platform",
		}, []string{"platform"}),
		sessionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "petfinder_e2e_session_init_failures_total",
			Help: "Automation sessions that could not be created, by platform",
		}, []string{"platform"}),
		sessionsReleased: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "petfinder_e2e_sessions_released_total",
			Help: "Automation sessions released, by platform",
		}, []string{"platform"}),
		fixturesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "petfinder_e2e_fixtures_created_total",
			Help: "Test fixtures created through the API",
		}),
		fixturesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "petfinder_e2e_fixtures_deleted_total",
			Help: "Test fixtures deleted through the API, including ones that were already gone",
		}),
		fixtureFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "petfinder_e2e_fixture_failures_total",
			Help: "Fixture API calls that failed, by operation",
		}, []string{"operation"}),
		dependencyStarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "petfinder_e2e_dependency_starts_total",
			Help: "Startup procedures invoked, by dependency and outcome",
		}, []string{"dependency", "outcome"}),
		scenarios: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "petfinder_e2e_scenarios_total",
			Help: "Scenarios finished, by status",
		}, []string{"status"}),
		teardownErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "petfinder_e2e_teardown_errors_total",
			Help: "Errors caught during scenario teardown, by step",
		}, []string{"step"}),
	}
	m.registry.MustRegister(
		m.sessionsCreated,
		m.sessionFailures,
		m.sessionsReleased,
		m.fixturesCreated,
		m.fixturesDeleted,
		m.fixtureFailures,
		m.dependencyStarts,
		m.scenarios,
		m.teardownErrors,
	)
	return m
}

// Registry returns the registry holding all of the harness collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteFile writes the current values in the Prometheus text format, for the node exporter's
// textfile collector.
func (m *Metrics) WriteFile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) SessionCreated(platform string) {
	if m != nil {
		m.sessionsCreated.WithLabelValues(platform).Inc()
	}
}

func (m *Metrics) SessionFailed(platform string) {
	if m != nil {
		m.sessionFailures.WithLabelValues(platform).Inc()
	}
}

func (m *Metrics) SessionReleased(platform string) {
	if m != nil {
		m.sessionsReleased.WithLabelValues(platform).Inc()
	}
}

func (m *Metrics) FixtureCreated() {
	if m != nil {
		m.fixturesCreated.Inc()
	}
}

func (m *Metrics) FixtureDeleted() {
	if m != nil {
		m.fixturesDeleted.Inc()
	}
}

func (m *Metrics) FixtureFailed(operation string) {
	if m != nil {
		m.fixtureFailures.WithLabelValues(operation).Inc()
	}
}

func (m *Metrics) DependencyStarted(dependency string, ok bool) {
	if m != nil {
		outcome := "healthy"
		if !ok {
			outcome = "failed"
		}
		m.dependencyStarts.WithLabelValues(dependency, outcome).Inc()
	}
}

func (m *Metrics) ScenarioFinished(status string) {
	if m != nil {
		m.scenarios.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) TeardownError(step string) {
	if m != nil {
		m.teardownErrors.WithLabelValues(step).Inc()
	}
}
