package report

import (
	"sync"
	"time"
)

// Status is the final outcome of a scenario.
type Status string

const (
	Passed Status = "passed"
	Failed Status = "failed"
)

type ScenarioResult struct {
	Name     string
	Worker   string
	Platform string
	Status   Status
	Duration time.Duration
	// Err is the error that failed the scenario, if any.
	Err error
	// TeardownErrors are problems during cleanup. They are reported but do not change Status.
	TeardownErrors []error
}

// Results collects scenario results from concurrently running scenarios.
type Results struct {
	scenarios []ScenarioResult
	lock      sync.Mutex
}

func (r *Results) Add(result ScenarioResult) {
	r.lock.Lock()
	r.scenarios = append(r.scenarios, result)
	r.lock.Unlock()
}

func (r *Results) Scenarios() []ScenarioResult {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]ScenarioResult(nil), r.scenarios...)
}

func (r *Results) Failures() []ScenarioResult {
	var ret []ScenarioResult
	for _, s := range r.Scenarios() {
		if s.Status == Failed {
			ret = append(ret, s)
		}
	}
	return ret
}

// WithTeardownErrors returns the scenarios whose cleanup had problems, regardless of status.
func (r *Results) WithTeardownErrors() []ScenarioResult {
	var ret []ScenarioResult
	for _, s := range r.Scenarios() {
		if len(s.TeardownErrors) > 0 {
			ret = append(ret, s)
		}
	}
	return ret
}

func (r *Results) OK() bool {
	return len(r.Failures()) == 0
}
