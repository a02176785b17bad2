package report

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/petfinder/e2e-harness/framework"
)

func withoutColor(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = saved })
}

func TestConsoleReporterFailedScenario(t *testing.T) {
	withoutColor(t)
	var buf bytes.Buffer
	r := ConsoleReporter{Out: &buf, DebugOutputOnFailure: true}
	logger := framework.NewCapturingLogger(nil)
	logger.Printf("created fixture")

	r.ScenarioStarted("Report a lost dog", "web")
	r.ScenarioFinished(ScenarioResult{
		Name:           "Report a lost dog",
		Status:         Failed,
		Duration:       1500 * time.Millisecond,
		Err:            errors.New("element not found\nline two"),
		TeardownErrors: []error{errors.New("screenshot failed")},
	}, logger.Output())

	out := buf.String()
	assert.Contains(t, out, "[Report a lost dog] (web)\n")
	assert.Contains(t, out, "  element not found\n  line two\n")
	assert.Contains(t, out, "  teardown: screenshot failed\n")
	assert.Contains(t, out, "  FAILED: Report a lost dog (1.5s)\n")
	assert.Contains(t, out, "] created fixture")
}

func TestConsoleReporterHidesDebugOutputOnSuccess(t *testing.T) {
	withoutColor(t)
	var buf bytes.Buffer
	r := ConsoleReporter{Out: &buf, DebugOutputOnFailure: true}
	logger := framework.NewCapturingLogger(nil)
	logger.Printf("created fixture")

	r.ScenarioFinished(ScenarioResult{Name: "ok", Status: Passed}, logger.Output())
	assert.Equal(t, "", buf.String())
}

func TestPrintResults(t *testing.T) {
	withoutColor(t)
	results := &Results{}
	results.Add(ScenarioResult{Name: "a", Status: Passed})
	results.Add(ScenarioResult{Name: "b", Status: Failed})
	results.Add(ScenarioResult{Name: "c", Status: Passed, TeardownErrors: []error{errors.New("x")}})
	assert.False(t, results.OK())

	var buf bytes.Buffer
	PrintResults(&buf, results)
	assert.Equal(t, "FAILED SCENARIOS (1 of 3):\n  * b\nSCENARIOS WITH CLEANUP ERRORS (1):\n  * c\n", buf.String())

	ok := &Results{}
	ok.Add(ScenarioResult{Name: "a", Status: Passed})
	buf.Reset()
	PrintResults(&buf, ok)
	assert.True(t, ok.OK())
	assert.Equal(t, "All scenarios passed (1)\n", buf.String())
}
