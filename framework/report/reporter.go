// Package report shows scenario progress and results on the console.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/petfinder/e2e-harness/framework"
)

var consoleErrorColor = color.New(color.FgYellow)     //nolint:gochecknoglobals
var consoleFailedColor = color.New(color.FgRed)       //nolint:gochecknoglobals
var consoleTeardownColor = color.New(color.FgMagenta) //nolint:gochecknoglobals
var consoleDebugOutputColor = color.New(color.Faint)  //nolint:gochecknoglobals
var allPassedColor = color.New(color.FgGreen)         //nolint:gochecknoglobals

// Reporter receives scenario lifecycle events.
type Reporter interface {
	ScenarioStarted(name, platform string)
	ScenarioFinished(result ScenarioResult, debugOutput framework.CapturedOutput)
}

type nullReporter struct{}

func (nullReporter) ScenarioStarted(string, string)                            {}
func (nullReporter) ScenarioFinished(ScenarioResult, framework.CapturedOutput) {}

// NullReporter returns a Reporter that discards everything.
func NullReporter() Reporter { return nullReporter{} }

// ConsoleReporter writes progress to Out. Debug output captured for a scenario is shown
// depending on its outcome.
type ConsoleReporter struct {
	Out                  io.Writer
	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool
}

func (c ConsoleReporter) ScenarioStarted(name, platform string) {
	_, _ = fmt.Fprintf(c.Out, "[%s] (%s)\n", name, platform)
}

func (c ConsoleReporter) ScenarioFinished(result ScenarioResult, debugOutput framework.CapturedOutput) {
	failed := result.Status == Failed
	if result.Err != nil {
		printIndented(c.Out, consoleErrorColor, "  ", result.Err.Error())
	}
	for _, err := range result.TeardownErrors {
		printIndented(c.Out, consoleTeardownColor, "  teardown: ", err.Error())
	}
	if failed {
		_, _ = consoleFailedColor.Fprintf(c.Out, "  FAILED: %s (%s)\n", result.Name, result.Duration.Round(time.Millisecond))
	}
	if len(debugOutput) > 0 &&
		((failed && c.DebugOutputOnFailure) || (!failed && c.DebugOutputOnSuccess)) {
		_, _ = consoleDebugOutputColor.Fprintln(c.Out, debugOutput.ToString("    DEBUG "))
	}
}

func printIndented(out io.Writer, c *color.Color, prefix, text string) {
	for _, line := range strings.Split(text, "\n") {
		_, _ = c.Fprintf(out, "%s%s\n", prefix, line)
	}
}

// PrintResults writes a summary of the run.
func PrintResults(out io.Writer, results *Results) {
	all := results.Scenarios()
	failures := results.Failures()
	if len(failures) == 0 {
		_, _ = allPassedColor.Fprintf(out, "All scenarios passed (%d)\n", len(all))
	} else {
		_, _ = consoleFailedColor.Fprintf(out, "FAILED SCENARIOS (%d of %d):\n", len(failures), len(all))
		for _, f := range failures {
			_, _ = consoleFailedColor.Fprintf(out, "  * %s\n", f.Name)
		}
	}
	if withTeardown := results.WithTeardownErrors(); len(withTeardown) > 0 {
		_, _ = consoleTeardownColor.Fprintf(out, "SCENARIOS WITH CLEANUP ERRORS (%d):\n", len(withTeardown))
		for _, s := range withTeardown {
			_, _ = consoleTeardownColor.Fprintf(out, "  * %s\n", s.Name)
		}
	}
}
