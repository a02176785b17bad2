package environment

import (
	"fmt"
	"strings"
)

// DependencyStartupError means that a dependency did not become healthy, either because its
// startup procedure could not be launched or because it was still unhealthy when the timeout
// elapsed. It is fatal to the test run.
type DependencyStartupError struct {
	Dependency string
	Command    string
	LogTail    []string
	Err        error
}

func (e *DependencyStartupError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dependency %q did not start", e.Dependency)
	if e.Command != "" {
		fmt.Fprintf(&b, " (%s)", e.Command)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %s", e.Err)
	}
	if len(e.LogTail) > 0 {
		fmt.Fprintf(&b, "\nlast %d lines of output:", len(e.LogTail))
		for _, line := range e.LogTail {
			b.WriteString("\n  | ")
			b.WriteString(line)
		}
	}
	return b.String()
}

func (e *DependencyStartupError) Unwrap() error { return e.Err }
