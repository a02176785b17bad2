// Package framework contains the low-level infrastructure shared by the harness packages.
// The base package contains the Logger types; other shared pieces are in the subpackages
// helpers, opt, and report.
//
// The general model is:
//
// 1. Before any scenario runs, the environment package verifies that every external
// dependency of the system under test is healthy, starting it if necessary.
//
// 2. Each scenario gets its own lifecycle.Scenario, which lazily acquires a browser or device
// session from the session registry and tracks the test fixtures it creates through the
// fixtures gateway.
//
// 3. When a scenario ends, its teardown captures diagnostics, deletes its fixtures and releases
// its session, no matter how the scenario ended.
package framework
