package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cucumber/godog"
	"github.com/cucumber/godog/colors"
	"github.com/fatih/color"

	"github.com/petfinder/e2e-harness/config"
	"github.com/petfinder/e2e-harness/environment"
	"github.com/petfinder/e2e-harness/fixtures"
	"github.com/petfinder/e2e-harness/framework"
	"github.com/petfinder/e2e-harness/framework/report"
	"github.com/petfinder/e2e-harness/lifecycle"
	"github.com/petfinder/e2e-harness/metrics"
	"github.com/petfinder/e2e-harness/session"
	"github.com/petfinder/e2e-harness/steps"
)

const stopDependenciesTimeout = 2 * time.Minute

func main() {
	var params commandParams
	if !params.Read(os.Args) {
		os.Exit(1)
	}

	results, err := run(params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !results.OK() {
		os.Exit(1)
	}
}

func run(params commandParams) (*report.Results, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mainLogger := framework.NewConsoleLogger(os.Stdout, color.New(color.Faint))
	var scenarioDebugLogger framework.Logger
	var dependencyEcho io.Writer
	if params.debugAll {
		scenarioDebugLogger = mainLogger
		dependencyEcho = os.Stdout
	}
	m := metrics.New()

	checker, err := environment.NewChecker(
		environment.WithLogger(framework.LoggerWithPrefix(mainLogger, "[env] ")),
		environment.WithMetrics(m),
		environment.WithHTTPClient(&http.Client{Timeout: cfg.Timeouts.HTTP}),
	)
	if err != nil {
		return nil, err
	}
	if params.stopDepsAtEnd {
		defer stopDependencies(checker, mainLogger)
	}
	if params.depsFile != "" {
		specs, err := config.LoadDependencies(params.depsFile)
		if err != nil {
			return nil, err
		}
		deps, err := environment.FromSpecs(specs, dependencyEcho)
		if err != nil {
			return nil, err
		}
		if err := checker.EnsureAll(ctx, deps); err != nil {
			return nil, err
		}
	}

	registry, err := session.NewRegistry(cfg,
		session.WithLogger(framework.LoggerWithPrefix(mainLogger, "[session] ")),
		session.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := registry.ReleaseAll(); err != nil {
			mainLogger.Printf("Error releasing sessions: %s", err)
		}
	}()

	gateway, err := fixtures.NewGateway(cfg.Backend, cfg.Timeouts.HTTP,
		fixtures.WithLogger(framework.LoggerWithPrefix(mainLogger, "[fixtures] ")),
		fixtures.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}

	coordinator, err := lifecycle.NewCoordinator(registry, gateway,
		lifecycle.WithDefaultPlatform(cfg.DefaultPlatform),
		lifecycle.WithScreenshots(cfg.ScreenshotDir, cfg.DebugScreenshots),
		lifecycle.WithLogger(scenarioDebugLogger),
		lifecycle.WithMetrics(m),
		lifecycle.WithReporter(report.ConsoleReporter{
			Out:                  os.Stdout,
			DebugOutputOnFailure: params.debug || params.debugAll,
			DebugOutputOnSuccess: params.debugAll,
		}),
	)
	if err != nil {
		return nil, err
	}
	mainLogger.Printf("Starting run %s", coordinator.RunID())

	harnessSteps := steps.Steps{
		Fixtures:       gateway,
		FrontendURL:    cfg.Frontend.URL,
		ElementTimeout: cfg.Timeouts.Element,
	}
	suite := godog.TestSuite{
		Name: "petfinder-e2e",
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			coordinator.InitializeScenario(sc)
			harnessSteps.Register(sc)
		},
		Options: &godog.Options{
			Format:         params.format,
			Tags:           params.tags,
			Paths:          params.paths,
			Concurrency:    params.concurrency,
			Output:         colors.Colored(os.Stdout),
			Strict:         true,
			DefaultContext: ctx,
		},
	}
	status := suite.Run()

	fmt.Println()
	results := coordinator.Results()
	report.PrintResults(os.Stdout, results)

	if params.recordFailures != "" {
		if err := writeFailures(params.recordFailures, results); err != nil {
			return nil, err
		}
	}
	if params.metricsFile != "" {
		if err := m.WriteFile(params.metricsFile); err != nil {
			return nil, fmt.Errorf("cannot write metrics file: %w", err)
		}
	}

	if status != 0 && results.OK() {
		// Undefined steps and unparseable feature files fail the suite without failing a scenario.
		return nil, fmt.Errorf("test suite exited with status %d", status)
	}
	return results, nil
}

func stopDependencies(checker *environment.Checker, logger framework.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), stopDependenciesTimeout)
	defer cancel()
	if err := checker.StopAll(ctx); err != nil {
		logger.Printf("Error stopping services: %s", err)
	}
}

func writeFailures(path string, results *report.Results) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create failures file: %w", err)
	}
	for _, s := range results.Failures() {
		fmt.Fprintln(f, s.Name)
	}
	return f.Close()
}
