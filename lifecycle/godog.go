package lifecycle

import (
	"context"

	"github.com/cucumber/godog"
)

// InitializeScenario registers the lifecycle hooks with godog. It has the signature of
// godog.TestSuite.ScenarioInitializer, so it can be called from one.
func (c *Coordinator) InitializeScenario(sc *godog.ScenarioContext) {
	sc.Before(func(ctx context.Context, gs *godog.Scenario) (context.Context, error) {
		ctx, _ = c.Begin(ctx, infoFromPickle(gs))
		return ctx, nil
	})

	sc.After(func(ctx context.Context, gs *godog.Scenario, err error) (context.Context, error) {
		s, ok := FromContext(ctx)
		if !ok {
			return ctx, err
		}
		return ctx, c.End(ctx, s, err)
	})

	if c.debugScreenshots {
		sc.StepContext().After(func(
			ctx context.Context,
			_ *godog.Step,
			_ godog.StepResultStatus,
			err error,
		) (context.Context, error) {
			if s, ok := FromContext(ctx); ok {
				c.stepScreenshot(s)
			}
			return ctx, err
		})
	}
}

// stepScreenshot is best-effort: a failure is only logged.
func (c *Coordinator) stepScreenshot(s *Scenario) {
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Printf("Step screenshot panicked: %v", r)
		}
	}()
	if err := c.takeScreenshot(s, "step"); err != nil {
		s.Logger.Printf("Step screenshot failed: %s", err)
	}
}

func infoFromPickle(gs *godog.Scenario) ScenarioInfo {
	info := ScenarioInfo{ID: gs.Id, Name: gs.Name}
	for _, t := range gs.Tags {
		info.Tags = append(info.Tags, t.Name)
	}
	return info
}
