// Package steps defines the harness-level Gherkin steps: seeding fixtures and opening the app.
// Product-specific UI steps live with the feature files that use them.
package steps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/tebeka/selenium"

	"github.com/petfinder/e2e-harness/fixtures"
	"github.com/petfinder/e2e-harness/lifecycle"
)

var errNoScenario = errors.New("step is running outside of a scenario lifecycle")

// FixtureReader is the part of fixtures.Gateway used to check fixtures.
type FixtureReader interface {
	GetFixture(ctx context.Context, id string) (ldvalue.Value, error)
}

type Steps struct {
	Fixtures       FixtureReader
	FrontendURL    string
	ElementTimeout time.Duration
}

// Register adds the steps to a scenario.
func (st Steps) Register(sc *godog.ScenarioContext) {
	sc.Step(`^an? (?:pet )?announcement for "([^"]*)" the (\w+)$`, st.announcementFor)
	sc.Step(`^the fixtures from "([^"]*)"$`, st.fixturesFromFile)
	sc.Step(`^the announcement for "([^"]*)" has (\w+) "([^"]*)"$`, st.announcementHas)
	sc.Step(`^I open the "([^"]*)" page$`, st.openPage)
	sc.Step(`^the element "([^"]*)" is visible$`, st.elementIsVisible)
}

func scenarioFrom(ctx context.Context) (*lifecycle.Scenario, error) {
	s, ok := lifecycle.FromContext(ctx)
	if !ok {
		return nil, errNoScenario
	}
	return s, nil
}

func (st Steps) announcementFor(ctx context.Context, petName, species string) error {
	s, err := scenarioFrom(ctx)
	if err != nil {
		return err
	}
	_, err = s.Fixtures.Create(ctx, petName, map[string]ldvalue.Value{
		"petName": ldvalue.String(petName),
		"species": ldvalue.String(strings.ToUpper(species)),
	})
	return err
}

func (st Steps) fixturesFromFile(ctx context.Context, path string) error {
	s, err := scenarioFrom(ctx)
	if err != nil {
		return err
	}
	seeds, err := fixtures.LoadSeedFile(path)
	if err != nil {
		return err
	}
	for _, seed := range seeds {
		if _, err := s.Fixtures.Create(ctx, seed.Label, seed.Fields); err != nil {
			return err
		}
	}
	return nil
}

func (st Steps) announcementHas(ctx context.Context, label, field, expected string) error {
	s, err := scenarioFrom(ctx)
	if err != nil {
		return err
	}
	f, ok := s.Fixtures.Lookup(label)
	if !ok {
		return fmt.Errorf("no fixture named %q was created in this scenario", label)
	}
	v, err := st.Fixtures.GetFixture(ctx, f.ID)
	if err != nil {
		return err
	}
	if actual := v.GetByKey(field); actual.StringValue() != expected {
		return fmt.Errorf("expected %s of %q to be %q, got %s", field, label, expected, actual.JSONString())
	}
	return nil
}

func (st Steps) openPage(ctx context.Context, path string) error {
	s, err := scenarioFrom(ctx)
	if err != nil {
		return err
	}
	sess, err := s.Session(ctx)
	if err != nil {
		return err
	}
	return sess.Open(strings.TrimSuffix(st.FrontendURL, "/") + "/" + strings.TrimPrefix(path, "/"))
}

func (st Steps) elementIsVisible(ctx context.Context, selector string) error {
	s, err := scenarioFrom(ctx)
	if err != nil {
		return err
	}
	sess, err := s.Session(ctx)
	if err != nil {
		return err
	}
	if !sess.IsVisible(selenium.ByCSSSelector, selector, st.ElementTimeout) {
		return fmt.Errorf("element %q was not visible within %s", selector, st.ElementTimeout)
	}
	return nil
}
