package environment

import (
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/petfinder/e2e-harness/config"
)

// Dependency is an external service that scenarios need, such as the backend API or a
// datastore behind it.
type Dependency struct {
	Name      string
	HealthURL string
	Timeout   time.Duration
	Interval  time.Duration
	// Starter is nil if the harness cannot start the dependency itself and can only wait for it.
	Starter Starter
}

// FromSpec converts a dependency definition from the dependencies file. If echo is non-nil,
// output of dependencies that run as child processes is copied to it.
func FromSpec(spec config.DependencySpec, echo io.Writer) (Dependency, error) {
	if _, err := url.Parse(spec.Health); err != nil {
		return Dependency{}, fmt.Errorf("dependency %q has an invalid health URL: %w", spec.Name, err)
	}
	d := Dependency{
		Name:      spec.Name,
		HealthURL: spec.Health,
		Timeout:   spec.Timeout,
		Interval:  spec.Interval,
	}
	switch {
	case spec.Process != nil:
		d.Starter = ProcessStarter{
			Command: spec.Process.Command,
			Dir:     spec.Process.Dir,
			Env:     spec.Process.Env,
			Echo:    echo,
		}
	case spec.Compose != nil:
		d.Starter = ComposeStarter{
			File:     spec.Compose.File,
			Project:  spec.Compose.Project,
			Services: spec.Compose.Services,
		}
	case spec.Container != nil:
		d.Starter = ContainerStarter{
			Name:  "petfinder-e2e-" + spec.Name,
			Image: spec.Container.Image,
			Ports: spec.Container.Ports,
			Env:   spec.Container.Env,
			Cmd:   spec.Container.Cmd,
		}
	}
	return d, nil
}

// FromSpecs converts every definition, stopping at the first invalid one.
func FromSpecs(specs []config.DependencySpec, echo io.Writer) ([]Dependency, error) {
	ret := make([]Dependency, 0, len(specs))
	for _, s := range specs {
		d, err := FromSpec(s, echo)
		if err != nil {
			return nil, err
		}
		ret = append(ret, d)
	}
	return ret, nil
}

func (d Dependency) describeStarter() string {
	if d.Starter == nil {
		return ""
	}
	return d.Starter.Describe()
}
