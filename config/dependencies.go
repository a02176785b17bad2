package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"
)

const (
	defaultDependencyTimeout  = 2 * time.Minute
	defaultDependencyInterval = 2 * time.Second
)

// DependenciesFile is the format of the file given with -deps.
//
//	dependencies:
//	  - name: backend
//	    health: http://localhost:8080/api/health
//	    timeout: 3m
//	    process:
//	      command: ["./gradlew", "bootRun"]
//	      dir: ../backend
//	  - name: cache
//	    health: redis://localhost:6379
//	    container:
//	      image: redis:7
//	      ports: ["6379:6379"]
type DependenciesFile struct {
	Dependencies []DependencySpec `yaml:"dependencies"`
}

// DependencySpec describes one external service and how to start it. At most one of Process,
// Compose, or Container may be set; if none is, the dependency is only health-checked.
type DependencySpec struct {
	Name      string         `yaml:"name"`
	Health    string         `yaml:"health"`
	Timeout   time.Duration  `yaml:"timeout"`
	Interval  time.Duration  `yaml:"interval"`
	Process   *ProcessSpec   `yaml:"process,omitempty"`
	Compose   *ComposeSpec   `yaml:"compose,omitempty"`
	Container *ContainerSpec `yaml:"container,omitempty"`
}

type ProcessSpec struct {
	Command []string          `yaml:"command"`
	Dir     string            `yaml:"dir"`
	Env     map[string]string `yaml:"env"`
}

type ComposeSpec struct {
	File     string   `yaml:"file"`
	Project  string   `yaml:"project"`
	Services []string `yaml:"services"`
}

type ContainerSpec struct {
	Image string            `yaml:"image"`
	Ports []string          `yaml:"ports"`
	Env   map[string]string `yaml:"env"`
	Cmd   []string          `yaml:"cmd"`
}

// LoadDependencies reads and validates a dependencies file.
func LoadDependencies(path string) ([]DependencySpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read dependencies file: %w", err)
	}
	return ParseDependencies(data)
}

// ParseDependencies parses the YAML content of a dependencies file, applying defaults for the
// timeout and poll interval.
func ParseDependencies(data []byte) ([]DependencySpec, error) {
	var file DependenciesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("malformed dependencies file: %w", err)
	}
	seen := make(map[string]bool)
	for i := range file.Dependencies {
		d := &file.Dependencies[i]
		if d.Timeout <= 0 {
			d.Timeout = defaultDependencyTimeout
		}
		if d.Interval <= 0 {
			d.Interval = defaultDependencyInterval
		}
		if err := d.validate(); err != nil {
			return nil, err
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("dependency %q is defined more than once", d.Name)
		}
		seen[d.Name] = true
	}
	return file.Dependencies, nil
}

func (d DependencySpec) validate() error {
	if d.Name == "" {
		return errors.New("every dependency needs a name")
	}
	if d.Health == "" {
		return fmt.Errorf("dependency %q has no health URL", d.Name)
	}
	startups := 0
	if d.Process != nil {
		startups++
		if len(d.Process.Command) == 0 {
			return fmt.Errorf("dependency %q has an empty process command", d.Name)
		}
	}
	if d.Compose != nil {
		startups++
		if d.Compose.File == "" {
			return fmt.Errorf("dependency %q has no compose file", d.Name)
		}
	}
	if d.Container != nil {
		startups++
		if d.Container.Image == "" {
			return fmt.Errorf("dependency %q has no container image", d.Name)
		}
	}
	if startups > 1 {
		return fmt.Errorf("dependency %q can only have one startup procedure", d.Name)
	}
	return nil
}
