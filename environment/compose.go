package environment

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/alessio/shellescape"
)

// execCommandContext is a variable so that tests can replace the docker CLI.
var execCommandContext = exec.CommandContext

// ComposeStarter brings up services from a Docker Compose file with the docker CLI.
type ComposeStarter struct {
	File     string
	Project  string
	Services []string
}

func (c ComposeStarter) baseArgs() []string {
	args := []string{"compose", "-f", c.File}
	if c.Project != "" {
		args = append(args, "-p", c.Project)
	}
	return args
}

func (c ComposeStarter) upArgs() []string {
	return append(append(c.baseArgs(), "up", "-d"), c.Services...)
}

func (c ComposeStarter) Describe() string {
	return shellescape.QuoteCommand(append([]string{"docker"}, c.upArgs()...))
}

func (c ComposeStarter) Start(ctx context.Context) (Handle, error) {
	cmd := execCommandContext(ctx, "docker", c.upArgs()...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("docker compose up failed: %w\nOutput: %s", err, strings.TrimSpace(string(output)))
	}
	return composeHandle{starter: c}, nil
}

type composeHandle struct {
	starter ComposeStarter
}

// Stop stops the services without removing them, so that a developer can inspect them after a
// failed run.
func (h composeHandle) Stop(ctx context.Context) error {
	args := append(append(h.starter.baseArgs(), "stop"), h.starter.Services...)
	cmd := execCommandContext(ctx, "docker", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("docker compose stop failed: %w\nOutput: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (h composeHandle) LogTail(ctx context.Context, n int) []string {
	args := append(append(h.starter.baseArgs(), "logs", "--no-color", "--tail", strconv.Itoa(n)),
		h.starter.Services...)
	cmd := execCommandContext(ctx, "docker", args...)
	output, err := cmd.CombinedOutput()
	if err != nil && len(output) == 0 {
		return []string{fmt.Sprintf("(could not read compose logs: %s)", err)}
	}
	return tailLines(bytes.NewReader(output), n)
}
